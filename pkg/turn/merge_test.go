package turn

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func typePtr(t EntityType) *EntityType { return &t }

func TestMergeEntities_UpdateByID(t *testing.T) {
	current := []Entity{
		{ID: "c1", Name: "Paris", Type: City, Owner: "France", Latitude: 48.85, Longitude: 2.35},
		{ID: "a1", Name: "Armée", Type: Army, Owner: "France", Latitude: 49, Longitude: 3, Strength: IntPtr(100)},
	}
	updates := []EntityUpdate{
		{ID: "c1", Owner: strPtr("Allemagne"), Type: typePtr(Base)},
		{ID: "a1", Latitude: floatPtr(49.5)},
	}

	got, stats := MergeEntitiesStats(current, updates)

	if stats != (MergeStats{Updated: 2}) {
		t.Errorf("stats = %+v", stats)
	}
	if got[0].Owner != "Allemagne" || got[0].Name != "Paris" {
		t.Errorf("c1 = %+v, want owner changed and name kept", got[0])
	}
	if got[0].Type != City {
		t.Errorf("c1 type changed to %q", got[0].Type)
	}
	if got[1].Latitude != 49.5 || got[1].Longitude != 3 {
		t.Errorf("a1 position = %+v, want {49.5 3}", got[1].Position())
	}
	if *got[1].Strength != 100 {
		t.Errorf("a1 strength = %d, want 100", *got[1].Strength)
	}
	if current[0].Owner != "France" {
		t.Error("MergeEntities modified its input")
	}
}

func TestMergeEntities_Spawn(t *testing.T) {
	current := []Entity{{ID: "c1", Type: City, Owner: "France"}}
	updates := []EntityUpdate{
		{ID: "b1", Name: strPtr("Verdun"), Type: typePtr(Battle), Latitude: floatPtr(49.16), Longitude: floatPtr(5.38)},
		{ID: "x1", Name: strPtr("Sans type"), Latitude: floatPtr(1), Longitude: floatPtr(1)},
		{ID: "x2", Type: typePtr(Army)},
		{ID: "x3", Type: typePtr("zeppelin"), Latitude: floatPtr(1), Longitude: floatPtr(1)},
		{Owner: strPtr("Italie")},
	}

	got, stats := MergeEntitiesStats(current, updates)

	if stats != (MergeStats{Spawned: 1, Skipped: 4}) {
		t.Errorf("stats = %+v", stats)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got))
	}
	if got[1].ID != "b1" || got[1].Name != "Verdun" || got[1].Type != Battle {
		t.Errorf("spawned entity = %+v", got[1])
	}
}

func TestMergeEntities_SpawnThenUpdate(t *testing.T) {
	updates := []EntityUpdate{
		{ID: "a9", Type: typePtr(Army), Owner: strPtr("Italie"), Latitude: floatPtr(41), Longitude: floatPtr(12)},
		{ID: "a9", Owner: strPtr("Espagne")},
	}
	got := MergeEntities(nil, updates)
	if len(got) != 1 || got[0].Owner != "Espagne" {
		t.Errorf("got %+v, want a single a9 owned by Espagne", got)
	}
}

// Property tests.

var idPool = []string{"c1", "c2", "a1", "a2", "b1", "x"}

func entityGen() *rapid.Generator[Entity] {
	return rapid.Custom(func(t *rapid.T) Entity {
		e := Entity{
			ID:        rapid.SampledFrom(idPool).Draw(t, "id"),
			Name:      rapid.StringMatching(`[A-Z][a-z]{0,8}`).Draw(t, "name"),
			Type:      rapid.SampledFrom([]EntityType{City, Army, Base, Battle}).Draw(t, "type"),
			Owner:     rapid.SampledFrom([]string{"France", "Allemagne", "Italie"}).Draw(t, "owner"),
			Latitude:  rapid.Float64Range(-90, 90).Draw(t, "lat"),
			Longitude: rapid.Float64Range(-180, 180).Draw(t, "lon"),
		}
		if rapid.Bool().Draw(t, "hasStrength") {
			e.Strength = IntPtr(rapid.IntRange(0, 500).Draw(t, "strength"))
		}
		return e
	})
}

func updateGen() *rapid.Generator[EntityUpdate] {
	return rapid.Custom(func(t *rapid.T) EntityUpdate {
		return EntityUpdate{
			ID:        rapid.SampledFrom(append([]string{""}, idPool...)).Draw(t, "id"),
			Name:      rapid.Ptr(rapid.StringMatching(`[A-Z][a-z]{0,8}`), true).Draw(t, "name"),
			Type:      rapid.Ptr(rapid.SampledFrom([]EntityType{City, Army, "bogus"}), true).Draw(t, "type"),
			Owner:     rapid.Ptr(rapid.SampledFrom([]string{"France", "URSS"}), true).Draw(t, "owner"),
			Latitude:  rapid.Ptr(rapid.Float64Range(-90, 90), true).Draw(t, "lat"),
			Longitude: rapid.Ptr(rapid.Float64Range(-180, 180), true).Draw(t, "lon"),
			Strength:  rapid.Ptr(rapid.IntRange(0, 500), true).Draw(t, "strength"),
		}
	})
}

func TestMergeEntities_EmptyIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.SliceOfN(entityGen(), 0, 8).Draw(t, "current")
		got := MergeEntities(current, nil)
		if len(current) == 0 && len(got) == 0 {
			return
		}
		if !reflect.DeepEqual(got, current) {
			t.Fatalf("merge with no updates changed entities:\n%+v\n%+v", current, got)
		}
	})
}

func TestMergeEntities_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.SliceOfN(entityGen(), 0, 8).Draw(t, "current")
		updates := rapid.SliceOfDistinct(updateGen(), func(u EntityUpdate) string { return u.ID }).Draw(t, "updates")

		once := MergeEntities(current, updates)
		twice := MergeEntities(once, updates)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("applying updates twice differs:\n%+v\n%+v", once, twice)
		}
	})
}

func TestMergeEntities_NeverRemoves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.SliceOfN(entityGen(), 0, 8).Draw(t, "current")
		updates := rapid.SliceOf(updateGen()).Draw(t, "updates")

		got := MergeEntities(current, updates)
		if len(got) < len(current) {
			t.Fatalf("merge removed entities: %d -> %d", len(current), len(got))
		}
		for i := range current {
			if got[i].ID != current[i].ID || got[i].Type != current[i].Type {
				t.Fatalf("entity %d changed identity: %+v -> %+v", i, current[i], got[i])
			}
		}
	})
}
