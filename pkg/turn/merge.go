package turn

// EntityUpdate is a partial entity. Nil fields are absent from the update
// and leave the current value untouched.
type EntityUpdate struct {
	ID          string
	Name        *string
	Type        *EntityType
	Owner       *string
	Latitude    *float64
	Longitude   *float64
	Strength    *int
	Description *string
}

// MergeStats counts what a merge did with its updates.
type MergeStats struct {
	Updated int
	Spawned int
	Skipped int
}

// MergeEntities applies updates in order and returns the new entity list.
// current is not modified.
func MergeEntities(current []Entity, updates []EntityUpdate) []Entity {
	out, _ := MergeEntitiesStats(current, updates)
	return out
}

// MergeEntitiesStats is MergeEntities that also reports what happened.
//
// An update whose id matches an entity overrides the fields it carries;
// the entity type is never changed. An update with an unknown id spawns a
// new entity, provided it names a valid type and a valid position. Updates
// without an id are skipped.
func MergeEntitiesStats(current []Entity, updates []EntityUpdate) ([]Entity, MergeStats) {
	var stats MergeStats
	out := CloneEntities(current)

	index := make(map[string]int, len(out))
	for i, e := range out {
		if _, dup := index[e.ID]; !dup {
			index[e.ID] = i
		}
	}

	for _, u := range updates {
		if u.ID == "" {
			stats.Skipped++
			continue
		}
		if i, ok := index[u.ID]; ok {
			applyUpdate(&out[i], u)
			stats.Updated++
			continue
		}
		e, ok := spawn(u)
		if !ok {
			stats.Skipped++
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
		stats.Spawned++
	}
	return out, stats
}

func applyUpdate(e *Entity, u EntityUpdate) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Owner != nil {
		e.Owner = *u.Owner
	}
	if u.Latitude != nil && finite(*u.Latitude) {
		e.Latitude = *u.Latitude
	}
	if u.Longitude != nil && finite(*u.Longitude) {
		e.Longitude = *u.Longitude
	}
	if u.Strength != nil {
		s := *u.Strength
		e.Strength = &s
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
}

func spawn(u EntityUpdate) (Entity, bool) {
	if u.Type == nil || !u.Type.Valid() || u.Latitude == nil || u.Longitude == nil {
		return Entity{}, false
	}
	e := Entity{ID: u.ID, Type: *u.Type, Latitude: *u.Latitude, Longitude: *u.Longitude}
	if !e.Position().Valid() {
		return Entity{}, false
	}
	applyUpdate(&e, u)
	return e, true
}
