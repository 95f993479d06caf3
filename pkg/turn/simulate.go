package turn

import (
	"fmt"
	"strconv"
)

// SimParams tunes the local simulation.
type SimParams struct {
	Step          float64 // degrees an army advances per turn
	CaptureRadius float64 // post-move distance under which a city falls
}

// DefaultSimParams are the values the game has always used.
var DefaultSimParams = SimParams{Step: 0.5, CaptureRadius: 0.8}

// IntelligenceSource is the source country of events nobody in particular
// caused.
const IntelligenceSource = "Renseignement"

// SimResult is the outcome of one local simulation pass.
type SimResult struct {
	Entities []Entity
	Events   []Event
	NewDate  string
	Captures int
}

// Simulate resolves a turn without the oracle: every army marches on the
// nearest city held by someone else and takes it once close enough.
//
// Ownership is read from a snapshot taken before any army moves, and a city
// changes hands at most once per pass, so the outcome does not depend on
// chained captures. The function is pure: the same state always produces the
// same result and gs is not modified.
func Simulate(gs *GameState, p SimParams) SimResult {
	if p.Step <= 0 {
		p.Step = DefaultSimParams.Step
	}
	if p.CaptureRadius <= 0 {
		p.CaptureRadius = DefaultSimParams.CaptureRadius
	}

	entities := CloneEntities(gs.Entities)
	newDate := AdvanceDate(gs.Date)
	nextTurn := gs.Turn + 1

	owners := make([]string, len(entities))
	for i, e := range entities {
		owners[i] = e.Owner
	}
	captured := make(map[int]bool)

	var events []Event
	for i := range entities {
		army := &entities[i]
		if army.Type != Army || !army.Position().Valid() {
			continue
		}

		target := nearestHostileCity(entities, owners, army)
		if target < 0 {
			continue
		}
		city := &entities[target]

		pos := StepToward(army.Position(), city.Position(), p.Step)
		army.Latitude, army.Longitude = pos.Latitude, pos.Longitude

		if captured[target] || Distance(pos, city.Position()) >= p.CaptureRadius {
			continue
		}
		captured[target] = true
		city.Owner = army.Owner
		events = append(events, Event{
			ID:            fmt.Sprintf("battle-%d-%s", nextTurn, city.ID),
			Date:          newDate,
			Title:         "Chute de " + city.Name,
			Description:   fmt.Sprintf("Les forces de %s ont capturé %s !", army.Owner, city.Name),
			SourceCountry: army.Owner,
			Type:          EventWar,
		})
	}

	if len(events) == 0 {
		events = append(events, Event{
			ID:            "move-" + strconv.Itoa(nextTurn),
			Date:          newDate,
			Title:         "Manœuvres Stratégiques",
			Description:   "Les armées se repositionnent sur le front.",
			SourceCountry: IntelligenceSource,
			Type:          EventInfo,
		})
	}

	return SimResult{
		Entities: entities,
		Events:   events,
		NewDate:  newDate,
		Captures: len(captured),
	}
}

// nearestHostileCity returns the index of the closest city whose snapshot
// owner differs from the army's owner, or -1. Ties keep the first city.
func nearestHostileCity(entities []Entity, owners []string, army *Entity) int {
	best := -1
	var bestDist float64
	for j, e := range entities {
		if e.Type != City || owners[j] == army.Owner || !e.Position().Valid() {
			continue
		}
		d := Distance(army.Position(), e.Position())
		if best < 0 || d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
