// Package turn holds the world model of a game and the pure, storage-free
// parts of turn resolution: date advancement, spatial helpers, the local
// simulation, entity merging and diplomatic thread routing.
package turn

import (
	"math"
	"time"
)

// EntityType is the kind of a map entity.
type EntityType string

const (
	City   EntityType = "city"
	Army   EntityType = "army"
	Base   EntityType = "base"
	Battle EntityType = "battle"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case City, Army, Base, Battle:
		return true
	}
	return false
}

// EventType classifies a narrative event.
type EventType string

const (
	EventDiplomacy    EventType = "diplomacy"
	EventWar          EventType = "war"
	EventConstruction EventType = "construction"
	EventInfo         EventType = "info"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventDiplomacy, EventWar, EventConstruction, EventInfo:
		return true
	}
	return false
}

// Coordinate is a geographic position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid is false when either component is NaN or infinite.
func (c Coordinate) Valid() bool {
	return finite(c.Latitude) && finite(c.Longitude)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Entity is a city, army, base or battle marker on the map. ID is the only
// identity key; Type never changes once the entity exists.
type Entity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Owner       string     `json:"owner"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Strength    *int       `json:"strength,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Position returns the entity's coordinate.
func (e Entity) Position() Coordinate {
	return Coordinate{Latitude: e.Latitude, Longitude: e.Longitude}
}

func (e Entity) clone() Entity {
	if e.Strength != nil {
		s := *e.Strength
		e.Strength = &s
	}
	return e
}

// Event is an entry of the narrative log. The log is kept newest first.
type Event struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SourceCountry string    `json:"sourceCountry"`
	Type          EventType `json:"type"`
}

// DiplomaticMessage is one immutable message of a thread.
type DiplomaticMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DiplomaticThread is a conversation between the player and one or more
// countries. Participants never include the player's own country.
type DiplomaticThread struct {
	ID           string              `json:"id"`
	Participants []string            `json:"participants"`
	Messages     []DiplomaticMessage `json:"messages"`
	LastUpdated  time.Time           `json:"lastUpdated"`
	UnreadCount  int                 `json:"unreadCount"`
}

func (t DiplomaticThread) clone() DiplomaticThread {
	t.Participants = append([]string{}, t.Participants...)
	t.Messages = append([]DiplomaticMessage{}, t.Messages...)
	return t
}

// PlayerAction is a free-text order queued for the next turn.
type PlayerAction struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GameState is the whole world of one game.
type GameState struct {
	ID             string             `json:"id"`
	Date           string             `json:"date"`
	Turn           int                `json:"turn"`
	PlayerCountry  string             `json:"playerCountry"`
	Entities       []Entity           `json:"entities"`
	Events         []Event            `json:"events"`
	Diplomacy      []DiplomaticThread `json:"diplomacy"`
	PlannedActions []PlayerAction     `json:"plannedActions"`
	IsLoading      bool               `json:"isLoading"`
	IsOffline      bool               `json:"isOffline"`
}

// Clone returns a deep copy of the state.
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Entities = CloneEntities(gs.Entities)
	c.Events = append([]Event{}, gs.Events...)
	c.Diplomacy = make([]DiplomaticThread, len(gs.Diplomacy))
	for i, t := range gs.Diplomacy {
		c.Diplomacy[i] = t.clone()
	}
	c.PlannedActions = append([]PlayerAction{}, gs.PlannedActions...)
	return &c
}

// CloneEntities deep-copies an entity list.
func CloneEntities(entities []Entity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = e.clone()
	}
	return out
}

// EntityByID returns a pointer into gs.Entities, or nil.
func (gs *GameState) EntityByID(id string) *Entity {
	for i := range gs.Entities {
		if gs.Entities[i].ID == id {
			return &gs.Entities[i]
		}
	}
	return nil
}

// ThreadByID returns a pointer into gs.Diplomacy, or nil.
func (gs *GameState) ThreadByID(id string) *DiplomaticThread {
	for i := range gs.Diplomacy {
		if gs.Diplomacy[i].ID == id {
			return &gs.Diplomacy[i]
		}
	}
	return nil
}

// PrependEvents puts events in front of the log, keeping their order.
func (gs *GameState) PrependEvents(events ...Event) {
	if len(events) == 0 {
		return
	}
	log := make([]Event, 0, len(events)+len(gs.Events))
	log = append(log, events...)
	gs.Events = append(log, gs.Events...)
}

// Orders returns the texts of the planned actions in queue order.
func (gs *GameState) Orders() []string {
	out := make([]string, len(gs.PlannedActions))
	for i, a := range gs.PlannedActions {
		out[i] = a.Text
	}
	return out
}

// IntPtr is a convenience for building entities with a strength.
func IntPtr(v int) *int { return &v }
