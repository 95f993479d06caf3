package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/paxhistoria/pkg/turn"
)

// Defaults used when an initialization reply leaves fields out.
const (
	DefaultStartDate    = "1 Janvier 1936"
	DefaultStartMessage = "L'Europe retient son souffle..."
)

// EventDraft is an event proposed by the oracle, before it gets an id and a
// date.
type EventDraft struct {
	Title         string
	Description   string
	SourceCountry string
	Type          turn.EventType
}

// TurnReply is a decoded turn delta.
type TurnReply struct {
	NewDate string
	Events  []EventDraft
	Updates []turn.EntityUpdate
	Replies []turn.DiplomaticReply
}

// InitReply is a decoded game opening.
type InitReply struct {
	Date     string
	Message  string
	Entities []turn.Entity
}

// DecodeTurnReply reads a turn delta field by field. Missing or mistyped
// fields default to empty; the reply is only rejected when it carries an
// error indicator or none of the expected keys.
func DecodeTurnReply(p Payload) (TurnReply, error) {
	if err := refusal(p); err != nil {
		return TurnReply{}, err
	}
	if !hasAny(p, "newDate", "events", "updatedEntities", "diplomaticResponses") {
		return TurnReply{}, fmt.Errorf("%w: no turn fields", ErrMalformedReply)
	}

	var r TurnReply
	r.NewDate, _ = asString(p["newDate"])
	r.NewDate = strings.TrimSpace(r.NewDate)

	for _, item := range objects(p, "events") {
		ev := EventDraft{
			Title:         str(item, "title"),
			Description:   str(item, "description"),
			SourceCountry: str(item, "sourceCountry"),
			Type:          turn.EventType(strings.ToLower(str(item, "type"))),
		}
		if !ev.Type.Valid() {
			ev.Type = turn.EventInfo
		}
		if ev.Title == "" && ev.Description == "" {
			continue
		}
		r.Events = append(r.Events, ev)
	}

	for _, item := range objects(p, "updatedEntities") {
		r.Updates = append(r.Updates, decodeUpdate(item))
	}

	for _, item := range objects(p, "diplomaticResponses") {
		reply := turn.DiplomaticReply{Response: str(item, "response")}
		switch v := item["participants"].(type) {
		case []any:
			for _, name := range v {
				if s, ok := asString(name); ok {
					reply.Participants = append(reply.Participants, s)
				}
			}
		case string:
			reply.Participants = strings.Split(v, ",")
		}
		r.Replies = append(r.Replies, reply)
	}
	return r, nil
}

// DecodeInitReply reads a game opening. Entities that lack an id, a known
// type or a position are dropped.
func DecodeInitReply(p Payload) (InitReply, error) {
	if err := refusal(p); err != nil {
		return InitReply{}, err
	}
	if !hasAny(p, "date", "message", "entities") {
		return InitReply{}, fmt.Errorf("%w: no opening fields", ErrMalformedReply)
	}

	r := InitReply{Date: DefaultStartDate, Message: DefaultStartMessage}
	if s, ok := asString(p["date"]); ok && strings.TrimSpace(s) != "" {
		r.Date = strings.TrimSpace(s)
	}
	if s, ok := asString(p["message"]); ok && strings.TrimSpace(s) != "" {
		r.Message = strings.TrimSpace(s)
	}

	var updates []turn.EntityUpdate
	for _, item := range objects(p, "entities") {
		updates = append(updates, decodeUpdate(item))
	}
	entities, stats := turn.MergeEntitiesStats(nil, updates)
	if stats.Skipped > 0 {
		log.Warn().Int("skipped", stats.Skipped).Msg("Dropped unusable entities from oracle opening")
	}
	r.Entities = entities
	return r, nil
}

func decodeUpdate(item map[string]any) turn.EntityUpdate {
	var u turn.EntityUpdate
	u.ID, _ = asString(item["id"])
	u.ID = strings.TrimSpace(u.ID)

	if s, ok := asString(item["name"]); ok {
		u.Name = &s
	}
	if s, ok := asString(item["type"]); ok {
		t := turn.EntityType(strings.ToLower(strings.TrimSpace(s)))
		u.Type = &t
	}
	if s, ok := asString(item["owner"]); ok {
		u.Owner = &s
	}
	if s, ok := asString(item["description"]); ok {
		u.Description = &s
	}
	if f, ok := firstFloat(item, "latitude", "lat"); ok {
		u.Latitude = &f
	}
	if f, ok := firstFloat(item, "longitude", "lon", "lng"); ok {
		u.Longitude = &f
	}
	if f, ok := asFloat(item["strength"]); ok {
		s := int(math.Round(f))
		u.Strength = &s
	}
	return u
}

// refusal reports an explicit error indicator: true, a non-empty string or
// a non-empty object. "error": false, "" or null are ignored.
func refusal(p Payload) error {
	switch v := p["error"].(type) {
	case bool:
		if v {
			return fmt.Errorf("%w: error flag set", ErrRefused)
		}
	case string:
		if msg := strings.TrimSpace(v); msg != "" {
			return fmt.Errorf("%w: %s", ErrRefused, msg)
		}
	case map[string]any:
		if len(v) > 0 {
			return fmt.Errorf("%w: %s", ErrRefused, str(v, "message"))
		}
	}
	return nil
}

func hasAny(p Payload, keys ...string) bool {
	for _, k := range keys {
		if _, ok := p[k]; ok {
			return true
		}
	}
	return false
}

// objects returns the object elements of the array under key. A value of the
// wrong shape is logged and treated as empty.
func objects(p Payload, key string) []map[string]any {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		log.Warn().Str("field", key).Msgf("Oracle field has type %T, expected array", v)
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(m map[string]any, key string) string {
	s, _ := asString(m[key])
	return strings.TrimSpace(s)
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = x
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func firstFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := asFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}
