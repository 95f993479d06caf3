package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/paxhistoria/internal/oracle"
	"github.com/freeeve/paxhistoria/pkg/turn"
)

const (
	// DefaultOracleTimeout bounds a single oracle call.
	DefaultOracleTimeout = 45 * time.Second
	// DefaultThreadHistory is how many messages per thread the oracle sees.
	DefaultThreadHistory = 3

	offlineStartMessage = "Connexion IA instable. Mode Simulation Locale activé."
)

var errResolverPanic = errors.New("turn resolution panicked")

// Outcome describes how a turn or an opening was produced.
type Outcome struct {
	Offline bool
	Reason  error
	Merge   turn.MergeStats
}

// ResolverConfig tunes the resolver. Zero values select the defaults.
type ResolverConfig struct {
	OracleTimeout time.Duration
	ThreadHistory int
	Sim           turn.SimParams
	Scenarios     *turn.ScenarioSet
}

// Resolver produces the next game state, from the oracle when it answers
// usefully and from the local simulation otherwise. It never returns an
// error: degraded turns are flagged through GameState.IsOffline.
type Resolver struct {
	oracle oracle.Oracle
	cfg    ResolverConfig
	stamp  turn.Stamp
}

// NewResolver creates a Resolver. A nil oracle makes every turn offline.
func NewResolver(o oracle.Oracle, cfg ResolverConfig) *Resolver {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = DefaultOracleTimeout
	}
	if cfg.ThreadHistory <= 0 {
		cfg.ThreadHistory = DefaultThreadHistory
	}
	if cfg.Sim.Step <= 0 || cfg.Sim.CaptureRadius <= 0 {
		cfg.Sim = turn.DefaultSimParams
	}
	if cfg.Scenarios == nil {
		cfg.Scenarios = turn.BuiltinScenarios()
	}
	return &Resolver{
		oracle: o,
		cfg:    cfg,
		stamp: turn.Stamp{
			Now:   time.Now,
			NewID: func(prefix string) string { return prefix + "-" + uuid.NewString() },
		},
	}
}

// SetStamp replaces the clock and id generator, for tests.
func (r *Resolver) SetStamp(st turn.Stamp) {
	r.stamp = st
}

// Stamp returns the clock and id generator used for new records.
func (r *Resolver) Stamp() turn.Stamp {
	return r.stamp
}

// ResolveTurn computes the state after gs. The input is not modified.
func (r *Resolver) ResolveTurn(ctx context.Context, gs *turn.GameState) (*turn.GameState, Outcome) {
	next, stats, err := r.resolveOnline(ctx, gs)
	if err == nil {
		log.Info().Str("gameId", gs.ID).Int("turn", gs.Turn).
			Int("updated", stats.Updated).Int("spawned", stats.Spawned).Int("skipped", stats.Skipped).
			Msg("Turn resolved by oracle")
		return next, Outcome{Merge: stats}
	}

	log.Warn().Err(err).Str("gameId", gs.ID).Int("turn", gs.Turn).Msg("Oracle turn failed, simulating locally")
	return r.resolveOffline(gs), Outcome{Offline: true, Reason: err}
}

// resolveOnline works on a clone so that nothing of a failed attempt leaks
// into the result.
func (r *Resolver) resolveOnline(ctx context.Context, gs *turn.GameState) (next *turn.GameState, stats turn.MergeStats, err error) {
	if r.oracle == nil {
		return nil, stats, fmt.Errorf("%w: no oracle configured", oracle.ErrUnavailable)
	}
	defer func() {
		if p := recover(); p != nil {
			next, stats = nil, turn.MergeStats{}
			err = fmt.Errorf("%w: %v", errResolverPanic, p)
		}
	}()

	req := oracle.NewTurnRequest(gs, r.cfg.ThreadHistory)
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.OracleTimeout)
	defer cancel()

	raw, err := r.oracle.ResolveTurn(callCtx, req)
	if err != nil {
		return nil, stats, err
	}
	payload, ok := oracle.ExtractPayload(raw)
	if !ok {
		return nil, stats, fmt.Errorf("%w: no JSON object in turn reply", oracle.ErrMalformedReply)
	}
	reply, err := oracle.DecodeTurnReply(payload)
	if err != nil {
		return nil, stats, err
	}

	next = gs.Clone()
	next.Entities, stats = turn.MergeEntitiesStats(next.Entities, reply.Updates)
	if stats.Skipped > 0 {
		log.Warn().Str("gameId", gs.ID).Int("skipped", stats.Skipped).Msg("Ignored unusable entity updates")
	}

	for _, rep := range reply.Replies {
		threads, kind, ok := turn.RouteReply(next.Diplomacy, rep, next.PlayerCountry, r.stamp)
		if !ok {
			log.Debug().Str("gameId", gs.ID).Strs("participants", rep.Participants).Msg("Dropped empty diplomatic reply")
			continue
		}
		if kind == turn.MatchFuzzy {
			log.Debug().Str("gameId", gs.ID).Strs("participants", rep.Participants).Msg("Reply routed to overlapping thread")
		}
		next.Diplomacy = threads
	}

	date := reply.NewDate
	if date == "" {
		date = gs.Date
	}
	events := make([]turn.Event, 0, len(reply.Events))
	for _, d := range reply.Events {
		events = append(events, turn.Event{
			ID:            r.stamp.NewID("evt"),
			Date:          date,
			Title:         d.Title,
			Description:   d.Description,
			SourceCountry: d.SourceCountry,
			Type:          d.Type,
		})
	}
	next.PrependEvents(events...)
	next.Date = date
	finishTurn(next, false)
	return next, stats, nil
}

func (r *Resolver) resolveOffline(gs *turn.GameState) *turn.GameState {
	res := turn.Simulate(gs, r.cfg.Sim)

	next := gs.Clone()
	next.Entities = res.Entities
	events := res.Events
	if !gs.IsOffline {
		events = append(events, turn.Event{
			ID:            fmt.Sprintf("offline-%d", gs.Turn+1),
			Date:          res.NewDate,
			Title:         "Liaison IA perdue",
			Description:   offlineStartMessage,
			SourceCountry: turn.IntelligenceSource,
			Type:          turn.EventInfo,
		})
	}
	next.PrependEvents(events...)
	next.Date = res.NewDate
	finishTurn(next, true)
	return next
}

func finishTurn(gs *turn.GameState, offline bool) {
	gs.PlannedActions = []turn.PlayerAction{}
	gs.IsOffline = offline
	gs.IsLoading = false
	gs.Turn++
}

// Initialize builds the opening state of a game for country. The caller
// assigns the game id.
func (r *Resolver) Initialize(ctx context.Context, country string) (*turn.GameState, Outcome) {
	gs, err := r.initOnline(ctx, country)
	if err == nil {
		log.Info().Str("country", country).Int("entities", len(gs.Entities)).Msg("Game opened by oracle")
		return gs, Outcome{}
	}

	log.Warn().Err(err).Str("country", country).Msg("Oracle opening failed, using seed scenario")
	sc := r.cfg.Scenarios.For(country)
	return r.openingState(country, sc.StartDate(), offlineStartMessage, sc.EntityList(), true),
		Outcome{Offline: true, Reason: err}
}

func (r *Resolver) initOnline(ctx context.Context, country string) (gs *turn.GameState, err error) {
	if r.oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", oracle.ErrUnavailable)
	}
	defer func() {
		if p := recover(); p != nil {
			gs = nil
			err = fmt.Errorf("%w: %v", errResolverPanic, p)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.OracleTimeout)
	defer cancel()

	raw, err := r.oracle.Initialize(callCtx, country)
	if err != nil {
		return nil, err
	}
	payload, ok := oracle.ExtractPayload(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in opening", oracle.ErrMalformedReply)
	}
	reply, err := oracle.DecodeInitReply(payload)
	if err != nil {
		return nil, err
	}
	return r.openingState(country, reply.Date, reply.Message, reply.Entities, false), nil
}

func (r *Resolver) openingState(country, date, message string, entities []turn.Entity, offline bool) *turn.GameState {
	if entities == nil {
		entities = []turn.Entity{}
	}
	return &turn.GameState{
		Date:          date,
		Turn:          1,
		PlayerCountry: country,
		Entities:      entities,
		Events: []turn.Event{{
			ID:            r.stamp.NewID("evt"),
			Date:          date,
			Title:         "Début de la partie",
			Description:   message,
			SourceCountry: turn.IntelligenceSource,
			Type:          turn.EventInfo,
		}},
		Diplomacy:      []turn.DiplomaticThread{},
		PlannedActions: []turn.PlayerAction{},
		IsOffline:      offline,
	}
}
