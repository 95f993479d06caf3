// Command simulate plays campaigns without a server: it opens a game for each
// country and resolves a number of turns through the resolver, printing the
// chronicle of each campaign.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/paxhistoria/internal/config"
	"github.com/freeeve/paxhistoria/internal/oracle"
	"github.com/freeeve/paxhistoria/internal/service"
	"github.com/freeeve/paxhistoria/pkg/turn"
)

// campaign is the outcome of one simulated game.
type campaign struct {
	Country      string         `json:"country"`
	Turns        int            `json:"turns"`
	FinalDate    string         `json:"final_date"`
	OfflineTurns int            `json:"offline_turns"`
	Owners       map[string]int `json:"cities_by_owner"`
	Events       []turn.Event   `json:"events"`
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		countries string
		numTurns  int
		workers   int
		useOracle bool
		scenarios string
		step      float64
		radius    float64
		jsonOut   bool
	)

	flag.StringVar(&countries, "countries", "France", "Comma-separated player countries, one campaign each")
	flag.IntVar(&numTurns, "n", 12, "Number of turns per campaign")
	flag.IntVar(&workers, "workers", 2, "Campaigns run in parallel")
	flag.BoolVar(&useOracle, "oracle", false, "Ask the configured oracle (ORACLE_* env) instead of simulating locally")
	flag.StringVar(&scenarios, "scenarios", "", "Scenario file (default: builtin)")
	flag.Float64Var(&step, "step", turn.DefaultSimParams.Step, "Degrees an army advances per simulated turn")
	flag.Float64Var(&radius, "capture-radius", turn.DefaultSimParams.CaptureRadius, "Distance under which a city falls")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	if numTurns < 0 {
		fmt.Fprintln(os.Stderr, "-n must not be negative")
		os.Exit(2)
	}

	cfg := config.Load()
	set := turn.BuiltinScenarios()
	if scenarios != "" {
		var err error
		if set, err = turn.LoadScenarios(scenarios); err != nil {
			log.Fatal().Err(err).Str("file", scenarios).Msg("Failed to load scenarios")
		}
	}

	var orc oracle.Oracle
	if useOracle {
		client := oracle.NewClient(oracle.ClientConfig{
			BaseURL:       cfg.OracleURL,
			APIKey:        cfg.OracleAPIKey,
			Model:         cfg.OracleModel,
			RatePerMinute: cfg.OracleRatePerMin,
		})
		if !client.Enabled() {
			log.Fatal().Msg("-oracle needs ORACLE_API_KEY")
		}
		orc = oracle.NewLLM(client)
	}

	resolver := service.NewResolver(orc, service.ResolverConfig{
		OracleTimeout: cfg.OracleTimeout,
		ThreadHistory: cfg.ThreadHistory,
		Sim:           turn.SimParams{Step: step, CaptureRadius: radius},
		Scenarios:     set,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := splitCountries(countries)
	results := make([]*campaign, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, country := range names {
		g.Go(func() error {
			res, err := play(gctx, resolver, country, numTurns)
			if err != nil {
				return fmt.Errorf("%s: %w", country, err)
			}
			results[i] = res
			log.Info().Str("country", country).Str("date", res.FinalDate).Int("offlineTurns", res.OfflineTurns).Msg("Campaign completed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Simulation interrupted")
	}

	if jsonOut {
		printJSON(results)
	} else {
		printSummary(results)
	}
}

func play(ctx context.Context, resolver *service.Resolver, country string, turns int) (*campaign, error) {
	gs, _ := resolver.Initialize(ctx, country)
	gs.ID = resolver.Stamp().NewID("sim")

	res := &campaign{Country: country}
	for range turns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var out service.Outcome
		gs, out = resolver.ResolveTurn(ctx, gs)
		if out.Offline {
			res.OfflineTurns++
		}
		res.Turns++
	}

	res.FinalDate = gs.Date
	res.Events = gs.Events
	res.Owners = make(map[string]int)
	for _, e := range gs.Entities {
		if e.Type == turn.City {
			res.Owners[e.Owner]++
		}
	}
	return res, nil
}

func splitCountries(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// sortedOwners orders owners by cities held, then by name.
func sortedOwners(owners map[string]int) []string {
	names := make([]string, 0, len(owners))
	for o := range owners {
		names = append(names, o)
	}
	sort.Slice(names, func(i, j int) bool {
		if owners[names[i]] != owners[names[j]] {
			return owners[names[i]] > owners[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func printSummary(results []*campaign) {
	for _, r := range results {
		fmt.Printf("\n%s: %d turns, reached %s (%d offline)\n", r.Country, r.Turns, r.FinalDate, r.OfflineTurns)
		for _, owner := range sortedOwners(r.Owners) {
			fmt.Printf("  %-14s %d cities\n", owner, r.Owners[owner])
		}
		// Events are newest first; print the chronicle in order.
		for i := len(r.Events) - 1; i >= 0; i-- {
			e := r.Events[i]
			fmt.Printf("  [%s] %-8s %s: %s\n", e.Date, e.Type, e.Title, e.Description)
		}
	}
}

func printJSON(results []*campaign) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(struct {
		Campaigns []*campaign `json:"campaigns"`
	}{results})
}
