// README: CLI that runs one plan against the configured providers and prints the itinerary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"friendus/internal/app"
	"friendus/internal/cache"
	"friendus/internal/config"
	"friendus/internal/geo"
	"friendus/internal/infra"
	"friendus/internal/planner"
)

type options struct {
	lat, lon  float64
	date      string
	timeRange string
	budget    string
	companion string
	interests []string
	beamWidth int
	asJSON    bool
	timeout   time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "plan_demo [message]",
		Short: "Generate an itinerary for a free-text request",
		Example: `  plan_demo "Ăn sáng phở, đi bảo tàng rồi cà phê" --lat 10.7769 --lon 106.7009
  FRIENDUS_AI_PROVIDER=none plan_demo "breakfast, museum, coffee" --json`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.lat, "lat", 0, "anchor latitude (default: planner default)")
	f.Float64Var(&opts.lon, "lon", 0, "anchor longitude (default: planner default)")
	f.StringVar(&opts.date, "date", "", `plan day: "today", "tomorrow" or YYYY-MM-DD`)
	f.StringVar(&opts.timeRange, "time-range", "", `daily window, e.g. "09:00 - 21:00"`)
	f.StringVar(&opts.budget, "budget", "", "budget hint passed to intent extraction")
	f.StringVar(&opts.companion, "companions", "", "who is coming along")
	f.StringSliceVar(&opts.interests, "interests", nil, "comma separated interests")
	f.IntVar(&opts.beamWidth, "beam-width", 0, "override the configured beam width")
	f.BoolVar(&opts.asJSON, "json", false, "print the raw PlanResult as JSON")
	f.DurationVar(&opts.timeout, "timeout", 90*time.Second, "overall planning timeout")
	return cmd
}

func run(ctx context.Context, out io.Writer, message string, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.beamWidth > 0 {
		cfg.Planner.BeamWidth = opts.beamWidth
	}
	logger, err := infra.NewLogger(cfg.Log.Level, zap.String("service", "plan_demo"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	engine, err := app.NewEngine(ctx, cfg, cache.NewMemoryStore(cfg.Maps.CacheTTL, time.Minute), logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	uc := planner.UserContext{
		Preferences: planner.Preferences{
			Date:       opts.date,
			TimeRange:  opts.timeRange,
			Budget:     opts.budget,
			Companions: opts.companion,
			Interests:  opts.interests,
		},
	}
	if opts.lat != 0 || opts.lon != 0 {
		uc.Anchor = geo.Point{Lat: opts.lat, Lon: opts.lon}
	}
	if engine.Weather != nil && uc.Anchor.Valid() {
		if samples, err := engine.Weather.Hourly(ctx, uc.Anchor); err == nil {
			uc.Weather = samples
		} else {
			logger.Warn("weather unavailable", zap.Error(err))
		}
	}

	result, err := engine.Planner.GeneratePlan(ctx, message, uc)
	if err != nil {
		return err
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printPlan(out, message, result)
	return nil
}

func printPlan(out io.Writer, message string, result planner.PlanResult) {
	fmt.Fprintf(out, "Request: %s\n", message)
	if len(result.Steps) == 0 {
		fmt.Fprintln(out, "No activities found in the request.")
		return
	}
	for _, st := range result.Steps {
		if st.StepNumber > 1 {
			fmt.Fprintf(out, "      ↓ %d min (%.1f km)\n", st.TravelMinutes, st.TravelKm)
		}
		name := st.Place.Name
		if st.Place.Unresolved {
			name += " (not found)"
		}
		fmt.Fprintf(out, "%2d. %s-%s  %s\n", st.StepNumber, st.Time.Start, st.Time.End, name)
		fmt.Fprintf(out, "      %s | %s\n", st.Intent, st.Place.Address)
	}
	fmt.Fprintf(out, "Total score: %.3f\n", result.TotalScore)
}
