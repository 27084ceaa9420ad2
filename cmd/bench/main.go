// README: Smoke and load runner against a running API; checks DB, Redis, plan and activity endpoints and prints results.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseURL        string
	UserID         string
	DSN            string
	RedisAddr      string
	ApplyMigration bool
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg Config
	cmd := &cobra.Command{
		Use:          "bench",
		Short:        "Run smoke and load checks against a friendus API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
			return run(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "base-url", envOrDefault("FRIENDUS_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	f.StringVar(&cfg.UserID, "user", envOrDefault("FRIENDUS_BENCH_USER", "bench-user"), "value sent as X-User-ID")
	f.StringVar(&cfg.DSN, "dsn", envOrDefault("FRIENDUS_DB_DSN", ""), "Postgres DSN (empty skips DB checks)")
	f.StringVar(&cfg.RedisAddr, "redis", envOrDefault("FRIENDUS_REDIS_ADDR", ""), "Redis address (empty skips Redis checks)")
	f.BoolVar(&cfg.ApplyMigration, "apply-migration", false, "apply migrations before the checks")
	f.BoolVar(&cfg.Strict, "strict", false, "fail on skipped checks")
	f.DurationVar(&cfg.Timeout, "timeout", 3*time.Minute, "total timeout")
	f.IntVar(&cfg.Concurrency, "concurrency", 10, "concurrency for load checks")
	f.DurationVar(&cfg.Duration, "duration", 10*time.Second, "duration of load checks")
	return cmd
}

func run(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		return fmt.Errorf("%d checks failed, %d skipped", fail, skipped)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
