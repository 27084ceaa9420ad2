// README: Bench cases: environment, migrations, plan job lifecycle, websocket push, activities and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"friendus/internal/infra"
	"friendus/migrations"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

const benchMessage = "Ăn sáng phở, đi bảo tàng rồi uống cà phê"

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// jobID is the job submitted by the lifecycle cases.
	jobID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 100 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkDB},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigrations},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "API: health", Run: expectStatus(http.MethodGet, "/health", nil, true, http.StatusOK)},
		{Name: "API: metrics", Run: expectStatus(http.MethodGet, "/metrics", nil, false, http.StatusOK)},
		{Name: "Plan: missing identity -> 401", Run: expectStatus(http.MethodPost, "/api/plans", map[string]any{"message": benchMessage}, false, http.StatusUnauthorized)},
		{Name: "Plan: empty message -> 400", Run: expectStatus(http.MethodPost, "/api/plans", map[string]any{"message": ""}, true, http.StatusBadRequest)},
		{Name: "Plan: submit -> 202", Run: submitJob},
		{Name: "Plan: job finishes", Run: pollJob},
		{Name: "Plan: cancel finished job -> 409", Run: cancelFinished},
		{Name: "Plan: websocket push", Run: watchJob},
		{Name: "Plan: synchronous generate", Run: expectStatus(http.MethodPost, "/api/plans/generate",
			map[string]any{"message": benchMessage, "lat": 10.7769, "lon": 106.7009}, true, http.StatusOK, http.StatusUnprocessableEntity)},
		{Name: "Activities: accept plan", Run: acceptPlan},
		{Name: "Activities: list with conflicts", Run: expectOptional(http.MethodGet, "/api/rooms/bench-room/activities", http.StatusOK)},
		{Name: "Credits: balance", Run: expectOptional(http.MethodGet, "/api/me/credits", http.StatusOK)},
		{Name: "Perf: submit throughput", Run: perfSubmit},
	}
}

func checkDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: StatusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func applyMigrations(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: StatusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	if err := infra.RunMigrations(r.cfg.DSN, nil); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "db not configured"}
	}
	tables, err := migrationTables()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

var createTable = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

// migrationTables lists the tables the up migrations create.
func migrationTables() ([]string, error) {
	paths, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, path := range paths {
		b, err := fs.ReadFile(migrations.FS, path)
		if err != nil {
			return nil, err
		}
		for _, m := range createTable.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}

func submitJob(ctx context.Context, r *Runner) Result {
	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	start := time.Now()
	code, err := r.do(ctx, http.MethodPost, "/api/plans", map[string]any{
		"message":     benchMessage,
		"lat":         10.7769,
		"lon":         106.7009,
		"preferences": map[string]any{"date": "tomorrow"},
	}, true, &job)
	latency := time.Since(start)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if code != http.StatusAccepted || job.ID == "" {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
	}
	r.jobID = job.ID
	return Result{Status: StatusPass, Latency: latency, Note: "job=" + job.ID}
}

func pollJob(ctx context.Context, r *Runner) Result {
	if r.jobID == "" {
		return Result{Status: StatusSkip, Note: "no job submitted"}
	}
	start := time.Now()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		var job struct {
			Status string `json:"status"`
			Error  string `json:"error"`
			Result *struct {
				Steps []json.RawMessage `json:"steps"`
			} `json:"result"`
		}
		code, err := r.do(ctx, http.MethodGet, "/api/plans/"+r.jobID, nil, true, &job)
		if err != nil || code != http.StatusOK {
			return Result{Status: StatusFail, Note: fmt.Sprintf("status=%d err=%v", code, err)}
		}
		switch job.Status {
		case "done":
			steps := 0
			if job.Result != nil {
				steps = len(job.Result.Steps)
			}
			return Result{Status: StatusPass, Latency: time.Since(start), Note: fmt.Sprintf("steps=%d", steps)}
		case "failed", "cancelled":
			return Result{Status: StatusFail, Latency: time.Since(start), Note: job.Status + ": " + job.Error}
		}
		select {
		case <-ctx.Done():
			return Result{Status: StatusFail, Note: ctx.Err().Error()}
		case <-ticker.C:
		}
	}
}

func cancelFinished(ctx context.Context, r *Runner) Result {
	if r.jobID == "" {
		return Result{Status: StatusSkip, Note: "no job submitted"}
	}
	return expectStatus(http.MethodDelete, "/api/plans/"+r.jobID, nil, true, http.StatusConflict)(ctx, r)
}

func watchJob(ctx context.Context, r *Runner) Result {
	if r.jobID == "" {
		return Result{Status: StatusSkip, Note: "no job submitted"}
	}
	url := "ws" + strings.TrimPrefix(r.cfg.BaseURL, "http") + "/api/plans/" + r.jobID + "/ws"
	header := http.Header{}
	header.Set("X-User-ID", r.cfg.UserID)

	start := time.Now()
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var job struct {
		Status string `json:"status"`
	}
	if err := conn.ReadJSON(&job); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass, Latency: time.Since(start), Note: "status=" + job.Status}
}

func acceptPlan(ctx context.Context, r *Runner) Result {
	if r.jobID == "" {
		return Result{Status: StatusSkip, Note: "no job submitted"}
	}
	start := time.Now()
	code, err := r.do(ctx, http.MethodPost, "/api/rooms/bench-room/activities/from-plan",
		map[string]any{"job_id": r.jobID}, true, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return classify(code, time.Since(start), true, http.StatusCreated)
}

func perfSubmit(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		accepted int
		limited  int
		errCount int
	)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, err := r.do(ctx, http.MethodPost, "/api/plans", map[string]any{"message": benchMessage}, true, nil)
				mu.Lock()
				switch {
				case err != nil:
					errCount++
				case code == http.StatusAccepted:
					accepted++
				case code == http.StatusTooManyRequests:
					limited++
				default:
					errCount++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted == 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("no jobs accepted (429=%d errors=%d)", limited, errCount)}
	}
	rps := float64(accepted) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f 429=%d errors=%d", rps, limited, errCount)}
}

// expectStatus passes when the response code is one of ok.
func expectStatus(method, path string, body any, auth bool, ok ...int) func(context.Context, *Runner) Result {
	return func(ctx context.Context, r *Runner) Result {
		start := time.Now()
		code, err := r.do(ctx, method, path, body, auth, nil)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		return classify(code, time.Since(start), false, ok...)
	}
}

// expectOptional treats 404 as a disabled feature (no database) and skips.
func expectOptional(method, path string, ok ...int) func(context.Context, *Runner) Result {
	return func(ctx context.Context, r *Runner) Result {
		start := time.Now()
		code, err := r.do(ctx, method, path, nil, true, nil)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		return classify(code, time.Since(start), true, ok...)
	}
}

func classify(code int, latency time.Duration, notFoundSkips bool, ok ...int) Result {
	note := fmt.Sprintf("status=%d", code)
	for _, c := range ok {
		if c == code {
			return Result{Status: StatusPass, Latency: latency, Note: note}
		}
	}
	if notFoundSkips && code == http.StatusNotFound {
		return Result{Status: StatusSkip, Latency: latency, Note: note + " (feature disabled)"}
	}
	return Result{Status: StatusFail, Latency: latency, Note: note}
}

// do sends a JSON request and decodes the response into out when it is non-nil.
func (r *Runner) do(ctx context.Context, method, path string, body any, auth bool, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("X-User-ID", r.cfg.UserID)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
