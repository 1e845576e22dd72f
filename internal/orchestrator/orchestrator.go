// Package orchestrator holds the scheduled and event-triggered upload
// functions and runs them.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/yt-automation/shorts-dashboard-go/internal/metrics"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// EventUploadRequested triggers the manual upload function.
const EventUploadRequested = "youtube/upload.requested"

// Function ids.
const (
	FunctionMorningUpload   = "morning-upload"
	FunctionAfternoonUpload = "afternoon-upload"
	FunctionEveningUpload   = "evening-upload"
	FunctionManualUpload    = "manual-youtube-upload"
	FunctionDailyUpload     = "daily-youtube-upload"
)

// Source labels uploads started by a function run.
const Source = "orchestrator"

// nextRunCount is how many upcoming runs introspection reports per cron function.
const nextRunCount = 3

var (
	// ErrFunctionNotFound is returned when no registered function matches.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrInvalidEvent is returned for an event the function cannot accept.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrNoUploader is returned when invoking a registry built without an uploader.
	ErrNoUploader = errors.New("registry has no uploader")
)

// Trigger is either a cron expression (UTC) or an event name.
type Trigger struct {
	Cron  string `json:"cron,omitempty"`
	Event string `json:"event,omitempty"`
}

// Function is one registered upload function. Cron functions run Request;
// event functions take their request from the event data.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Function struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Trigger Trigger              `json:"trigger"`
	Request models.UploadRequest `json:"-"`

	schedule cron.Schedule
}

// Action names the script verb the function ends up running.
func (f *Function) Action() string {
	switch {
	case f.Trigger.Event != "":
		return "upload (from event data)"
	case f.Request.UploadAll:
		return "upload-all"
	case f.Request.ChannelID != "":
		return "upload-channel"
	default:
		return "upload"
	}
}

// Event is an inbound orchestration event.
type Event struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// RunResult describes one function run.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RunResult struct {
	RunID      string               `json:"run_id"`
	FunctionID string               `json:"function_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Result     *models.UploadResult `json:"result,omitempty"`
}

// Uploader runs an upload cycle. *service.UploadService implements it.
type Uploader interface {
	Upload(ctx context.Context, req models.UploadRequest, source, runID string) (*models.UploadResult, error)
}

// DefaultFunctions returns the upload schedule: 08:00, 13:00 and 20:00 IST,
// the manual trigger, and optionally the legacy single daily upload.
func DefaultFunctions(legacyDaily bool) []*Function {
	fns := []*Function{
		{
			ID:      FunctionMorningUpload,
			Name:    "Morning Upload (8 AM IST)",
			Trigger: Trigger{Cron: "30 2 * * *"},
			Request: models.UploadRequest{UploadAll: true},
		},
		{
			ID:      FunctionAfternoonUpload,
			Name:    "Afternoon Upload (1 PM IST)",
			Trigger: Trigger{Cron: "30 7 * * *"},
			Request: models.UploadRequest{UploadAll: true},
		},
		{
			ID:      FunctionEveningUpload,
			Name:    "Evening Upload (8 PM IST)",
			Trigger: Trigger{Cron: "30 14 * * *"},
			Request: models.UploadRequest{UploadAll: true},
		},
		{
			ID:      FunctionManualUpload,
			Name:    "Manual YouTube Upload",
			Trigger: Trigger{Event: EventUploadRequested},
		},
	}

	if legacyDaily {
		fns = append(fns, &Function{
			ID:      FunctionDailyUpload,
			Name:    "Daily YouTube Upload (6 PM IST)",
			Trigger: Trigger{Cron: "30 12 * * *"},
		})
	}

	return fns
}

// Registry validates and runs a fixed set of functions.
type Registry struct {
	appID     string
	functions []*Function
	byID      map[string]*Function
	uploader  Uploader
	now       func() time.Time
	log       *zap.Logger

	mu           sync.RWMutex
	registeredAt time.Time
}

// NewRegistry validates every function. Cron expressions are standard five
// field specs evaluated in UTC. uploader may be nil for a registry that only
// describes or schedules functions.
func NewRegistry(appID string, uploader Uploader, functions []*Function) (*Registry, error) {
	r := &Registry{
		appID:    appID,
		byID:     make(map[string]*Function, len(functions)),
		uploader: uploader,
		now:      time.Now,
		log:      logger.Named("orchestrator"),
	}

	for _, fn := range functions {
		if fn.ID == "" {
			return nil, errors.New("function without id")
		}
		if _, dup := r.byID[fn.ID]; dup {
			return nil, fmt.Errorf("duplicate function id %q", fn.ID)
		}

		switch {
		case fn.Trigger.Cron != "" && fn.Trigger.Event != "":
			return nil, fmt.Errorf("function %q has both cron and event triggers", fn.ID)
		case fn.Trigger.Cron != "":
			schedule, err := cron.ParseStandard(fn.Trigger.Cron)
			if err != nil {
				return nil, fmt.Errorf("function %q: invalid cron %q: %w", fn.ID, fn.Trigger.Cron, err)
			}
			fn.schedule = schedule
		case fn.Trigger.Event == "":
			return nil, fmt.Errorf("function %q has no trigger", fn.ID)
		}

		r.byID[fn.ID] = fn
		r.functions = append(r.functions, fn)
	}

	return r, nil
}

// AppID is the application id reported to callers.
func (r *Registry) AppID() string {
	return r.appID
}

// Functions returns the registered functions in registration order.
func (r *Registry) Functions() []*Function {
	return append([]*Function(nil), r.functions...)
}

// CronFunctions returns only the cron-triggered functions.
func (r *Registry) CronFunctions() []*Function {
	var out []*Function
	for _, fn := range r.functions {
		if fn.Trigger.Cron != "" {
			out = append(out, fn)
		}
	}
	return out
}

// Function looks up a function by id.
func (r *Registry) Function(id string) (*Function, bool) {
	fn, ok := r.byID[id]
	return fn, ok
}

// NextRuns returns the next n activation times of a cron function in UTC.
func (r *Registry) NextRuns(fn *Function, n int) []time.Time {
	if fn.schedule == nil {
		return nil
	}

	runs := make([]time.Time, 0, n)
	t := r.now().UTC()
	for i := 0; i < n; i++ {
		t = fn.schedule.Next(t)
		runs = append(runs, t)
	}
	return runs
}

// FunctionInfo is the introspection view of one function.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type FunctionInfo struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Triggers []Trigger   `json:"triggers"`
	Action   string      `json:"action"`
	NextRuns []time.Time `json:"next_runs,omitempty"`
}

// Introspection is returned by GET on the orchestration endpoint.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Introspection struct {
	AppID         string         `json:"app_id"`
	FunctionCount int            `json:"function_count"`
	Functions     []FunctionInfo `json:"functions"`
	RegisteredAt  *time.Time     `json:"registered_at,omitempty"`
	Now           time.Time      `json:"now"`
}

// Describe reports every function with its upcoming runs.
func (r *Registry) Describe() *Introspection {
	out := &Introspection{
		AppID:         r.appID,
		FunctionCount: len(r.functions),
		Functions:     make([]FunctionInfo, 0, len(r.functions)),
		Now:           r.now().UTC(),
	}

	for _, fn := range r.functions {
		out.Functions = append(out.Functions, FunctionInfo{
			ID:       fn.ID,
			Name:     fn.Name,
			Triggers: []Trigger{fn.Trigger},
			Action:   fn.Action(),
			NextRuns: r.NextRuns(fn, nextRunCount),
		})
	}

	r.mu.RLock()
	if !r.registeredAt.IsZero() {
		at := r.registeredAt
		out.RegisteredAt = &at
	}
	r.mu.RUnlock()

	return out
}

// SyncResponse is returned by PUT on the orchestration endpoint.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SyncResponse struct {
	AppID        string         `json:"app_id"`
	Framework    string         `json:"framework"`
	Functions    []FunctionInfo `json:"functions"`
	RegisteredAt time.Time      `json:"registered_at"`
	Modified     bool           `json:"modified"`
}

// Sync marks the functions as registered and returns their configuration.
func (r *Registry) Sync() *SyncResponse {
	r.mu.Lock()
	modified := r.registeredAt.IsZero()
	r.registeredAt = r.now().UTC()
	at := r.registeredAt
	r.mu.Unlock()

	desc := r.Describe()

	r.log.Info("Functions synced",
		zap.String("appId", r.appID),
		zap.Int("functions", len(desc.Functions)),
	)

	return &SyncResponse{
		AppID:        r.appID,
		Framework:    "gin",
		Functions:    desc.Functions,
		RegisteredAt: at,
		Modified:     modified,
	}
}

// Resolve picks the function for an invocation: by id when given, otherwise
// by matching the event name against event triggers.
func (r *Registry) Resolve(functionID string, event *Event) (*Function, error) {
	if functionID != "" {
		fn, ok := r.byID[functionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, functionID)
		}
		if fn.Trigger.Event != "" && event != nil && event.Name != "" && event.Name != fn.Trigger.Event {
			return nil, fmt.Errorf("%w: function %s expects %s, got %s", ErrInvalidEvent, fn.ID, fn.Trigger.Event, event.Name)
		}
		return fn, nil
	}

	if event == nil || event.Name == "" {
		return nil, fmt.Errorf("%w: function id or event name is required", ErrInvalidEvent)
	}

	matches := make([]*Function, 0, 1)
	for _, fn := range r.functions {
		if fn.Trigger.Event == event.Name {
			matches = append(matches, fn)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no function handles event %s", ErrFunctionNotFound, event.Name)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches[0], nil
}

// Invoke runs a function once. runID may be empty, in which case one is generated.
func (r *Registry) Invoke(ctx context.Context, functionID, runID string, event *Event) (*RunResult, error) {
	fn, err := r.Resolve(functionID, event)
	if err != nil {
		return nil, err
	}

	req := fn.Request
	if fn.Trigger.Event != "" {
		req, err = requestFromEvent(event)
		if err != nil {
			return nil, err
		}
	}

	if r.uploader == nil {
		return nil, ErrNoUploader
	}

	if runID == "" {
		runID = uuid.NewString()
	}
	run := &RunResult{
		RunID:      runID,
		FunctionID: fn.ID,
		StartedAt:  r.now().UTC(),
	}

	log := r.log.With(
		zap.String("functionId", fn.ID),
		zap.String("runId", runID),
	)
	log.Info("Function run started",
		zap.Bool("uploadAll", req.UploadAll),
		zap.String("channelId", req.ChannelID),
	)

	result, err := r.uploader.Upload(ctx, req, Source, runID)
	run.FinishedAt = r.now().UTC()
	if err != nil {
		metrics.OrchestratorRuns.WithLabelValues(fn.ID, metrics.OutcomeFailure).Inc()
		log.Error("Function run failed", zap.Error(err))
		return run, err
	}

	run.Result = result
	metrics.OrchestratorRuns.WithLabelValues(fn.ID, metrics.OutcomeSuccess).Inc()
	log.Info("Function run finished",
		zap.Bool("success", result.Success),
		zap.Int("uploaded", len(result.Completed())),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)

	return run, nil
}

func requestFromEvent(event *Event) (models.UploadRequest, error) {
	var req models.UploadRequest
	if event == nil {
		return req, nil
	}

	data := bytes.TrimSpace(event.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return req, nil
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return req, nil
}
