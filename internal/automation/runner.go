// Package automation runs the external automation script and decodes its JSON output.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/metrics"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var execCommandContext = exec.CommandContext

// containerVenv is where the deployment image installs its virtualenv.
var containerVenv = "/app/venv/bin/python3"

const fallbackInterpreter = "python3"

// ErrTimeout is wrapped by the error returned when a run exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

var uploadVerbs = map[string]bool{
	"upload":         true,
	"upload-channel": true,
	"upload-all":     true,
}

// ScriptError reports a run that did not exit cleanly.
type ScriptError struct {
	Verb     string
	ExitCode int
	Message  string
	Err      error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// ParseError reports output that was not a JSON document.
type ParseError struct {
	Verb   string
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s output: %v", e.Verb, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Runner invokes automation.py verbs.
type Runner struct {
	pythonDir     string
	script        string
	pythonBin     string
	timeout       time.Duration
	uploadTimeout time.Duration
	group         singleflight.Group
	log           *zap.Logger
}

// NewRunner creates a Runner rooted at cfg.PythonDir.
func NewRunner(cfg config.AutomationConfig) *Runner {
	dir := cfg.PythonDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	return &Runner{
		pythonDir:     dir,
		script:        cfg.Script,
		pythonBin:     cfg.PythonBin,
		timeout:       cfg.Timeout,
		uploadTimeout: cfg.UploadTimeout,
		log:           logger.Named("automation"),
	}
}

// Interpreter returns the python binary a run would use. Resolved on every call
// so a virtualenv created after startup is picked up.
func (r *Runner) Interpreter() string {
	if r.pythonBin != "" {
		return r.pythonBin
	}

	for _, candidate := range []string{
		filepath.Join(r.pythonDir, "venv", "bin", "python3"),
		containerVenv,
	} {
		if fileExists(candidate) {
			return candidate
		}
	}

	return fallbackInterpreter
}

// ScriptPath is the absolute path of automation.py.
func (r *Runner) ScriptPath() string {
	return filepath.Join(r.pythonDir, r.script)
}

// ScriptExists reports whether the script is present on disk.
func (r *Runner) ScriptExists() bool {
	return fileExists(r.ScriptPath())
}

// Run executes a verb and returns the last non-empty stdout line as raw JSON.
func (r *Runner) Run(ctx context.Context, verb string, args ...string) (json.RawMessage, error) {
	timeout := r.timeout
	if uploadVerbs[verb] {
		timeout = r.uploadTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append([]string{r.ScriptPath(), verb}, args...)
	cmd := execCommandContext(ctx, r.Interpreter(), argv...)
	cmd.Dir = r.pythonDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	metrics.ScriptDuration.WithLabelValues(verb).Observe(elapsed.Seconds())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.record(verb, metrics.OutcomeTimeout)
		r.log.Error("Automation script timed out",
			zap.String("verb", verb),
			zap.Duration("timeout", timeout),
		)
		return nil, &ScriptError{Verb: verb, ExitCode: -1, Message: ErrTimeout.Error(), Err: ErrTimeout}
	}

	if err != nil {
		r.record(verb, metrics.OutcomeFailure)
		return nil, r.failure(verb, err, stdout.String(), stderr.String())
	}

	if stderr.Len() > 0 {
		r.log.Debug("Automation script stderr",
			zap.String("verb", verb),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
	}

	raw, perr := lastJSONLine(stdout.String())
	if perr != nil {
		r.record(verb, metrics.OutcomeParse)
		r.log.Error("Automation script returned unparseable output",
			zap.String("verb", verb),
			zap.Error(perr),
		)
		return nil, &ParseError{Verb: verb, Output: stdout.String(), Err: perr}
	}

	r.record(verb, metrics.OutcomeSuccess)
	r.log.Info("Automation script completed",
		zap.String("verb", verb),
		zap.Duration("elapsed", elapsed),
	)

	return raw, nil
}

// RunInto runs a verb and decodes its output into out.
func (r *Runner) RunInto(ctx context.Context, out interface{}, verb string, args ...string) error {
	raw, err := r.Run(ctx, verb, args...)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Verb: verb, Output: string(raw), Err: err}
	}

	return nil
}

// RunShared is Run with concurrent identical invocations collapsed into one
// process. shared reports whether the result came from another caller's run.
// The process is detached from ctx so one caller leaving does not fail the
// others; the verb timeout still bounds it. A caller whose ctx ends stops
// waiting with ctx.Err().
func (r *Runner) RunShared(ctx context.Context, verb string, args ...string) (raw json.RawMessage, shared bool, err error) {
	key := strings.Join(append([]string{verb}, args...), "\x00")
	runCtx := context.WithoutCancel(ctx)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.Run(runCtx, verb, args...)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		if res.Shared {
			r.log.Info("Joined in-flight automation run", zap.String("verb", verb))
		}
		return res.Val.(json.RawMessage), res.Shared, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (r *Runner) failure(verb string, err error, stdout, stderr string) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		r.log.Error("Failed to start automation script",
			zap.String("verb", verb),
			zap.String("interpreter", r.Interpreter()),
			zap.Error(err),
		)
		return &ScriptError{Verb: verb, ExitCode: -1, Message: fmt.Sprintf("failed to run automation script: %v", err), Err: err}
	}

	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = strings.TrimSpace(stdout)
	}
	if msg == "" {
		msg = exitErr.Error()
	}

	r.log.Error("Automation script failed",
		zap.String("verb", verb),
		zap.Int("exit_code", exitErr.ExitCode()),
		zap.String("message", msg),
	)

	return &ScriptError{Verb: verb, ExitCode: exitErr.ExitCode(), Message: msg, Err: err}
}

func (r *Runner) record(verb, outcome string) {
	metrics.ScriptInvocations.WithLabelValues(verb, outcome).Inc()
}

func lastJSONLine(out string) (json.RawMessage, error) {
	out = strings.TrimSpace(out)
	if out != "" && json.Valid([]byte(out)) {
		return json.RawMessage(out), nil
	}

	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("last output line is not JSON: %q", truncate(line, 200))
		}
		return json.RawMessage(line), nil
	}
	return nil, errors.New("no output")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
