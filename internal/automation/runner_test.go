package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
)

// fakeScript swaps the process launcher for the test binary itself, which
// acts as automation.py through TestHelperProcess.
func fakeScript(t *testing.T, calls *int32) {
	t.Helper()

	original := execCommandContext
	t.Cleanup(func() { execCommandContext = original })

	execCommandContext = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner(config.AutomationConfig{
		PythonDir:     t.TempDir(),
		Script:        "automation.py",
		PythonBin:     "python3",
		Timeout:       5 * time.Second,
		UploadTimeout: 5 * time.Second,
	})
}

// TestHelperProcess is not a real test. It stands in for the automation script.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	// args: interpreter, script, verb, verb args...
	if len(args) < 3 {
		os.Exit(3)
	}
	verb, rest := args[2], args[3:]

	switch verb {
	case "stats":
		fmt.Println("Connecting to Google Drive...")
		fmt.Println(`{"total": 10, "uploaded": 4, "pending": 6}`)
	case "echo":
		out, _ := json.Marshal(map[string]interface{}{"script": args[1], "args": rest})
		fmt.Println(string(out))
	case "pretty":
		fmt.Println("{\n  \"success\": true\n}")
	case "fail":
		fmt.Fprintln(os.Stderr, "token expired")
		fmt.Println("partial")
		os.Exit(2)
	case "fail-stdout":
		fmt.Println("no credentials configured")
		os.Exit(1)
	case "garbage":
		fmt.Println("Traceback (most recent call last):")
	case "silent":
	case "sleep":
		time.Sleep(10 * time.Second)
	case "upload-all":
		time.Sleep(400 * time.Millisecond)
		fmt.Println(`{"success": true, "results": []}`)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", verb)
		os.Exit(1)
	}
	os.Exit(0)
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name      string
		verb      string
		args      []string
		wantJSON  string
		wantErr   bool
		checkErr  func(*testing.T, error)
		checkJSON func(*testing.T, json.RawMessage)
	}{
		{
			name:     "last line parsed after log output",
			verb:     "stats",
			wantJSON: `{"total": 10, "uploaded": 4, "pending": 6}`,
		},
		{
			name: "multi-line JSON document",
			verb: "pretty",
			checkJSON: func(t *testing.T, raw json.RawMessage) {
				var v map[string]bool
				require.NoError(t, json.Unmarshal(raw, &v))
				assert.True(t, v["success"])
			},
		},
		{
			name: "arguments passed as argv",
			verb: "echo",
			args: []string{"create", `{"channel_name":"Daily 'Shorts' & more"}`},
			checkJSON: func(t *testing.T, raw json.RawMessage) {
				var v struct {
					Script string   `json:"script"`
					Args   []string `json:"args"`
				}
				require.NoError(t, json.Unmarshal(raw, &v))
				assert.Equal(t, "automation.py", filepath.Base(v.Script))
				assert.Equal(t, []string{"create", `{"channel_name":"Daily 'Shorts' & more"}`}, v.Args)
			},
		},
		{
			name:    "non-zero exit uses stderr",
			verb:    "fail",
			wantErr: true,
			checkErr: func(t *testing.T, err error) {
				var se *ScriptError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, "token expired", se.Message)
				assert.Equal(t, 2, se.ExitCode)
			},
		},
		{
			name:    "non-zero exit falls back to stdout",
			verb:    "fail-stdout",
			wantErr: true,
			checkErr: func(t *testing.T, err error) {
				assert.EqualError(t, err, "no credentials configured")
			},
		},
		{
			name:    "unparseable output",
			verb:    "garbage",
			wantErr: true,
			checkErr: func(t *testing.T, err error) {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "garbage", pe.Verb)
			},
		},
		{
			name:    "empty output",
			verb:    "silent",
			wantErr: true,
			checkErr: func(t *testing.T, err error) {
				var pe *ParseError
				assert.ErrorAs(t, err, &pe)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeScript(t, nil)
			r := newTestRunner(t)

			raw, err := r.Run(context.Background(), tt.verb, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				if tt.checkErr != nil {
					tt.checkErr(t, err)
				}
				return
			}

			require.NoError(t, err)
			if tt.wantJSON != "" {
				assert.JSONEq(t, tt.wantJSON, string(raw))
			}
			if tt.checkJSON != nil {
				tt.checkJSON(t, raw)
			}
		})
	}
}

func TestRunner_Timeout(t *testing.T) {
	fakeScript(t, nil)
	r := newTestRunner(t)
	r.timeout = 200 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), "sleep")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.EqualError(t, err, "command timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_RunInto(t *testing.T) {
	fakeScript(t, nil)
	r := newTestRunner(t)

	var stats struct {
		Total    int `json:"total"`
		Uploaded int `json:"uploaded"`
		Pending  int `json:"pending"`
	}
	require.NoError(t, r.RunInto(context.Background(), &stats, "stats"))

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 4, stats.Uploaded)
	assert.Equal(t, 6, stats.Pending)
}

func TestRunner_RunSharedCoalesces(t *testing.T) {
	var calls int32
	fakeScript(t, &calls)
	r := newTestRunner(t)

	var (
		wg       sync.WaitGroup
		sharedN  int32
		start    = make(chan struct{})
		failures int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, shared, err := r.RunShared(context.Background(), "upload-all")
			if err != nil {
				atomic.AddInt32(&failures, 1)
			}
			if shared {
				atomic.AddInt32(&sharedN, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Zero(t, failures)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&sharedN))
}

func TestRunner_RunSharedOutlivesFirstCaller(t *testing.T) {
	var calls int32
	fakeScript(t, &calls)
	r := newTestRunner(t)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := r.RunShared(firstCtx, "upload-all")
		firstErr <- err
	}()

	// Let the first caller start the process before the second joins it.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, _, err := r.RunShared(context.Background(), "upload-all")
		second <- err
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	assert.NoError(t, <-second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRunner_Interpreter(t *testing.T) {
	originalVenv := containerVenv
	t.Cleanup(func() { containerVenv = originalVenv })

	touch := func(t *testing.T, path string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	}

	t.Run("configured binary wins", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "venv", "bin", "python3"))
		r := NewRunner(config.AutomationConfig{PythonDir: dir, PythonBin: "/usr/local/bin/python3.12"})
		assert.Equal(t, "/usr/local/bin/python3.12", r.Interpreter())
	})

	t.Run("local virtualenv", func(t *testing.T) {
		dir := t.TempDir()
		venv := filepath.Join(dir, "venv", "bin", "python3")
		touch(t, venv)
		containerVenv = filepath.Join(t.TempDir(), "missing")
		r := NewRunner(config.AutomationConfig{PythonDir: dir})
		assert.Equal(t, venv, r.Interpreter())
	})

	t.Run("container virtualenv", func(t *testing.T) {
		containerVenv = filepath.Join(t.TempDir(), "app", "venv", "bin", "python3")
		touch(t, containerVenv)
		r := NewRunner(config.AutomationConfig{PythonDir: t.TempDir()})
		assert.Equal(t, containerVenv, r.Interpreter())
	})

	t.Run("system python", func(t *testing.T) {
		containerVenv = filepath.Join(t.TempDir(), "missing")
		r := NewRunner(config.AutomationConfig{PythonDir: t.TempDir()})
		assert.Equal(t, "python3", r.Interpreter())
	})
}

func TestRunner_ScriptExists(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(config.AutomationConfig{PythonDir: dir, Script: "automation.py"})
	assert.False(t, r.ScriptExists())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "automation.py"), []byte("print('{}')\n"), 0o644))
	assert.True(t, r.ScriptExists())
	assert.Equal(t, filepath.Join(dir, "automation.py"), r.ScriptPath())
}
