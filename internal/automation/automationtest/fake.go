// Package automationtest provides a scripted stand-in for the automation runner.
package automationtest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"golang.org/x/sync/singleflight"
)

var errNotJSON = errors.New("output is not JSON")

// Reply is the canned result of one verb.
type Reply struct {
	Output string
	Err    error
	Delay  time.Duration
}

// Call records one invocation.
type Call struct {
	Verb string
	Args []string
}

// Runner answers verbs from a table of replies. Unknown verbs fail the way
// the script does.
type Runner struct {
	mu      sync.Mutex
	replies map[string]Reply
	calls   []Call
	group   singleflight.Group
}

// NewRunner returns a Runner with no replies.
func NewRunner() *Runner {
	return &Runner{replies: make(map[string]Reply)}
}

// On makes verb print output.
func (r *Runner) On(verb, output string) *Runner {
	return r.OnReply(verb, Reply{Output: output})
}

// Fail makes verb return err.
func (r *Runner) Fail(verb string, err error) *Runner {
	return r.OnReply(verb, Reply{Err: err})
}

// OnReply sets the full reply of verb.
func (r *Runner) OnReply(verb string, reply Reply) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[verb] = reply
	return r
}

// Calls returns every invocation so far.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns how many times verb ran.
func (r *Runner) CallCount(verb string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Verb == verb {
			n++
		}
	}
	return n
}

// LastCall returns the most recent invocation of verb.
func (r *Runner) LastCall(verb string) (Call, bool) {
	calls := r.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Verb == verb {
			return calls[i], true
		}
	}
	return Call{}, false
}

func (r *Runner) Run(ctx context.Context, verb string, args ...string) (json.RawMessage, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Verb: verb, Args: append([]string(nil), args...)})
	reply, ok := r.replies[verb]
	r.mu.Unlock()

	if !ok {
		return nil, &automation.ScriptError{Verb: verb, ExitCode: 1, Message: "Unknown command: " + verb}
	}

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, &automation.ScriptError{Verb: verb, ExitCode: -1, Message: automation.ErrTimeout.Error(), Err: automation.ErrTimeout}
		}
	}

	if reply.Err != nil {
		return nil, reply.Err
	}
	if !json.Valid([]byte(reply.Output)) {
		return nil, &automation.ParseError{Verb: verb, Output: reply.Output, Err: errNotJSON}
	}
	return json.RawMessage(reply.Output), nil
}

func (r *Runner) RunInto(ctx context.Context, out interface{}, verb string, args ...string) error {
	raw, err := r.Run(ctx, verb, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &automation.ParseError{Verb: verb, Output: string(raw), Err: err}
	}
	return nil
}

func (r *Runner) RunShared(ctx context.Context, verb string, args ...string) (json.RawMessage, bool, error) {
	key := strings.Join(append([]string{verb}, args...), "\x00")
	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.Run(context.WithoutCancel(ctx), verb, args...)
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(json.RawMessage), shared, nil
}
