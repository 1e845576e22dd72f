package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
)

type fakeInvoker struct {
	functionID string
	runID      string
	event      *orchestrator.Event
	run        *orchestrator.RunResult
	err        error
}

func (f *fakeInvoker) Invoke(ctx context.Context, functionID, runID string, event *orchestrator.Event) (*orchestrator.RunResult, error) {
	f.functionID, f.runID, f.event = functionID, runID, event
	if f.err != nil {
		return nil, f.err
	}
	if f.run != nil {
		return f.run, nil
	}
	return &orchestrator.RunResult{FunctionID: functionID, RunID: runID, Result: &models.UploadResult{Success: true}}, nil
}

type fakeRegistrar struct {
	specs map[string]*asynq.Task
	err   error
}

func (f *fakeRegistrar) Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.specs == nil {
		f.specs = make(map[string]*asynq.Task)
	}
	f.specs[cronspec] = task
	return "entry-" + cronspec, nil
}

type nopUploader struct{}

func (nopUploader) Upload(ctx context.Context, req models.UploadRequest, source, runID string) (*models.UploadResult, error) {
	return &models.UploadResult{Success: true}, nil
}

func TestNewRunPayload(t *testing.T) {
	_, err := NewRunPayload("", "", nil, "api")
	assert.Error(t, err)

	_, err = NewRunPayload("", "", &orchestrator.Event{}, "api")
	assert.Error(t, err)

	p, err := NewRunPayload("", "run-1", &orchestrator.Event{Name: orchestrator.EventUploadRequested, Data: json.RawMessage(`{"uploadAll":true}`)}, "api")
	require.NoError(t, err)

	data, err := p.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalRunPayload(data)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	require.NotNil(t, got.Event)
	assert.JSONEq(t, `{"uploadAll":true}`, string(got.Event.Data))

	_, err = UnmarshalRunPayload([]byte("{"))
	assert.Error(t, err)
}

func TestRunHandler_ProcessTask(t *testing.T) {
	inv := &fakeInvoker{}
	h := NewRunHandler(inv)

	p, err := NewRunPayload(orchestrator.FunctionMorningUpload, "run-7", nil, "schedule")
	require.NoError(t, err)
	data, err := p.Marshal()
	require.NoError(t, err)

	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeOrchestratorRun, data))
	require.NoError(t, err)
	assert.Equal(t, orchestrator.FunctionMorningUpload, inv.functionID)
	assert.Equal(t, "run-7", inv.runID)
	assert.Nil(t, inv.event)
}

func TestRunHandler_ProcessTaskErrors(t *testing.T) {
	data, err := (&RunPayload{FunctionID: "nope"}).Marshal()
	require.NoError(t, err)

	t.Run("bad payload skips retry", func(t *testing.T) {
		h := NewRunHandler(&fakeInvoker{})
		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeOrchestratorRun, []byte("not json")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("unknown function skips retry", func(t *testing.T) {
		h := NewRunHandler(&fakeInvoker{err: orchestrator.ErrFunctionNotFound})
		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeOrchestratorRun, data))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("upload failure is returned", func(t *testing.T) {
		boom := errors.New("script exited 1")
		h := NewRunHandler(&fakeInvoker{err: boom})
		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeOrchestratorRun, data))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestRegisterSchedules(t *testing.T) {
	registry, err := orchestrator.NewRegistry("app", nopUploader{}, orchestrator.DefaultFunctions(true))
	require.NoError(t, err)

	reg := &fakeRegistrar{}
	entries, err := RegisterSchedules(reg, registry)
	require.NoError(t, err)

	assert.Len(t, entries, 4)
	assert.Equal(t, "entry-30 2 * * *", entries[orchestrator.FunctionMorningUpload])
	assert.NotContains(t, entries, orchestrator.FunctionManualUpload)

	task := reg.specs["30 14 * * *"]
	require.NotNil(t, task)
	assert.Equal(t, TypeOrchestratorRun, task.Type())

	payload, err := UnmarshalRunPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, orchestrator.FunctionEveningUpload, payload.FunctionID)
	assert.Equal(t, "schedule", payload.Source)
}

func TestRegisterSchedules_Error(t *testing.T) {
	registry, err := orchestrator.NewRegistry("app", nopUploader{}, orchestrator.DefaultFunctions(false))
	require.NoError(t, err)

	_, err = RegisterSchedules(&fakeRegistrar{err: errors.New("redis down")}, registry)
	assert.Error(t, err)
}
