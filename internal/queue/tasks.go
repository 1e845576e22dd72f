package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
)

// Task types
const (
	TypeOrchestratorRun = "orchestrator:run"
)

// QueueDefault is the only queue the worker drains.
const QueueDefault = "default"

// RunPayload is the payload of an orchestrator run task.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RunPayload struct {
	FunctionID string              `json:"function_id,omitempty"`
	RunID      string              `json:"run_id,omitempty"`
	Event      *orchestrator.Event `json:"event,omitempty"`
	Source     string              `json:"source,omitempty"`
}

// NewRunPayload creates a run payload. Either functionID or an event name is required.
func NewRunPayload(functionID, runID string, event *orchestrator.Event, source string) (*RunPayload, error) {
	if functionID == "" && (event == nil || event.Name == "") {
		return nil, errors.New("function ID or event name is required")
	}

	return &RunPayload{
		FunctionID: functionID,
		RunID:      runID,
		Event:      event,
		Source:     source,
	}, nil
}

// Marshal serializes the payload to JSON
func (p *RunPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalRunPayload deserializes JSON to payload
func UnmarshalRunPayload(data []byte) (*RunPayload, error) {
	var payload RunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
