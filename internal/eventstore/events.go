package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names.
const (
	TypeRunStarted    = "RunStarted"
	TypeFileBuilt     = "FileBuilt"
	TypeFileSkipped   = "FileSkipped"
	TypePluginWarning = "PluginWarning"
	TypeRunCompleted  = "RunCompleted"
)

// RunStartedMeta describes the configuration a run was started with.
type RunStartedMeta struct {
	Plugins   []string `json:"plugins"`
	Workers   int      `json:"workers"`
	InputGlob string   `json:"input_glob"`
	OutputDir string   `json:"output_dir"`
	Version   string   `json:"version,omitempty"`
}

// FileResult describes one built or skipped source file.
type FileResult struct {
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// PluginWarningData describes a recoverable plugin failure.
type PluginWarningData struct {
	Hook     string `json:"hook"`
	Plugin   string `json:"plugin"`
	File     string `json:"file,omitempty"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// RunCompletedData is the final report of a run.
type RunCompletedData struct {
	Status   string        `json:"status"`
	Files    int           `json:"files"`
	Built    int           `json:"built"`
	Skipped  int           `json:"skipped"`
	Warnings int           `json:"warnings"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

func newEvent(runID, eventType string, data any) (*BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMarshalPayloadFailed, eventType, err)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, meta RunStartedMeta) (*BaseEvent, error) {
	return newEvent(runID, TypeRunStarted, meta)
}

// NewFileBuilt creates a FileBuilt event.
func NewFileBuilt(runID, input, output string, duration time.Duration) (*BaseEvent, error) {
	return newEvent(runID, TypeFileBuilt, FileResult{Input: input, Output: output, Duration: duration})
}

// NewFileSkipped creates a FileSkipped event.
func NewFileSkipped(runID, input, reason string) (*BaseEvent, error) {
	return newEvent(runID, TypeFileSkipped, FileResult{Input: input, Reason: reason})
}

// NewPluginWarning creates a PluginWarning event.
func NewPluginWarning(runID string, data PluginWarningData) (*BaseEvent, error) {
	return newEvent(runID, TypePluginWarning, data)
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, data RunCompletedData) (*BaseEvent, error) {
	return newEvent(runID, TypeRunCompleted, data)
}
