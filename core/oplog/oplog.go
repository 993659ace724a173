// Package oplog appends per-invocation operational events to a local
// JSONL file. Recording is opt-in via the APPDEPOT_OPERATIONAL_LOG
// environment variable and never blocks or fails a command.
package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	coreerrors "github.com/davidahmann/appdepot/core/errors"
)

const (
	eventSchemaID    = "appdepot.operational_event"
	eventSchemaV1    = "1.0.0"
	maxEventLineSize = 1024 * 1024
)

type EnvContext struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// Event records one command phase. A start event carries exit_code 0 and
// error_category "none"; the end event carries the real outcome.
type Event struct {
	SchemaID        string     `json:"schema_id"`
	SchemaVersion   string     `json:"schema_version"`
	CreatedAt       time.Time  `json:"created_at"`
	ProducerVersion string     `json:"producer_version"`
	CorrelationID   string     `json:"correlation_id"`
	Command         string     `json:"command"`
	Phase           string     `json:"phase"`
	ExitCode        int        `json:"exit_code"`
	ErrorCategory   string     `json:"error_category"`
	Retryable       bool       `json:"retryable"`
	ElapsedMS       int64      `json:"elapsed_ms"`
	Environment     EnvContext `json:"environment"`
}

func NewStartEvent(command, correlationID, producerVersion string, now time.Time) Event {
	return newEvent(command, correlationID, producerVersion, "start", 0, "none", false, 0, now)
}

func NewEndEvent(
	command string,
	correlationID string,
	producerVersion string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsed time.Duration,
	now time.Time,
) Event {
	elapsedMS := elapsed.Milliseconds()
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	return newEvent(command, correlationID, producerVersion, "end", exitCode, errorCategory, retryable, elapsedMS, now)
}

// AppendEvent validates and appends one event as a single JSONL line,
// creating the log's parent directory when needed.
func AppendEvent(path string, event Event) error {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return fmt.Errorf("operational log path is required")
	}
	normalized, err := normalizeEvent(event)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal operational event: %w", err)
	}
	dir := filepath.Dir(trimmedPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create operational log directory: %w", err)
		}
	}
	// #nosec G304 -- operational log path is explicit local user input.
	file, err := os.OpenFile(trimmedPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open operational log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write operational log: %w", err)
	}
	return nil
}

// LoadEvents reads back a JSONL operational log, skipping blank lines and
// rejecting any line that fails event validation.
func LoadEvents(path string) ([]Event, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("operational log path is required")
	}
	// #nosec G304 -- operational log path is explicit local user input.
	file, err := os.Open(trimmedPath)
	if err != nil {
		return nil, fmt.Errorf("open operational log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	events := make([]Event, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("parse operational log line %d: %w", line, err)
		}
		normalized, err := normalizeEvent(event)
		if err != nil {
			return nil, fmt.Errorf("validate operational log line %d: %w", line, err)
		}
		events = append(events, normalized)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan operational log: %w", err)
	}
	return events, nil
}

func normalizeEvent(event Event) (Event, error) {
	if strings.TrimSpace(event.SchemaID) != eventSchemaID {
		return Event{}, fmt.Errorf("invalid schema_id %q", event.SchemaID)
	}
	if strings.TrimSpace(event.SchemaVersion) != eventSchemaV1 {
		return Event{}, fmt.Errorf("invalid schema_version %q", event.SchemaVersion)
	}
	if event.CreatedAt.IsZero() {
		return Event{}, fmt.Errorf("created_at is required")
	}
	if strings.TrimSpace(event.ProducerVersion) == "" {
		return Event{}, fmt.Errorf("producer_version is required")
	}
	if strings.TrimSpace(event.CorrelationID) == "" {
		return Event{}, fmt.Errorf("correlation_id is required")
	}
	if strings.TrimSpace(event.Command) == "" {
		return Event{}, fmt.Errorf("command is required")
	}
	phase := strings.ToLower(strings.TrimSpace(event.Phase))
	if phase != "start" && phase != "end" {
		return Event{}, fmt.Errorf("phase must be start or end")
	}
	if event.ExitCode < 0 || event.ExitCode > 255 {
		return Event{}, fmt.Errorf("exit_code out of range")
	}
	if event.ElapsedMS < 0 {
		return Event{}, fmt.Errorf("elapsed_ms out of range")
	}
	category := strings.ToLower(strings.TrimSpace(event.ErrorCategory))
	if category == "" {
		return Event{}, fmt.Errorf("error_category is required")
	}
	if category != "none" {
		switch coreerrors.Category(category) {
		case coreerrors.CategoryInvalidInput,
			coreerrors.CategoryIOFailure,
			coreerrors.CategoryParseFailure,
			coreerrors.CategoryKeyInvalid,
			coreerrors.CategorySchemaInvalid,
			coreerrors.CategoryVerification,
			coreerrors.CategoryRegistryStructure,
			coreerrors.CategoryInternalFailure:
		default:
			return Event{}, fmt.Errorf("unsupported error_category %q", event.ErrorCategory)
		}
	}
	if strings.TrimSpace(event.Environment.OS) == "" || strings.TrimSpace(event.Environment.Arch) == "" {
		return Event{}, fmt.Errorf("environment os/arch are required")
	}

	return Event{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaV1,
		CreatedAt:       event.CreatedAt.UTC(),
		ProducerVersion: strings.TrimSpace(event.ProducerVersion),
		CorrelationID:   strings.TrimSpace(event.CorrelationID),
		Command:         strings.TrimSpace(event.Command),
		Phase:           phase,
		ExitCode:        event.ExitCode,
		ErrorCategory:   category,
		Retryable:       event.Retryable,
		ElapsedMS:       event.ElapsedMS,
		Environment: EnvContext{
			OS:   strings.TrimSpace(event.Environment.OS),
			Arch: strings.TrimSpace(event.Environment.Arch),
		},
	}, nil
}

func newEvent(
	command string,
	correlationID string,
	producerVersion string,
	phase string,
	exitCode int,
	errorCategory string,
	retryable bool,
	elapsedMS int64,
	now time.Time,
) Event {
	createdAt := now.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	trimmedCommand := strings.TrimSpace(command)
	if trimmedCommand == "" {
		trimmedCommand = "unknown"
	}
	trimmedCorrelationID := strings.TrimSpace(correlationID)
	if trimmedCorrelationID == "" {
		trimmedCorrelationID = "unknown"
	}
	trimmedProducerVersion := strings.TrimSpace(producerVersion)
	if trimmedProducerVersion == "" {
		trimmedProducerVersion = "0.0.0-dev"
	}
	trimmedPhase := strings.ToLower(strings.TrimSpace(phase))
	if trimmedPhase == "" {
		trimmedPhase = "end"
	}
	trimmedCategory := strings.ToLower(strings.TrimSpace(errorCategory))
	if trimmedCategory == "" {
		trimmedCategory = "none"
	}
	return Event{
		SchemaID:        eventSchemaID,
		SchemaVersion:   eventSchemaV1,
		CreatedAt:       createdAt,
		ProducerVersion: trimmedProducerVersion,
		CorrelationID:   trimmedCorrelationID,
		Command:         trimmedCommand,
		Phase:           trimmedPhase,
		ExitCode:        exitCode,
		ErrorCategory:   trimmedCategory,
		Retryable:       retryable,
		ElapsedMS:       elapsedMS,
		Environment: EnvContext{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}
}
