package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInactiveRule is returned when expansion is requested for a deactivated rule.
	ErrInactiveRule = errors.New("application: rule is inactive")
)

// ValidationError captures field level validation issues of a stored rule.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// Stage names the step of materialization that failed.
type Stage string

const (
	StageGenerate     Stage = "generate"
	StageLookup       Stage = "lookup"
	StageCreateEvent  Stage = "create_event"
	StageCreateConfig Stage = "create_meeting_config"
)

// MaterializeError reports a fatal failure while materializing one occurrence.
// Occurrences created before the failure remain persisted.
type MaterializeError struct {
	RuleID string
	Start  time.Time
	Stage  Stage
	Err    error
}

func (e *MaterializeError) Error() string {
	if e.Start.IsZero() {
		return fmt.Sprintf("application: materialize rule %s: %s: %v", e.RuleID, e.Stage, e.Err)
	}
	return fmt.Sprintf("application: materialize rule %s at %s: %s: %v", e.RuleID, e.Start.Format(time.RFC3339), e.Stage, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}
