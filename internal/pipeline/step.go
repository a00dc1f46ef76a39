package pipeline

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Step is one stage of processing an uploaded file. Steps run in declaration
// order and never go back.
type Step int

const (
	StepMoveFile Step = iota
	StepLoadFile
	StepValidateToken
	StepValidateRecords
	StepForwardData
	StepDone
)

var stepLabels = map[Step]string{
	StepMoveFile:        "0 - move file",
	StepLoadFile:        "1 - load file",
	StepValidateToken:   "2 - validate upload token",
	StepValidateRecords: "3 - post-process records",
	StepForwardData:     "4 - forward data",
	StepDone:            "done",
}

// String returns the label stored in the audit log.
func (s Step) String() string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Failure kinds. A *StepError matches the kind of the step it failed in.
var (
	ErrFileRelocation = errors.New("file relocation failed")
	ErrLoad           = errors.New("load failed")
	ErrToken          = errors.New("token validation failed")
	ErrRecords        = errors.New("record processing failed")
	ErrForward        = errors.New("forward failed")
)

func (s Step) kind() error {
	switch s {
	case StepMoveFile:
		return ErrFileRelocation
	case StepLoadFile:
		return ErrLoad
	case StepValidateToken:
		return ErrToken
	case StepValidateRecords:
		return ErrRecords
	case StepForwardData:
		return ErrForward
	default:
		return nil
	}
}

// StepError attributes a failure to the step that was running.
type StepError struct {
	Step Step
	Err  error
}

func failAt(step Step, err error) *StepError {
	return &StepError{Step: step, Err: pkgerrors.WithStack(err)}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Is reports whether target is the failure kind of e's step.
func (e *StepError) Is(target error) bool {
	kind := e.Step.kind()
	return kind != nil && target == kind
}

// Message is the underlying error message without the step prefix.
func (e *StepError) Message() string {
	return e.Err.Error()
}

// StackTrace renders the error with the stack captured at failure time.
func (e *StepError) StackTrace() string {
	return fmt.Sprintf("%+v", e.Err)
}
