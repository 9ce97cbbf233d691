package pipeline

import "errors"

// StageError classifies stage failures for outcome determination.
type StageError struct {
	// Stage names the failing stage: "ingestor", "parser", or "indexer".
	Stage string
	// Kind indicates the failure class.
	Kind StageErrorKind
	// Err is the underlying error.
	Err error
}

// StageErrorKind classifies stage errors.
type StageErrorKind int

const (
	// StageErrorInput indicates the input file could not be read.
	StageErrorInput StageErrorKind = iota
	// StageErrorStore indicates storage writes kept failing.
	StageErrorStore
	// StageErrorCanceled indicates context cancellation.
	StageErrorCanceled
)

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsInputError returns true if the error is an input read failure.
func IsInputError(err error) bool {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind == StageErrorInput
	}
	return false
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind == StageErrorCanceled
	}
	return false
}
