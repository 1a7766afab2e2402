package pipeline

import "fmt"

// Kind classifies why a submission did not produce a simulator report.
type Kind string

const (
	KindWorkingArea        Kind = "WorkingAreaError"
	KindCompilationFailed  Kind = "CompilationFailed"
	KindCompilationTimeout Kind = "CompilationTimeout"
	KindExecutionFailed    Kind = "ExecutionFailed"
	KindExecutionTimeout   Kind = "ExecutionTimeout"
	KindMalformedOutput    Kind = "MalformedOutput"
)

// StageError is a pipeline failure captured in the result document.
type StageError struct {
	Kind    Kind
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func stageErrorf(kind Kind, format string, args ...any) *StageError {
	return &StageError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
