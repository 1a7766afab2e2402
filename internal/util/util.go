package util

import (
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SourceFile     = "input.s"
	ObjectFile     = "output.o"
	ExecutableFile = "output.elf"
	TranscriptFile = "transcript.json"
	ResultFile     = "result.json"
)

func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetSubmissionDir is the working area of a single submission.
func GetSubmissionDir(root, id string) string {
	return filepath.Join(root, id)
}

func GetResultPath(root, id string) string {
	return filepath.Join(root, id, ResultFile)
}

func GetResultObjectKey(id string) string {
	return fmt.Sprintf("submissions/%s/%s", id, ResultFile)
}

func GetSubmissionKey(id string) string {
	return fmt.Sprintf("submission:%s", id)
}

func GetUserSubmissionsKey(userID int64) string {
	return fmt.Sprintf("user_submissions:%d", userID)
}
