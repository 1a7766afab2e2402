package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Result is the normalized document stored for every finished submission.
// It serializes flat: the simulator's own fields plus id, ticks and code,
// and error/errorKind when a stage failed.
type Result struct {
	ID     uuid.UUID
	Ticks  uint32
	Code   []byte
	Report map[string]json.RawMessage
	Err    *StageError
}

func (r Result) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(r.Report)+5)
	for k, v := range r.Report {
		doc[k] = v
	}
	doc["id"] = r.ID.String()
	doc["ticks"] = r.Ticks
	doc["code"] = string(r.Code)
	if r.Err != nil {
		doc["error"] = r.Err.Message
		doc["errorKind"] = string(r.Err.Kind)
	}
	return json.Marshal(doc)
}

// parseReport accepts only a JSON object.
func parseReport(stdout []byte) (map[string]json.RawMessage, error) {
	var report map[string]json.RawMessage
	if err := json.Unmarshal(stdout, &report); err != nil {
		return nil, fmt.Errorf("parse simulation output: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("parse simulation output: expected a JSON object, got null")
	}
	return report, nil
}
