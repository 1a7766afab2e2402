package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestResult_MarshalJSON(t *testing.T) {
	id := uuid.MustParse("01890a5d-ac96-774b-bcce-b302099a8057")

	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name: "report fields are flattened",
			result: Result{
				ID:     id,
				Ticks:  5,
				Code:   []byte("nop"),
				Report: map[string]json.RawMessage{"pc": json.RawMessage(`"0x80000000"`), "regs": json.RawMessage(`[1,2]`)},
			},
			want: `{"code":"nop","id":"01890a5d-ac96-774b-bcce-b302099a8057","pc":"0x80000000","regs":[1,2],"ticks":5}`,
		},
		{
			name: "envelope wins over report keys",
			result: Result{
				ID:     id,
				Ticks:  5,
				Code:   []byte("nop"),
				Report: map[string]json.RawMessage{"id": json.RawMessage(`"other"`), "ticks": json.RawMessage(`99`)},
			},
			want: `{"code":"nop","id":"01890a5d-ac96-774b-bcce-b302099a8057","ticks":5}`,
		},
		{
			name: "failure carries error and kind",
			result: Result{
				ID:    id,
				Ticks: 1,
				Code:  []byte("bad"),
				Err:   &StageError{Kind: KindCompilationFailed, Message: "Assembler error"},
			},
			want: `{"code":"bad","error":"Assembler error","errorKind":"CompilationFailed","id":"01890a5d-ac96-774b-bcce-b302099a8057","ticks":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.result)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"object", `{"a":1}`, false},
		{"empty object", `{}`, false},
		{"array", `[1]`, true},
		{"null", `null`, true},
		{"number", `42`, true},
		{"garbage", `not json`, true},
		{"truncated", `{"a":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReport([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
