package submissionmanager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGate_Check(t *testing.T) {
	t.Parallel()

	g := NewGate(15, 100)

	tests := []struct {
		name       string
		ticks      uint32
		size       int
		wantReason string
	}{
		{"within limits", 14, 99, ""},
		{"zero values", 0, 0, ""},
		{"ticks at limit", 15, 10, "ticks number exceeds 15"},
		{"ticks over limit", 4000000000, 10, "ticks number exceeds 15"},
		{"size at limit", 1, 100, "file length exceeds 100"},
		{"size over limit", 1, 5000, "file length exceeds 100"},
		{"ticks checked first", 20, 5000, "ticks number exceeds 15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := g.Check(tt.ticks, tt.size)
			if tt.wantReason == "" {
				require.NoError(t, err)
				return
			}

			var rejected *AdmissionRejected
			require.True(t, errors.As(err, &rejected))
			require.Equal(t, tt.wantReason, rejected.Reason)
		})
	}
}
