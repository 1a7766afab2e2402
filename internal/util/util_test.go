package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSubmissionDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		root string
		id   string
		want string
	}{
		{"relative root", "submission", "abc", "submission/abc"},
		{"absolute root", "/var/rvsim", "abc", "/var/rvsim/abc"},
		{"trailing slash", "/var/rvsim/", "abc", "/var/rvsim/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, GetSubmissionDir(tt.root, tt.id))
		})
	}
}

func TestGetResultPath(t *testing.T) {
	t.Parallel()
	require.Equal(t, "submission/abc/result.json", GetResultPath("submission", "abc"))
}

func TestGetResultObjectKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "submissions/abc/result.json", GetResultObjectKey("abc"))
}

func TestGetSubmissionKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "submission:abc", GetSubmissionKey("abc"))
}

func TestGetUserSubmissionsKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "user_submissions:42", GetUserSubmissionsKey(42))
}
