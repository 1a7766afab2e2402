package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type dummyService struct {
	id  string
	err error
}

func (s dummyService) Name() string { return s.id }

func (s dummyService) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestGroup_Run(t *testing.T) {
	tests := []struct {
		name     string
		group    Group
		timeout  time.Duration
		wantErrs []string
	}{
		{
			name: "one error stops the group",
			group: Group{
				dummyService{id: "0"},
				dummyService{id: "1", err: errors.New("cannot bind listener")},
				dummyService{id: "2"},
			},
			wantErrs: []string{"1: cannot bind listener"},
		},
		{
			name: "errors are accumulated",
			group: Group{
				dummyService{id: "0"},
				dummyService{id: "1", err: errors.New("cannot bind listener")},
				dummyService{id: "2", err: errors.New("cannot bind listener")},
			},
			wantErrs: []string{"1: cannot bind listener", "2: cannot bind listener"},
		},
		{
			name: "context cancellation stops cleanly",
			group: Group{
				dummyService{id: "0"},
				dummyService{id: "1"},
			},
			timeout: 200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			err := tt.group.Run(ctx)
			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				require.Contains(t, err.Error(), want)
			}
		})
	}
}
