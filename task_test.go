package threadpool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTask_Variants(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	var called bool
	tests := []struct {
		name         string
		task         Task
		wantShutdown bool
		wantErr      error
	}{
		{name: "zero value is a no-op", task: Task{}},
		{name: "work returning nil", task: Work(func(context.Context) error { called = true; return nil })},
		{name: "work returning error", task: Work(func(context.Context) error { return boom }), wantErr: boom},
		{name: "func", task: Func(func(context.Context) { called = true })},
		{name: "nil func", task: Func(nil)},
		{name: "shutdown sentinel", task: Shutdown(), wantShutdown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantShutdown, tt.task.IsShutdown())
			if tt.wantShutdown {
				return
			}
			err := tt.task.run(ctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
	require.True(t, called)
}

func TestWorkerID_Missing(t *testing.T) {
	_, ok := WorkerID(context.Background())
	require.False(t, ok)
}
