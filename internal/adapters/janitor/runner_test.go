package janitor_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/crmbridge/backend/internal/adapters/janitor"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/mocks"
)

var sweepTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSweepCoversEveryQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	for _, q := range model.QueueNames {
		queue.EXPECT().PromoteDelayed(gomock.Any(), q, sweepTime).Return(2, nil)
		queue.EXPECT().RequeueStalled(gomock.Any(), q, sweepTime).Return(0, nil)
	}

	r, err := janitor.NewRunner(janitor.RunnerOptions{
		Logger: testLogger(),
		Queue:  queue,
		Now:    func() time.Time { return sweepTime },
	})
	require.NoError(t, err)

	r.Sweep(context.Background())
}

func TestSweepContinuesPastQueueErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	for i, q := range model.QueueNames {
		if i == 0 {
			// The first queue fails both operations; the rest still run.
			queue.EXPECT().PromoteDelayed(gomock.Any(), q, sweepTime).Return(0, assert.AnError)
			queue.EXPECT().RequeueStalled(gomock.Any(), q, sweepTime).Return(0, assert.AnError)
			continue
		}
		queue.EXPECT().PromoteDelayed(gomock.Any(), q, sweepTime).Return(0, nil)
		queue.EXPECT().RequeueStalled(gomock.Any(), q, sweepTime).Return(1, nil)
	}

	r, err := janitor.NewRunner(janitor.RunnerOptions{
		Logger: testLogger(),
		Queue:  queue,
		Now:    func() time.Time { return sweepTime },
	})
	require.NoError(t, err)

	r.Sweep(context.Background())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	queue.EXPECT().PromoteDelayed(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()
	queue.EXPECT().RequeueStalled(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()

	r, err := janitor.NewRunner(janitor.RunnerOptions{
		Logger:   testLogger(),
		Queue:    queue,
		Interval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
