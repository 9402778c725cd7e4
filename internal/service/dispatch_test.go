package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/mocks"
	"github.com/crmbridge/backend/internal/service"
)

func newDispatchService(queue *mocks.MockQueue) *service.DispatchService {
	return service.MustNewDispatchService(service.DispatchServiceOptions{
		Logger: testLogger(),
		Queue:  queue,
	})
}

func TestEnqueueValidatesBeforeDispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Enqueue expectation: invalid requests never reach the broker.
	svc := newDispatchService(mocks.NewMockQueue(ctrl))

	_, err := svc.Enqueue(context.Background(), &model.EnqueueRequest{
		Queue:   model.QueueName("bogus"),
		Payload: json.RawMessage(`{}`),
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Enqueue(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestEnqueuePassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	svc := newDispatchService(queue)

	req := &model.EnqueueRequest{
		Queue:   model.QueueOutboundCall,
		Payload: json.RawMessage(`{"phone":"+15555550100"}`),
	}
	queue.EXPECT().Enqueue(gomock.Any(), req).
		Return(&model.Job{ID: "job-1", Queue: model.QueueOutboundCall}, nil)

	job, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestStatsCoversEveryQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	svc := newDispatchService(queue)

	for _, q := range model.QueueNames {
		queue.EXPECT().Counts(gomock.Any(), q).Return(model.QueueCounts{Waiting: 1, Failed: 2}, nil)
	}

	stats, totals, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, len(model.QueueNames))
	for i, q := range model.QueueNames {
		assert.Equal(t, q, stats[i].Queue)
		assert.Equal(t, int64(1), stats[i].Counts.Waiting)
	}

	n := int64(len(model.QueueNames))
	assert.Equal(t, model.QueueCounts{Waiting: n, Failed: 2 * n}, totals,
		"totals must sum counts across all queues")
}

func TestDeadLettersValidatesQueueAndClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := mocks.NewMockQueue(ctrl)
	svc := newDispatchService(queue)
	ctx := context.Background()

	queue.EXPECT().DeadLetters(ctx, model.QueueOutboundCall, int64(10)).
		Return([]string{"job-9", "job-12"}, nil)
	ids, err := svc.DeadLetters(ctx, "outbound-call", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-9", "job-12"}, ids)

	// Absent or oversized limits fall back to the page ceiling.
	queue.EXPECT().DeadLetters(ctx, model.QueueEmail, int64(100)).Return(nil, nil)
	_, err = svc.DeadLetters(ctx, "email", 0)
	require.NoError(t, err)

	_, err = svc.DeadLetters(ctx, "bogus", 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestOverallHealthWorstQueueWins(t *testing.T) {
	tests := []struct {
		name   string
		counts map[model.QueueName]model.QueueCounts
		want   model.HealthStatus
	}{
		{
			name:   "idle queues are healthy",
			counts: map[model.QueueName]model.QueueCounts{},
			want:   model.HealthHealthy,
		},
		{
			name: "one warning queue degrades the whole",
			counts: map[model.QueueName]model.QueueCounts{
				model.QueueEmail: {Completed: 7, Failed: 3},
			},
			want: model.HealthWarning,
		},
		{
			name: "critical dominates warning",
			counts: map[model.QueueName]model.QueueCounts{
				model.QueueEmail:        {Completed: 7, Failed: 3},
				model.QueueOutboundCall: {Completed: 2, Failed: 8},
			},
			want: model.HealthCritical,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			queue := mocks.NewMockQueue(ctrl)
			svc := newDispatchService(queue)

			for _, q := range model.QueueNames {
				queue.EXPECT().Counts(gomock.Any(), q).Return(tt.counts[q], nil)
			}

			overall, health, err := svc.OverallHealth(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, overall)
			assert.Len(t, health, len(model.QueueNames))
		})
	}
}
