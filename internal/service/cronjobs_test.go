package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/mocks"
	"github.com/crmbridge/backend/internal/service"
)

type cronFixture struct {
	settings *mocks.MockSettingRepository
	runs     *mocks.MockCronJobRepository
	queue    *mocks.MockQueue
	svc      *service.CronJobService
}

func newCronFixture(t *testing.T, ctrl *gomock.Controller) *cronFixture {
	t.Helper()
	settingsRepo := mocks.NewMockSettingRepository(ctrl)
	runsRepo := mocks.NewMockCronJobRepository(ctrl)
	queue := mocks.NewMockQueue(ctrl)

	settings := service.MustNewSettingsService(service.SettingsServiceOptions{
		Logger: testLogger(),
		Repo:   settingsRepo,
	})
	dispatch := service.MustNewDispatchService(service.DispatchServiceOptions{
		Logger: testLogger(),
		Queue:  queue,
	})
	svc := service.MustNewCronJobService(service.CronJobServiceOptions{
		Logger:   testLogger(),
		Repo:     runsRepo,
		Settings: settings,
		Dispatch: dispatch,
		Now:      func() time.Time { return testTime },
	})
	return &cronFixture{
		settings: settingsRepo,
		runs:     runsRepo,
		queue:    queue,
		svc:      svc,
	}
}

func TestTriggerEnqueuesEnabledFamily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	fix.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, error) {
			assert.Equal(t, model.QueueOutboundCall, req.Queue)
			var payload map[string]string
			require.NoError(t, json.Unmarshal(req.Payload, &payload))
			assert.Equal(t, "pledge", payload["cron_type"])
			assert.Equal(t, "scheduler", payload["triggered_by"])
			return &model.Job{ID: "job-9", Queue: req.Queue}, nil
		})
	fix.runs.EXPECT().RecordRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
			assert.True(t, run.Success)
			assert.Equal(t, "queued job job-9", run.Message)
			return run, nil
		})

	run, err := fix.svc.Trigger(context.Background(), model.CronPledge, "scheduler")
	require.NoError(t, err)
	assert.True(t, run.Success)
}

func TestTriggerHourlyTargetsNotificationQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	fix.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, error) {
			assert.Equal(t, model.QueueNotification, req.Queue)
			return &model.Job{ID: "job-10", Queue: req.Queue}, nil
		})
	fix.runs.EXPECT().RecordRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
			return run, nil
		})

	_, err := fix.svc.Trigger(context.Background(), model.CronHourly, "scheduler")
	require.NoError(t, err)
}

func TestTriggerRecordsSkipWhenDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	fix.settings.EXPECT().
		Upsert(gomock.Any(), gomock.Any(), "false", "admin@example.org").
		Return(&model.SystemSetting{
			Category: service.CronSettingsCategory,
			Key:      string(model.CronOneoff),
			Type:     model.SettingBoolean,
			RawValue: "false",
		}, nil)
	require.NoError(t, fix.svc.SetEnabled(context.Background(), model.CronOneoff, false, "admin@example.org"))

	// The queue mock gets no Enqueue expectation: a disabled family never dispatches.
	fix.runs.EXPECT().RecordRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
			assert.False(t, run.Success)
			assert.Equal(t, "skipped: disabled by settings toggle", run.Message)
			require.NotNil(t, run.FinishedAt)
			return run, nil
		})

	run, err := fix.svc.Trigger(context.Background(), model.CronOneoff, "scheduler")
	require.NoError(t, err)
	assert.False(t, run.Success)
}

func TestTriggerRecordsEnqueueFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	fix.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		Return(nil, assert.AnError)
	fix.runs.EXPECT().RecordRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
			assert.False(t, run.Success)
			assert.Contains(t, run.Message, "enqueue failed")
			return run, nil
		})

	_, err := fix.svc.Trigger(context.Background(), model.CronRecurring, "scheduler")
	require.Error(t, err)
}

func TestTriggerRejectsUnknownFamily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	_, err := fix.svc.Trigger(context.Background(), model.CronJobType("bogus"), "scheduler")
	assert.True(t, apperrors.IsValidation(err))
}

func TestStatesListsEveryFamily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fix := newCronFixture(t, ctrl)

	states := fix.svc.States()
	require.Len(t, states, len(model.CronJobTypes))
	for _, state := range states {
		assert.True(t, state.Enabled)
	}
}
