package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/mocks"
	"github.com/crmbridge/backend/internal/service"
)

func newSettingsService(repo *mocks.MockSettingRepository) *service.SettingsService {
	return service.MustNewSettingsService(service.SettingsServiceOptions{
		Logger: testLogger(),
		Repo:   repo,
	})
}

func cronToggleSetting(jobType model.CronJobType, enabled bool) *model.SystemSetting {
	return &model.SystemSetting{
		Category: service.CronSettingsCategory,
		Key:      string(jobType),
		Type:     model.SettingBoolean,
		RawValue: fmt.Sprintf("%t", enabled),
	}
}

func TestUpsertRejectsTypeMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	// No repo expectation: a mismatched value must never reach storage.
	_, err := svc.Upsert(context.Background(), &model.UpsertSettingRequest{
		Category: "alerts",
		Key:      "threshold",
		Type:     model.SettingNumber,
		Value:    "not a number",
	}, "admin@example.org")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "value", apperrors.GetField(err))
}

func TestUpsertEncodesAndStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().
		Upsert(gomock.Any(), gomock.Any(), "42.5", "admin@example.org").
		Return(&model.SystemSetting{
			Category: "alerts", Key: "threshold",
			Type: model.SettingNumber, RawValue: "42.5",
		}, nil)

	setting, err := svc.Upsert(context.Background(), &model.UpsertSettingRequest{
		Category: "alerts",
		Key:      "threshold",
		Type:     model.SettingNumber,
		Value:    42.5,
	}, "admin@example.org")
	require.NoError(t, err)

	value, err := setting.Value()
	require.NoError(t, err)
	assert.Equal(t, 42.5, value)
}

func TestGetSettingNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().Get(gomock.Any(), "alerts", "missing").Return(nil, data.ErrSettingNotFound)

	_, _, err := svc.Get(context.Background(), "alerts", "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCronTogglesDefaultEnabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := newSettingsService(mocks.NewMockSettingRepository(ctrl))
	for _, jobType := range model.CronJobTypes {
		assert.True(t, svc.CronEnabled(jobType), "family %s should start enabled", jobType)
	}
	assert.False(t, svc.CronEnabled(model.CronJobType("bogus")))
}

func TestHydrateCronStatesAppliesStoredToggles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().List(gomock.Any(), service.CronSettingsCategory).Return([]*model.SystemSetting{
		cronToggleSetting(model.CronPledge, false),
		{Category: service.CronSettingsCategory, Key: "not-a-family", Type: model.SettingBoolean, RawValue: "false"},
		{Category: service.CronSettingsCategory, Key: string(model.CronHourly), Type: model.SettingBoolean, RawValue: "maybe"},
	}, nil)

	svc.HydrateCronStates(context.Background())

	assert.False(t, svc.CronEnabled(model.CronPledge))
	// Unknown keys and malformed toggles are skipped; those families keep the default.
	assert.True(t, svc.CronEnabled(model.CronHourly))
	assert.True(t, svc.CronEnabled(model.CronOneoff))
	assert.True(t, svc.CronEnabled(model.CronRecurring))
}

func TestHydrateCronStatesKeepsViewOnStoreOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().List(gomock.Any(), service.CronSettingsCategory).Return([]*model.SystemSetting{
		cronToggleSetting(model.CronRecurring, false),
	}, nil)
	svc.HydrateCronStates(context.Background())
	require.False(t, svc.CronEnabled(model.CronRecurring))

	repo.EXPECT().List(gomock.Any(), service.CronSettingsCategory).
		Return(nil, fmt.Errorf("connection refused"))
	svc.HydrateCronStates(context.Background())

	// The previously hydrated view survives the outage.
	assert.False(t, svc.CronEnabled(model.CronRecurring))
	assert.True(t, svc.CronEnabled(model.CronPledge))
}

func TestSetCronEnabledUpdatesViewImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().
		Upsert(gomock.Any(), gomock.Any(), "false", "admin@example.org").
		Return(cronToggleSetting(model.CronOneoff, false), nil)

	require.NoError(t, svc.SetCronEnabled(context.Background(), model.CronOneoff, false, "admin@example.org"))
	assert.False(t, svc.CronEnabled(model.CronOneoff))

	err := svc.SetCronEnabled(context.Background(), model.CronJobType("bogus"), true, "admin@example.org")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSetCronEnabledSurvivesStoreOutage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSettingRepository(ctrl)
	svc := newSettingsService(repo)

	repo.EXPECT().
		Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("connection refused"))

	// Memory is updated first; the failed persist is logged, not returned.
	require.NoError(t, svc.SetCronEnabled(context.Background(), model.CronHourly, false, "admin@example.org"))
	assert.False(t, svc.CronEnabled(model.CronHourly))
}
