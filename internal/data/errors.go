package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// User repository sentinels.
	ErrUserNotFound    = errors.New("user not found")
	ErrUserEmailExists = errors.New("user email already exists")

	// Token repository sentinels.
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid, expired, or already used")

	// Error log repository sentinels.
	ErrErrorLogNotFound = errors.New("error log not found")

	// Setting repository sentinels.
	ErrSettingNotFound = errors.New("setting not found")

	// Report repository sentinels.
	ErrReportNotFound = errors.New("report not found")
)
