package httpx

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageSanitizesBounds(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"explicit", "limit=10&offset=40", 10, 40},
		{"limit capped", "limit=100000", 500, 0},
		{"negative values reset", "limit=-5&offset=-3", 50, 0},
		{"garbage ignored", "limit=ten&offset=few", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			page := ParsePage(q)
			assert.Equal(t, tc.wantLimit, page.Limit)
			assert.Equal(t, tc.wantOffset, page.Offset)
		})
	}
}

func TestParseAuditFilter(t *testing.T) {
	q, err := url.ParseQuery("actor=user-1&method=post&delivered=false&status_code=502" +
		"&from=2025-06-01&to=2025-06-02T10:30:00Z&col_action=salesforce.call&col_job_id=job-7")
	require.NoError(t, err)

	filter := ParseAuditFilter(q)

	assert.Equal(t, "user-1", filter.Actor)
	assert.Equal(t, "POST", filter.Method, "method is normalized to upper case")
	require.NotNil(t, filter.Delivered)
	assert.False(t, *filter.Delivered)
	require.NotNil(t, filter.StatusCode)
	assert.Equal(t, 502, *filter.StatusCode)
	require.NotNil(t, filter.From)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), *filter.To)
	assert.Equal(t, map[string]string{"action": "salesforce.call", "job_id": "job-7"}, filter.Columns)
}

func TestParseAuditFilterIgnoresJunk(t *testing.T) {
	q, err := url.ParseQuery("delivered=maybe&status_code=many&from=yesterday&unrelated=1")
	require.NoError(t, err)

	filter := ParseAuditFilter(q)

	assert.Nil(t, filter.Delivered)
	assert.Nil(t, filter.StatusCode)
	assert.Nil(t, filter.From)
	assert.Nil(t, filter.Columns)
}

func TestParseErrorFilter(t *testing.T) {
	q, err := url.ParseQuery("type=job_exhausted&source=worker:outbound-call&resolved=true&search=timeout")
	require.NoError(t, err)

	filter := ParseErrorFilter(q)

	assert.Equal(t, "job_exhausted", filter.Type)
	assert.Equal(t, "worker:outbound-call", filter.Source)
	require.NotNil(t, filter.Resolved)
	assert.True(t, *filter.Resolved)
	assert.Equal(t, "timeout", filter.Search)
}
