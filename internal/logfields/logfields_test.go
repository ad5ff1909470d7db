package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"JobID", KeyJobID, "123", JobID("123")},
		{"JobName", KeyJobName, "collect-data", JobName("collect-data")},
		{"JobKey", KeyJobKey, "auto-update-job", JobKey("auto-update-job")},
		{"JobStatus", KeyJobStatus, "waiting", JobStatus("waiting")},
		{"ScheduleName", KeySchedule, "auto-update-job", ScheduleName("auto-update-job")},
		{"Source", KeySource, "excel:/data/t.xlsx", Source("excel:/data/t.xlsx")},
		{"Fingerprint", KeyFingerprint, "abc", Fingerprint("abc")},
		{"Category", KeyCategory, "transport", Category("transport")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		// Key drift would break log ingestion schemas.
		assert.Equal(t, tc.attrKey, tc.attr.Key, tc.name)
		assert.Equal(t, tc.attrVal, tc.attr.Value.String(), tc.name)
	}
}

// TestNumericHelpers verifies keys for numeric helpers.
func TestNumericHelpers(t *testing.T) {
	assert.Equal(t, KeyAttempt, Attempt(2).Key)
	assert.Equal(t, int64(2), Attempt(2).Value.Int64())
	assert.Equal(t, KeyRecords, Records(7).Key)
	assert.Equal(t, KeyInterval, Interval(30).Key)
	assert.Equal(t, KeyStatus, Status(502).Key)
	assert.Equal(t, 5*time.Second, Delay(5*time.Second).Value.Duration())
	assert.Equal(t, KeyAlertID, AlertID(9).Key)
}

func TestError(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
}
