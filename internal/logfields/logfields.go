package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID       = "job_id"
	KeyJobName     = "job_name"
	KeyJobKey      = "job_key"
	KeyJobPriority = "job_priority"
	KeyJobStatus   = "job_status"
	KeyAttempt     = "attempt"
	KeyMaxAttempts = "max_attempts"
	KeyDelay       = "delay"
	KeyDurationMS  = "duration_ms"
	KeyScheduleID  = "schedule_id"
	KeySchedule    = "schedule_name"
	KeyInterval    = "interval_minutes"
	KeySource      = "source"
	KeySheet       = "sheet"
	KeyFingerprint = "fingerprint"
	KeyRecords     = "records"
	KeyCategory    = "error_category"
	KeyStage       = "stage"
	KeyPath        = "path"
	KeyURL         = "url"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyRemoteAddr  = "remote_addr"
	KeyUserAgent   = "user_agent"
	KeyWorker      = "worker"
	KeyAlertID     = "alert_id"
	KeyVersion     = "version"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobName(n string) slog.Attr      { return slog.String(KeyJobName, n) }
func JobKey(k string) slog.Attr       { return slog.String(KeyJobKey, k) }
func JobPriority(p int) slog.Attr     { return slog.Int(KeyJobPriority, p) }
func JobStatus(s string) slog.Attr    { return slog.String(KeyJobStatus, s) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func MaxAttempts(n int) slog.Attr     { return slog.Int(KeyMaxAttempts, n) }
func Delay(d time.Duration) slog.Attr { return slog.Duration(KeyDelay, d) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func ScheduleID(id string) slog.Attr  { return slog.String(KeyScheduleID, id) }
func ScheduleName(n string) slog.Attr { return slog.String(KeySchedule, n) }
func Interval(minutes int) slog.Attr  { return slog.Int(KeyInterval, minutes) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Sheet(s string) slog.Attr        { return slog.String(KeySheet, s) }
func Fingerprint(f string) slog.Attr  { return slog.String(KeyFingerprint, f) }
func Records(n int) slog.Attr         { return slog.Int(KeyRecords, n) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func Worker(id int) slog.Attr         { return slog.Int(KeyWorker, id) }
func AlertID(id int64) slog.Attr      { return slog.Int64(KeyAlertID, id) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
