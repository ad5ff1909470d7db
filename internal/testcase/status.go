package testcase

import "git.home.luguber.info/inful/tccollector/internal/foundation/normalization"

// Status is the execution state of a test case.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusBlocked Status = "BLOCKED"
	StatusDeleted Status = "DELETED"
)

// Markers are matched exactly: "ng" is not "NG".
var statusNormalizer = normalization.WithCustomNormalizer(map[string]Status{
	"○":       StatusPassed,
	"O":       StatusPassed,
	"▲":       StatusFailed,
	"NG":      StatusFailed,
	"×":       StatusBlocked,
	"X":       StatusBlocked,
	"削除":      StatusDeleted,
	"DELETED": StatusDeleted,
	"":        StatusPending,
}, StatusPending, normalization.Exact)

// NormalizeStatus maps a raw status marker to a Status. Unknown markers are PENDING.
func NormalizeStatus(raw string) Status {
	return statusNormalizer.Normalize(raw)
}

// Valid reports whether s is one of the five known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPassed, StatusFailed, StatusBlocked, StatusDeleted:
		return true
	}
	return false
}
