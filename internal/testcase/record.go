package testcase

import "time"

// Record is one canonical test case as sent to the ingestion boundary.
// String fields are trimmed and empty when absent; absent dates are nil
// and omitted from JSON.
type Record struct {
	TestID            string     `json:"testId"`
	Summary           string     `json:"summary"`
	FunctionName      string     `json:"functionName"`
	ItemName          string     `json:"itemName"`
	Precondition      string     `json:"precondition"`
	TestContent       string     `json:"testContent"`
	ExpectedResult    string     `json:"expectedResult"`
	Notes             string     `json:"notes"`
	Status            Status     `json:"status"`
	PlannedExecDate   *time.Time `json:"plannedExecDate,omitempty"`
	PlannedReviewDate *time.Time `json:"plannedReviewDate,omitempty"`
	ActualExecDate    *time.Time `json:"actualExecDate,omitempty"`
	ActualReviewDate  *time.Time `json:"actualReviewDate,omitempty"`
	Assignee          string     `json:"assignee"`
	BugTicket         string     `json:"bugTicket"`
	Remarks           string     `json:"remarks"`
	CollectedAt       time.Time  `json:"collectedAt"`
}

// TimePtr returns &t when ok, nil otherwise.
func TimePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}
