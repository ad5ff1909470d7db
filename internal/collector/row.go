package collector

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/tccollector/internal/sheet"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// Column positions A..P of the test-case sheet.
const (
	ColTestID = iota
	ColSummary
	ColFunctionName
	ColItemName
	ColPrecondition
	ColTestContent
	ColExpectedResult
	ColNotes
	ColStatus
	ColPlannedExecDate
	ColPlannedReviewDate
	ColActualExecDate
	ColActualReviewDate
	ColAssignee
	ColBugTicket
	ColRemarks

	NumColumns
)

// RawRow is one data row before transformation.
type RawRow [NumColumns]sheet.Cell

// Valid reports whether the row carries test content.
func (r RawRow) Valid() bool {
	return text(r[ColTestContent]) != ""
}

// Extract converts sheet rows into raw rows, padding or truncating to the
// fixed column count.
func Extract(rows [][]sheet.Cell) []RawRow {
	out := make([]RawRow, 0, len(rows))
	for _, cells := range rows {
		var r RawRow
		copy(r[:], cells)
		out = append(out, r)
	}
	return out
}

// Filter keeps valid rows in their original order.
func Filter(rows []RawRow) []RawRow {
	kept := make([]RawRow, 0, len(rows))
	for _, r := range rows {
		if r.Valid() {
			kept = append(kept, r)
		}
	}
	return kept
}

// Transform maps a raw row onto the canonical record.
func Transform(r RawRow, collectedAt time.Time) testcase.Record {
	return testcase.Record{
		TestID:            text(r[ColTestID]),
		Summary:           text(r[ColSummary]),
		FunctionName:      text(r[ColFunctionName]),
		ItemName:          text(r[ColItemName]),
		Precondition:      text(r[ColPrecondition]),
		TestContent:       text(r[ColTestContent]),
		ExpectedResult:    text(r[ColExpectedResult]),
		Notes:             text(r[ColNotes]),
		Status:            testcase.NormalizeStatus(r[ColStatus].String()),
		PlannedExecDate:   testcase.TimePtr(sheet.ParseDate(r[ColPlannedExecDate])),
		PlannedReviewDate: testcase.TimePtr(sheet.ParseDate(r[ColPlannedReviewDate])),
		ActualExecDate:    testcase.TimePtr(sheet.ParseDate(r[ColActualExecDate])),
		ActualReviewDate:  testcase.TimePtr(sheet.ParseDate(r[ColActualReviewDate])),
		Assignee:          text(r[ColAssignee]),
		BugTicket:         text(r[ColBugTicket]),
		Remarks:           text(r[ColRemarks]),
		CollectedAt:       collectedAt,
	}
}

// text renders a cell for a string field. A false boolean counts as
// absent and a true one is lowercase.
func text(c sheet.Cell) string {
	if c.Kind() == sheet.KindBool {
		if c.BoolValue() {
			return "true"
		}
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(c.String()))
}
