// Package sheet reads spreadsheet workbooks into typed cells and converts
// cells into dates the way spreadsheet engines do.
package sheet

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Cell.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Cell is one untyped spreadsheet value: Empty, Number, Text, Date or Bool.
// The zero value is Empty.
type Cell struct {
	kind Kind
	num  float64
	text string
	date time.Time
	b    bool
}

func Empty() Cell              { return Cell{} }
func Number(f float64) Cell    { return Cell{kind: KindNumber, num: f} }
func Text(s string) Cell       { return Cell{kind: KindText, text: s} }
func Date(t time.Time) Cell    { return Cell{kind: KindDate, date: t} }
func Bool(b bool) Cell         { return Cell{kind: KindBool, b: b} }
func (c Cell) Kind() Kind      { return c.kind }
func (c Cell) IsEmpty() bool   { return c.kind == KindEmpty }
func (c Cell) Float() float64  { return c.num }
func (c Cell) Time() time.Time { return c.date }
func (c Cell) RawText() string { return c.text }
func (c Cell) BoolValue() bool { return c.b }

// String renders the cell the way it is stored in text fields.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindText:
		return c.text
	case KindDate:
		return c.date.Format(time.RFC3339)
	case KindBool:
		if c.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// Blank reports whether the cell renders to whitespace only.
func (c Cell) Blank() bool {
	return strings.TrimSpace(c.String()) == ""
}
