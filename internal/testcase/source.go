package testcase

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/foundation/normalization"
)

// SourceType identifies where test cases are collected from.
type SourceType string

const (
	SourceExcel  SourceType = "excel"
	SourceGSheet SourceType = "gsheet"
)

// SourceKind groups source types by how they are read.
type SourceKind int

const (
	KindUnknown SourceKind = iota
	KindFile               // local spreadsheet file
	KindRemote             // hosted spreadsheet
)

var sourceTypeNormalizer = normalization.NewEnumNormalizer("source type", map[string]SourceType{
	"excel":  SourceExcel,
	"xlsx":   SourceExcel,
	"gsheet": SourceGSheet,
}, "")

// ParseSourceType normalizes raw (case-insensitive) and rejects unknown types.
func ParseSourceType(raw string) (SourceType, error) {
	t, err := sourceTypeNormalizer.NormalizeWithError(raw)
	if err != nil {
		return "", fmt.Errorf("invalid source type: %w", err)
	}
	return t, nil
}

// Kind returns the read strategy for t.
func (t SourceType) Kind() SourceKind {
	switch t {
	case SourceExcel:
		return KindFile
	case SourceGSheet:
		return KindRemote
	default:
		return KindUnknown
	}
}

// Locator addresses one spreadsheet.
type Locator struct {
	Type          SourceType `json:"type"`
	FilePath      string     `json:"filePath,omitempty"`
	SpreadsheetID string     `json:"spreadsheetId,omitempty"`
	SheetName     string     `json:"sheetName,omitempty"`
}

// String renders the locator for logs and alert details.
func (l Locator) String() string {
	var s string
	switch l.Type.Kind() {
	case KindRemote:
		s = string(l.Type) + ":" + l.SpreadsheetID
	default:
		s = string(l.Type) + ":" + l.FilePath
	}
	if l.SheetName != "" {
		s += "#" + l.SheetName
	}
	return s
}

// Validate checks that the locator names a known type and carries the field that type needs.
func (l Locator) Validate() error {
	switch l.Type.Kind() {
	case KindFile:
		if l.FilePath == "" {
			return ferrors.ValidationError("file path is required for excel sources").
				WithContext("source_type", string(l.Type)).Build()
		}
	case KindRemote:
		if l.SpreadsheetID == "" {
			return ferrors.ValidationError("spreadsheet id is required for gsheet sources").
				WithContext("source_type", string(l.Type)).Build()
		}
	default:
		return ferrors.ValidationError(fmt.Sprintf("unknown source type %q", l.Type)).
			WithContext("source_type", string(l.Type)).Build()
	}
	return nil
}
