// Package testcase defines the canonical test-case record produced by a
// collection run, its execution status and the locator of the spreadsheet
// it came from.
package testcase
