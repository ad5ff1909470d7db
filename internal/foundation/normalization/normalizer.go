// Package normalization maps free-form strings onto typed enums.
//
// Config values are matched case-insensitively; spreadsheet markers are
// matched exactly after trimming and Unicode composition (see Exact).
package normalization

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Func cleans a raw string before table lookup.
type Func func(string) string

// Fold trims and lower-cases. Used for configuration enums.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Exact trims and composes to NFC without changing case, so "NG" and "ng"
// stay distinct while a decomposed "削除" still matches its composed form.
func Exact(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Normalizer provides type-safe string-to-enum normalization with error handling.
type Normalizer[T comparable] struct {
	validValues  map[string]T
	defaultValue T
	validKeys    []string
	clean        Func
}

// NewNormalizer creates a case-insensitive normalizer.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	return WithCustomNormalizer(values, defaultValue, Fold)
}

// WithCustomNormalizer creates a normalizer whose keys and inputs are cleaned by clean.
func WithCustomNormalizer[T comparable](values map[string]T, defaultValue T, clean Func) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	validKeys := make([]string, 0, len(values))
	for k, v := range values {
		key := clean(k)
		normalized[key] = v
		validKeys = append(validKeys, key)
	}
	sort.Strings(validKeys)

	return &Normalizer[T]{
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    validKeys,
		clean:        clean,
	}
}

// Normalize returns the mapped value, or the default when raw is not in the table.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.validValues[n.clean(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// Lookup is Normalize with an explicit hit flag.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	value, ok := n.validValues[n.clean(raw)]
	return value, ok
}

// NormalizeWithError returns an error listing the valid keys when raw is unknown.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, ok := n.validValues[n.clean(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// ValidKeys returns all valid normalized keys, sorted.
func (n *Normalizer[T]) ValidKeys() []string {
	result := make([]string, len(n.validKeys))
	copy(result, n.validKeys)
	return result
}
