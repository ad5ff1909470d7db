package normalization

import "fmt"

// EnumNormalizer wraps a Normalizer with the enum name for error messages.
type EnumNormalizer[T comparable] struct {
	*Normalizer[T]
	enumName string
}

// NewEnumNormalizer creates a case-insensitive enum normalizer.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{Normalizer: NewNormalizer(values, defaultValue), enumName: enumName}
}

// NormalizeWithValidation converts raw to an enum value, naming the enum in the error.
// Empty input yields the default without error.
func (e *EnumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	if Fold(raw) == "" {
		return e.defaultValue, nil
	}
	result, err := e.NormalizeWithError(raw)
	if err != nil {
		return result, fmt.Errorf("invalid %s: %w", e.enumName, err)
	}
	return result, nil
}
