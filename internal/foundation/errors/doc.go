// Package errors provides the classified error primitives used across tccollector.
//
// Every failure that crosses a component boundary (collector, sync client,
// queue, scheduler, store) is a ClassifiedError. The category names the
// failure class from the collection taxonomy, and the retry strategy tells
// the work queue whether another attempt can help.
//
// Key features:
//   - ErrorCategory: failure class (source_not_found, transport, not_implemented, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, backoff, user action, ...)
//   - ErrorBuilder: fluent construction with structured context
//   - HTTP and CLI adapters for presenting errors
//
// Example usage:
//
//	err := errors.SourceNotFound("sheet not found").
//		WithContext("path", path).
//		WithContext("sheet", sheet).
//		Build()
package errors
