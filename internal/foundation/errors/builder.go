package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder      { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder    { return b.WithSeverity(SeverityWarning) }
func (b *ErrorBuilder) Retryable() *ErrorBuilder  { return b.WithRetry(RetryBackoff) }
func (b *ErrorBuilder) Immediate() *ErrorBuilder  { return b.WithRetry(RetryImmediate) }
func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// SourceNotFound reports a missing source file or sheet. The source may be
// mid-rewrite, so it is retried with backoff.
func SourceNotFound(message string) *ErrorBuilder {
	return NewError(CategorySourceNotFound, message).Retryable()
}

// TransportError reports a failed push to the ingestion boundary.
func TransportError(message string) *ErrorBuilder {
	return NewError(CategoryTransport, message).Retryable()
}

// NotImplemented reports a source kind without a collection routine.
func NotImplemented(message string) *ErrorBuilder {
	return NewError(CategoryNotImplemented, message).Fatal()
}

// NotEnabled reports an operation that requires auto-update to be enabled.
func NotEnabled(message string) *ErrorBuilder {
	return NewError(CategoryNotEnabled, message).UserAction()
}

// ValidationError reports caller input or source structure that failed checks.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).UserAction()
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// NotFoundError reports a missing job, alert or other addressed entity.
func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message).UserAction()
}

// StoreError creates a settings/alert/job store error.
func StoreError(message string) *ErrorBuilder {
	return NewError(CategoryStore, message).Retryable()
}

// QueueError creates a work queue error.
func QueueError(message string) *ErrorBuilder {
	return NewError(CategoryQueue, message)
}

// AlertError creates an alert delivery error.
func AlertError(message string) *ErrorBuilder {
	return NewError(CategoryAlert, message).Retryable()
}

// RuntimeError creates a runtime error.
func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
