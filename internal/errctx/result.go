package errctx

// Result carries either a value or an ErrorContext, never both.
// The zero value is an Ok result holding T's zero value.
type Result[T any] struct {
	value T
	err   *ErrorContext
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure.
func Err[T any](e *ErrorContext) Result[T] {
	return Result[T]{err: e}
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

func (r Result[T]) IsErr() bool {
	return r.err != nil
}

// Value returns the held value. Callers must check IsOk first; on an
// error result it returns T's zero value.
func (r Result[T]) Value() T {
	return r.value
}

// ValueOr returns the held value, or fallback on an error result.
func (r Result[T]) ValueOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// Err returns the held ErrorContext, nil on success.
func (r Result[T]) Err() *ErrorContext {
	return r.err
}
