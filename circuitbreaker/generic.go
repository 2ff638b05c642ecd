package circuitbreaker

import "context"

// ExecuteTyped is a type-safe wrapper around CircuitBreaker.Execute.
// It eliminates type assertions at call sites.
//
// Usage:
//
//	content, err := circuitbreaker.ExecuteTyped[string](cb, ctx,
//	    func(ctx context.Context) (string, error) { return transport.Fetch(ctx, q) },
//	    nil)
func ExecuteTyped[T any](b *CircuitBreaker, ctx context.Context, op func(ctx context.Context) (T, error), fallback func(ctx context.Context) (T, error)) (T, error) {
	var fb Operation
	if fallback != nil {
		fb = func(ctx context.Context) (any, error) {
			return fallback(ctx)
		}
	}

	result, err := b.Execute(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, fb)
	if err != nil {
		var zero T
		return zero, err
	}
	if result == nil {
		var zero T
		return zero, nil
	}
	return result.(T), nil
}
