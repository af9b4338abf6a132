package specs

import "context"

// Specification is a composable predicate over T. A cancelled context makes
// every specification false.
type Specification[T any] interface {
	IsSatisfiedBy(ctx context.Context, v T) bool
	And(other Specification[T]) Specification[T]
	Or(other Specification[T]) Specification[T]
	Not() Specification[T]
}

type specFunc[T any] func(ctx context.Context, v T) bool

func (f specFunc[T]) IsSatisfiedBy(ctx context.Context, v T) bool { return f(ctx, v) }

func (f specFunc[T]) And(other Specification[T]) Specification[T] {
	return specFunc[T](func(ctx context.Context, v T) bool {
		return ctx.Err() == nil && f(ctx, v) && other.IsSatisfiedBy(ctx, v)
	})
}

func (f specFunc[T]) Or(other Specification[T]) Specification[T] {
	return specFunc[T](func(ctx context.Context, v T) bool {
		return ctx.Err() == nil && (f(ctx, v) || other.IsSatisfiedBy(ctx, v))
	})
}

func (f specFunc[T]) Not() Specification[T] {
	return specFunc[T](func(ctx context.Context, v T) bool {
		return ctx.Err() == nil && !f(ctx, v)
	})
}

// New constructs a Specification from a predicate.
func New[T any](fn func(ctx context.Context, v T) bool) Specification[T] { return specFunc[T](fn) }

// AllOf chains specs with And. With no specs it matches everything.
func AllOf[T any](list ...Specification[T]) Specification[T] {
	var out Specification[T] = New(func(ctx context.Context, _ T) bool { return ctx.Err() == nil })
	for _, s := range list {
		out = out.And(s)
	}
	return out
}
