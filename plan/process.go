package plan

import (
	"context"

	"github.com/squareup/kvclient/request"
)

// Process applies a pure transformation to a single-region result, after
// ResolveLock/RetryRegion have already run, so it only ever sees a fully
// retried, lock-free response (spec §4.5).
type Process[In request.Response, Out any] struct {
	inner Stage[In]
	fn    func(In) (Out, error)
}

// NewProcess wraps inner with fn. Out is typically a plain domain value
// (the builder makes Process terminal, see ProcessBuilder), so it carries
// no Response constraint.
func NewProcess[In request.Response, Out any](inner Stage[In], fn func(In) (Out, error)) *Process[In, Out] {
	return &Process[In, Out]{inner: inner, fn: fn}
}

func (p *Process[In, Out]) Execute(ctx context.Context) (Out, error) {
	var zero Out
	in, err := p.inner.Execute(ctx)
	if err != nil {
		return zero, err
	}
	return p.fn(in)
}

func (p *Process[In, Out]) Clone() Stage[Out] {
	return &Process[In, Out]{inner: p.inner.Clone(), fn: p.fn}
}
