package session

import "context"

type stateKey struct{}

// WithState returns a copy of ctx carrying st.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// FromContext returns the State stored in ctx, or Anonymous.
func FromContext(ctx context.Context) State {
	if st, ok := ctx.Value(stateKey{}).(State); ok {
		return st
	}
	return Anonymous()
}
