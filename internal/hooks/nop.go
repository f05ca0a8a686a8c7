package hooks

import (
	"context"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, string, bool) error               = (*NopHooks)(nil).OnDutyChanged
	_ func(context.Context, string, []*types.Recipient) error = (*NopHooks)(nil).OnRequestsChanged
	_ func(context.Context, types.State, types.State) error   = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, error) error                      = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnDutyChanged:     h.OnDutyChanged,
		OnRequestsChanged: h.OnRequestsChanged,
		OnStateChanged:    h.OnStateChanged,
		OnError:           h.OnError,
	}
}

// Fill returns a copy of hooks with every nil callback replaced by a no-op.
//
// Parameters:
//   - hooks: Caller-supplied hooks, may be nil
//
// Returns:
//   - types.Hooks: Hooks safe to invoke without nil checks
func Fill(hooks *types.Hooks) types.Hooks {
	out := NewNop()
	if hooks == nil {
		return out
	}
	if hooks.OnDutyChanged != nil {
		out.OnDutyChanged = hooks.OnDutyChanged
	}
	if hooks.OnRequestsChanged != nil {
		out.OnRequestsChanged = hooks.OnRequestsChanged
	}
	if hooks.OnStateChanged != nil {
		out.OnStateChanged = hooks.OnStateChanged
	}
	if hooks.OnError != nil {
		out.OnError = hooks.OnError
	}

	return out
}

// OnDutyChanged is a no-op implementation.
func (h *NopHooks) OnDutyChanged(ctx context.Context, subjectID string, isOnDuty bool) error {
	return nil
}

// OnRequestsChanged is a no-op implementation.
func (h *NopHooks) OnRequestsChanged(ctx context.Context, subjectID string, list []*types.Recipient) error {
	return nil
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(ctx context.Context, from, to types.State) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(ctx context.Context, err error) error {
	return nil
}
