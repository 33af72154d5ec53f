package linkauth

import "context"

// ActiveSessionCount returns the number of live sessions for one account.
//
// ActiveSessionCount may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessionCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveSessionCount(ctx context.Context, accountID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessionStore.ActiveSessionCount(ctx, accountID)
}

// ActiveSessionIDs returns the live session IDs for one account.
//
// ActiveSessionIDs may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessionIDs does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveSessionIDs(ctx context.Context, accountID string) ([]string, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	return e.sessionStore.ActiveSessionIDs(ctx, accountID)
}

// SessionCount returns the global live-session counter.
//
// SessionCount may return an error when input validation, dependency calls, or security checks fail.
// SessionCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SessionCount(ctx context.Context) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessionStore.SessionCount(ctx)
}
