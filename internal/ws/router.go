package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, s *Session, body json.RawMessage) error

// Router keeps a map[event]handler, à-la gin.Engine. Handlers return an
// error for the per-event failure boundary to log; they never produce a
// reply themselves — everything client-visible goes out through the hub or
// the session's own connection.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event to a strongly-typed handler.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, s *Session, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, s *Session, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return err
			}
		}
		return h(ctx, s, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, s *Session, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return errors.New("unknown_event")
	}
	return h(ctx, s, env.Body)
}
