package workflow

// Handler continues a middleware chain.
type Handler func(wctx *Context) error

// Middleware intercepts the execution of a top-level step. It may run
// logic before or after calling next, call next with a different view of
// the context, or skip next entirely.
type Middleware func(wctx *Context, step Step, next Handler) error

// Chain composes middleware into one. The first middleware is the
// outermost wrapper:
//
//	Chain(logging, recover, checkpoint) runs as
//	logging → recover → checkpoint → step
func Chain(mws ...Middleware) Middleware {
	return func(wctx *Context, step Step, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(wctx *Context) error {
				return mw(wctx, step, prev)
			}
		}
		return h(wctx)
	}
}
