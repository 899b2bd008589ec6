// Package reqctx carries request-scoped values through context.Context.
//
// HTTP middleware sets a RequestMeta for every request and, on API routes,
// the client id taken from the X-Client-Id header:
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: rid})
//	ctx = reqctx.WithClientID(ctx, "3f1c...")
//
// Terminal commands set only the client id, from client.id in config.
//
// All context keys are private unexported types to prevent collisions.
package reqctx
