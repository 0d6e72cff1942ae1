package ipc

import (
	"context"
	"fmt"
)

// ErrUnknownMethod is returned (wrapped) when a request names a method that
// was never registered.
type ErrUnknownMethod struct {
	Method string
}

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("ipc: unknown method %q", e.Method)
}

// Router maps method names to registered Command prototypes and dispatches
// incoming requests to them. It is the Go-idiomatic counterpart to the
// builder-style IpcRouter in the original implementation: construct with
// NewRouter, chain Register calls, then hand the finished Router to a
// Server.
type Router struct {
	commands map[string]Command
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{commands: make(map[string]Command)}
}

// Register adds cmd under its own Name(), overwriting any prior
// registration for that name, and returns the Router for chaining.
func (r *Router) Register(cmd Command) *Router {
	r.commands[cmd.Name()] = cmd
	return r
}

// MethodInfo describes a registered command for introspection: its
// positional and stdin argument names, when it declares any.
type MethodInfo struct {
	PrimaryArg string
	StdinArg   string
}

// Methods returns metadata for every registered method name, letting a
// caller (e.g. a CLI-style IPC client) discover which commands accept a
// positional or stdin argument without invoking them.
func (r *Router) Methods() map[string]MethodInfo {
	out := make(map[string]MethodInfo, len(r.commands))
	for name, cmd := range r.commands {
		out[name] = MethodInfo{PrimaryArg: cmd.PrimaryArg(), StdinArg: cmd.StdinArg()}
	}
	return out
}

// Handle dispatches a single request: clones the registered prototype for
// req.Method, decodes params onto it, runs it, and encodes the result (or
// error) as a Response payload.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	proto, ok := r.commands[req.Method]
	if !ok {
		return Failure((&ErrUnknownMethod{Method: req.Method}).Error())
	}

	call := proto.Clone()
	call.SetMethodName(req.Method)
	if err := call.SetParams(req.Params); err != nil {
		return Failure(fmt.Sprintf("ipc: invalid params for %q: %v", req.Method, err))
	}

	result, err := call.Handle(ctx)
	if err != nil {
		return Failure(err.Error())
	}

	payload, err := Marshal(result)
	if err != nil {
		return Failure(fmt.Sprintf("ipc: failed to encode response for %q: %v", req.Method, err))
	}
	return Success(payload)
}
