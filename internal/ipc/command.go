package ipc

import "context"

// Command is an IPC-reachable operation registered with a Router. An
// embedder implements one Command per method it wants a sandboxed process
// to be able to invoke.
//
// A Command value doubles as a prototype: the Router clones it (via Clone)
// for every incoming call, decodes that call's params onto the clone, and
// invokes Handle on the clone. This keeps per-call state (the decoded
// params) from leaking between concurrent invocations of the same method
// without requiring the embedder to manage a mutex.
type Command interface {
	// Name is the method name this command answers to.
	Name() string
	// Clone returns a fresh copy of this command, ready to have params
	// decoded onto it.
	Clone() Command
	// SetParams decodes the call's MessagePack params onto the receiver.
	SetParams(raw []byte) error
	// Handle executes the command and returns a value to be MessagePack-
	// encoded as the response payload.
	Handle(ctx context.Context) (interface{}, error)
	// PrimaryArg names the single field a caller may fill positionally
	// instead of passing a keyed params object, e.g. a CLI-style client
	// invoking the method with one bare string argument. Returns "" if the
	// command has no positional argument.
	PrimaryArg() string
	// StdinArg names the field a caller may fill from piped stdin instead
	// of an explicit argument. Returns "" if the command doesn't read stdin.
	StdinArg() string
	// SetMethodName is called by Router.Handle on each per-call clone with
	// the request's method name, before SetParams and Handle, so a Handle
	// implementation can report which name it was invoked through.
	SetMethodName(name string)
}

// Base gives a Command default PrimaryArg, StdinArg, and SetMethodName
// implementations: no positional argument, no stdin argument, and a
// SetMethodName that records the name for MethodName. Embed it to opt out of
// positional-argument and stdin handling; override any of the three methods
// to opt back in.
type Base struct {
	methodName string
}

// PrimaryArg reports no positional argument by default.
func (b *Base) PrimaryArg() string { return "" }

// StdinArg reports no stdin argument by default.
func (b *Base) StdinArg() string { return "" }

// SetMethodName records the name the command was dispatched under.
func (b *Base) SetMethodName(name string) { b.methodName = name }

// MethodName returns the name most recently passed to SetMethodName.
func (b *Base) MethodName() string { return b.methodName }
