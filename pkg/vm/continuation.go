package vm

import (
	"github.com/google/uuid"

	"github.com/kristofer/scheme/pkg/value"
)

// Continuation is a snapshot of the active execution context (frame,
// instruction pointer, operand stack contents, environment reference)
// taken at the point of capture, with the capturing call already
// removed from the stack (it was popped as the callable before the
// clone was taken) and its IP already advanced past call_cc by the
// dispatch loop's default pre-advance.
//
// ID is a google/uuid identity distinct from Go pointer identity,
// copied into a resumed Context's ContinuationID so the debugger can
// name a continuation stably across captures/resumes.
type Continuation struct {
	ID  uuid.UUID
	Ctx *Context
}

func WrapContinuation(ctx *Context) value.Value {
	return value.Obj(value.KindContinuation, &Continuation{ID: uuid.New(), Ctx: ctx})
}

func AsContinuation(v value.Value) *Continuation {
	k, _ := v.Payload().(*Continuation)
	return k
}
