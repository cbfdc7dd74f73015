package ki

import (
	"context"
	"errors"
)

// ErrScopeClosed is returned by a fork variant when the target Scope has
// already closed (its body returned or raised). No task is spawned.
var ErrScopeClosed = errors.New("ki: scope closed")

// closureInterrupt is the distinguished value a Scope delivers to every
// live child when it shuts down. Its owner field is what lets a child
// (or a nested scope) tell "this scope's own shutdown" apart from an
// identical-looking interrupt delivered by some ancestor scope's
// shutdown.
type closureInterrupt struct {
	owner *Scope
}

func (c *closureInterrupt) Error() string { return "ki: scope closure interrupt" }

func asClosureInterrupt(err error) (*closureInterrupt, bool) {
	var ci *closureInterrupt
	if errors.As(err, &ci) {
		return ci, true
	}
	return nil, false
}

// kind classifies a child's failure per spec §7.
type kind int

const (
	kindNone kind = iota
	kindSync
	kindAsync
	kindClosureOwn
)

// classify inspects the cause recorded on a child's context (if any)
// together with the error it returned, and decides which of the error
// kinds spec §7 describes the failure is. The provenance check for kind 3
// is a pointer comparison: a closure interrupt minted by this scope is
// only ever delivered after this scope has closed, so observing one
// whose owner is this scope implies the scope is closed; a closure
// interrupt whose owner is a different (ancestor) scope was not produced
// by this scope's shutdown and is treated as an ordinary asynchronous
// failure instead. Under this scope's own closure cause, only a returned
// error that is this scope's closure interrupt or context.Canceled counts
// as kind 3; any other returned error is classified as if no cause were
// recorded.
func classify(s *Scope, childCtx context.Context, err error) kind {
	if err == nil {
		return kindNone
	}
	cause := context.Cause(childCtx)
	if ci, ok := asClosureInterrupt(cause); ok {
		if ci.owner != s {
			return kindAsync
		}
		if own, isCI := asClosureInterrupt(err); (isCI && own.owner == s) || errors.Is(err, context.Canceled) {
			return kindClosureOwn
		}
	} else if cause != nil {
		return kindAsync
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return kindAsync
	}
	return kindSync
}
