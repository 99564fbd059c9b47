// Package coro provides a cooperative scheduler for decision logic that must
// suspend awaiting a matching inbound message and resume with its value.
//
// A task is modelled as an explicit continuation: each step returns a Yield
// describing what happens next (finish with a value, call a subtask, or
// suspend on a wait-condition). The Reactor drives tasks from a single
// goroutine; there is no locking and no parallelism, only interleaving of
// suspended tasks.
package coro

import "fmt"

var (
	// ErrTokenBusy reports a second suspension on a token that already has
	// a pending wait. This is a defect in the calling task, never merged
	// silently.
	ErrTokenBusy = fmt.Errorf("wait token already registered")

	// ErrNoWait reports a resume against a token with no pending wait.
	ErrNoWait = fmt.Errorf("no pending wait for token")

	// ErrNoMatch reports a resume whose message failed the registered
	// predicate. The message is queued for replay, not dropped.
	ErrNoMatch = fmt.Errorf("message does not match wait-condition")
)

// A Token names the wait-condition a suspended task is blocked on. At most
// one wait may be pending per token at any time.
type Token string

// A Pred decides whether an inbound message satisfies a wait-condition.
type Pred func(msg interface{}) bool

// A Frame is the continuation of a suspended step: it receives the awaited
// value and yields the next step.
type Frame func(v interface{}) Yield

// A Task is a runnable unit of decision logic.
type Task func() Yield

type Yield interface {
	isYield()
}

type waitYield struct {
	token Token
	pred  Pred
	next  Frame
}

type callYield struct {
	child Task
	next  Frame
}

type doneYield struct {
	value interface{}
}

func (waitYield) isYield() {}
func (callYield) isYield() {}
func (doneYield) isYield() {}

// Wait suspends the running task until a message matching pred is offered
// under token, then continues with next.
func Wait(token Token, pred Pred, next Frame) Yield {
	return waitYield{token: token, pred: pred, next: next}
}

// Call runs child to completion and delivers its result to next. A child
// suspending transitively suspends the caller.
func Call(child Task, next Frame) Yield { return callYield{child: child, next: next} }

// Done completes the running task with value. If the task was called by a
// parent, value is delivered into the parent's continuation.
func Done(value interface{}) Yield { return doneYield{value: value} }

// Pure is a task that immediately completes with value.
func Pure(value interface{}) Task {
	return func() Yield { return Done(value) }
}

// Bind sequences t with k: when t completes, its result picks the next task.
func Bind(t Task, k func(v interface{}) Task) Task {
	return func() Yield {
		return Call(t, func(v interface{}) Yield { return k(v)() })
	}
}

// Seq runs tasks in order, completing with the last result.
func Seq(tasks ...Task) Task {
	if len(tasks) == 0 {
		return Pure(nil)
	}
	t := tasks[0]
	for _, rest := range tasks[1:] {
		next := rest
		t = Bind(t, func(interface{}) Task { return next })
	}
	return t
}

type pendingWait struct {
	pred  Pred
	next  Frame
	stack []Frame
	done  func(interface{})
}

// A Reactor tracks suspended tasks by wait token and the replay queues of
// messages that arrived without matching an active wait-condition.
type Reactor struct {
	waiting map[Token]*pendingWait
	parked  map[Token]*pendingWait
	queued  map[Token][]interface{}
}

func New() *Reactor {
	return &Reactor{
		waiting: map[Token]*pendingWait{},
		parked:  map[Token]*pendingWait{},
		queued:  map[Token][]interface{}{},
	}
}

// Start runs t up to its first suspension or completion. If the task (or any
// task it transitively resumes into) completes, done receives its value.
func (r *Reactor) Start(t Task, done func(interface{})) error {
	return r.run(t(), nil, done)
}

func (r *Reactor) run(y Yield, stack []Frame, done func(interface{})) error {
	for {
		switch v := y.(type) {
		case waitYield:
			// Evaluate the replay queue, in original order, before
			// suspending on fresh input.
			if msg, ok := r.takeQueued(v.token, v.pred); ok {
				y = v.next(msg)
				continue
			}
			if _, ok := r.waiting[v.token]; ok {
				return ErrTokenBusy
			}
			if _, ok := r.parked[v.token]; ok {
				return ErrTokenBusy
			}
			r.waiting[v.token] = &pendingWait{pred: v.pred, next: v.next, stack: stack, done: done}
			return nil
		case callYield:
			stack = append(stack, v.next)
			y = v.child()
		case doneYield:
			if len(stack) == 0 {
				if done != nil {
					done(v.value)
				}
				return nil
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			y = f(v.value)
		default:
			return fmt.Errorf("unknown yield %T", y)
		}
	}
}

func (r *Reactor) takeQueued(token Token, pred Pred) (interface{}, bool) {
	q := r.queued[token]
	for i, msg := range q {
		if pred(msg) {
			r.queued[token] = append(q[:i:i], q[i+1:]...)
			if len(r.queued[token]) == 0 {
				delete(r.queued, token)
			}
			return msg, true
		}
	}
	return nil, false
}

// Waiting reports whether a wait is pending (and not parked) under token.
func (r *Reactor) Waiting(token Token) bool {
	_, ok := r.waiting[token]
	return ok
}

// Parked reports whether token's wait has been set aside by Park.
func (r *Reactor) Parked(token Token) bool {
	_, ok := r.parked[token]
	return ok
}

// Resume feeds msg to the task suspended under token. If msg fails the
// registered predicate the task stays suspended and msg is queued for the
// next predicate evaluation; the caller is told via ErrNoMatch.
func (r *Reactor) Resume(token Token, msg interface{}) error {
	p, ok := r.waiting[token]
	if !ok {
		return ErrNoWait
	}
	if !p.pred(msg) {
		r.queued[token] = append(r.queued[token], msg)
		return ErrNoMatch
	}
	delete(r.waiting, token)
	return r.run(p.next(msg), p.stack, p.done)
}

// Offer is Resume for dispatch loops: a non-matching message is queued and
// reported as not consumed rather than as an error.
func (r *Reactor) Offer(token Token, msg interface{}) (bool, error) {
	err := r.Resume(token, msg)
	switch err {
	case nil:
		return true, nil
	case ErrNoMatch:
		return false, nil
	default:
		return false, err
	}
}

// Park sets aside the pending wait under token, typically because its
// participant disconnected. A parked wait cannot be resumed by messages;
// Poke reactivates it.
func (r *Reactor) Park(token Token) bool {
	p, ok := r.waiting[token]
	if !ok {
		return false
	}
	delete(r.waiting, token)
	r.parked[token] = p
	return true
}

// Poke reactivates a parked wait by resuming its task with a nil value. The
// task is expected to treat nil as a reconnection signal and re-issue its
// prompt and wait.
func (r *Reactor) Poke(token Token) error {
	p, ok := r.parked[token]
	if !ok {
		return ErrNoWait
	}
	delete(r.parked, token)
	return r.run(p.next(nil), p.stack, p.done)
}

// Cancel drops any pending or parked wait and the replay queue for token.
// The suspended task, if any, is abandoned.
func (r *Reactor) Cancel(token Token) {
	delete(r.waiting, token)
	delete(r.parked, token)
	delete(r.queued, token)
}

// QueueLen reports how many unconsumed messages are queued under token.
func (r *Reactor) QueueLen(token Token) int { return len(r.queued[token]) }

// Pending reports the total number of pending and parked waits.
func (r *Reactor) Pending() int { return len(r.waiting) + len(r.parked) }
