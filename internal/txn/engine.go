package txn

import (
	"time"

	"github.com/bnema/pinnacle/internal/core"
	"github.com/bnema/pinnacle/internal/logger"
	"github.com/google/uuid"
)

// Engine coordinates the full set of in-flight Transactions, per spec.md
// §4.5. It must only be driven from the state-loop goroutine; Post is used
// to hop a deadline-timer callback (which fires on its own goroutine, per
// spec.md §4.1's suspension-point list) back onto the loop.
type Engine struct {
	alloc  *core.Allocators
	active map[core.TransactionId]*Transaction

	// pendingByWindow tracks, for each window with an unresolved entry in
	// some transaction, which transaction it belongs to — the Go
	// equivalent of spec.md §3's "windows hold weak references to pending
	// transactions."
	pendingByWindow map[core.WindowId]core.TransactionId

	// Post schedules fn to run on the state-loop goroutine. Required.
	Post func(fn func())

	// AfterFunc schedules fn to run once after d elapses, returning a
	// cancel function; overridable in tests. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, fn func()) func()
}

// NewEngine constructs an Engine. post is the closure-posting primitive the
// State Store exposes (spec.md §4.1).
func NewEngine(alloc *core.Allocators, post func(fn func())) *Engine {
	return &Engine{
		alloc:           alloc,
		active:          make(map[core.TransactionId]*Transaction),
		pendingByWindow: make(map[core.WindowId]core.TransactionId),
		Post:            post,
		AfterFunc: func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
	}
}

// Commit finalizes a Builder into a live Transaction, schedules its
// deadline timer, and registers each participant as pending, per spec.md
// §4.5 step 2. onDone is invoked (on the state-loop goroutine) exactly once,
// when the transaction completes (whether by full ack or by deadline).
func (e *Engine) Commit(b *Builder, onDone func(*Transaction)) *Transaction {
	id := core.TransactionId(e.alloc.NextTransaction())
	tx := &Transaction{
		Id:       id,
		TraceId:  uuid.NewString(),
		entries:  b.entries,
		deadline: time.Now().Add(b.deadline),
		state:    Pending,
		onDone:   onDone,
	}
	e.active[id] = tx
	for w := range b.entries {
		e.pendingByWindow[w] = id
	}

	tx.cancelTimer = e.AfterFunc(b.deadline, func() {
		e.Post(func() { e.onDeadline(id) })
	})

	return tx
}

// Resolve matches an acked configure-serial against the window's pending
// transaction entry, per spec.md §4.5 step 3. It returns whether this
// resolution completed the transaction (because it was the last entry).
func (e *Engine) Resolve(w core.WindowId, acked Serial) bool {
	txId, ok := e.pendingByWindow[w]
	if !ok {
		return false
	}
	tx, ok := e.active[txId]
	if !ok {
		delete(e.pendingByWindow, w)
		return false
	}
	ent, ok := tx.entries[w]
	if !ok || ent.resolved {
		return false
	}
	if acked != ent.expected {
		return false // stale/mismatched ack; entry stays pending
	}

	last := tx.Last()
	ent.resolved = true
	delete(e.pendingByWindow, w)

	if last {
		e.complete(tx)
		return true
	}
	return false
}

// Unmap treats w's pending entry (if any) as resolved, per spec.md §4.5
// "Safety": a participant may unmap during a pending transaction.
func (e *Engine) Unmap(w core.WindowId) {
	txId, ok := e.pendingByWindow[w]
	if !ok {
		return
	}
	tx, ok := e.active[txId]
	if !ok {
		delete(e.pendingByWindow, w)
		return
	}
	ent, ok := tx.entries[w]
	if !ok || ent.resolved {
		return
	}
	last := tx.Last()
	ent.resolved = true
	ent.unmapped = true
	delete(e.pendingByWindow, w)
	if last {
		e.complete(tx)
	}
}

// onDeadline fires when a transaction's deadline elapses without every
// participant acking. Per spec.md §4.5 "Safety": released at the deadline;
// partial completion is allowed.
func (e *Engine) onDeadline(id core.TransactionId) {
	tx, ok := e.active[id]
	if !ok {
		return // already completed via full ack
	}
	logger.Debugf("transaction %s deadline reached with unresolved participants", tx.TraceId)
	e.complete(tx)
}

// complete transitions tx to Completed, clears bookkeeping, and invokes its
// completion callback exactly once.
func (e *Engine) complete(tx *Transaction) {
	if tx.state == Completed {
		return
	}
	tx.state = Completed
	for w, ent := range tx.entries {
		if !ent.resolved {
			delete(e.pendingByWindow, w)
		}
	}
	delete(e.active, tx.Id)
	if tx.cancelTimer != nil {
		tx.cancelTimer()
	}
	if tx.onDone != nil {
		tx.onDone(tx)
	}
}

// Active returns the number of transactions still pending completion,
// mainly for diagnostics/tests.
func (e *Engine) Active() int {
	return len(e.active)
}
