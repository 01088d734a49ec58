// Package core owns the compositor's central data model: outputs, tags,
// windows, binds, and the window-rule engine that initializes them.
package core

import "sync/atomic"

// TagId identifies a Tag for the lifetime of one compositor run.
type TagId uint32

// WindowId identifies a Window for the lifetime of one compositor run.
type WindowId uint32

// BindId identifies a registered keybind or mousebind.
type BindId uint32

// TransactionId identifies a Transaction handed out by the Transaction Engine.
type TransactionId uint32

// RequestId identifies a layout request issued to the configuration process.
type RequestId uint32

// IdAllocator hands out process-wide monotonically increasing ids of one
// kind. Reset() is called on configuration reload, per spec.md §3: prior
// references become dangling sentinels that resolve to "not found" rather
// than being reused.
type IdAllocator struct {
	next atomic.Uint32
}

// Next returns a fresh, never-before-issued (since the last Reset) value.
func (a *IdAllocator) Next() uint32 {
	return a.next.Add(1)
}

// Reset returns the allocator to its initial state. Only ever called from
// the state-loop goroutine during a configuration reload.
func (a *IdAllocator) Reset() {
	a.next.Store(0)
}

// Allocators bundles one IdAllocator per id kind so the State Store can
// reset all of them together on reload.
type Allocators struct {
	Tags         IdAllocator
	Windows      IdAllocator
	Binds        IdAllocator
	Transactions IdAllocator
	Requests     IdAllocator
}

// NextTag allocates a fresh TagId.
func (a *Allocators) NextTag() TagId { return TagId(a.Tags.Next()) }

// NextWindow allocates a fresh WindowId.
func (a *Allocators) NextWindow() WindowId { return WindowId(a.Windows.Next()) }

// NextBind allocates a fresh BindId.
func (a *Allocators) NextBind() BindId { return BindId(a.Binds.Next()) }

// NextTransaction allocates a fresh TransactionId.
func (a *Allocators) NextTransaction() TransactionId { return TransactionId(a.Transactions.Next()) }

// NextRequest allocates a fresh RequestId.
func (a *Allocators) NextRequest() RequestId { return RequestId(a.Requests.Next()) }

// ResetAll resets every allocator. Called once per configuration reload.
func (a *Allocators) ResetAll() {
	a.Tags.Reset()
	a.Windows.Reset()
	a.Binds.Reset()
	a.Transactions.Reset()
	a.Requests.Reset()
}
