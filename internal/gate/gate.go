// Package gate implements FacileDB's Concurrency Gate (spec.md §4.5): a
// per-handle single-writer / multi-reader admission gate built from a mutex
// and three condition variables, layered over an advisory whole-file lock
// so independent processes cooperate too.
//
// Every set handle and every index handle owns one Gate. The in-process
// admission decision is made first; the cross-process file lock is taken
// only after that decision and released before the in-process release
// signals waiting peers (spec.md §9, "Cross-process file locking vs.
// in-process waiting") — otherwise a released peer could wake only to
// immediately block on a file lock the releasing writer still holds.
package gate

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Status is one state of the per-handle state machine (spec.md §4.5).
type Status int

const (
	Released Status = iota
	Starting
	Ready
	Reading
	Writing
	Closing
)

func (s Status) String() string {
	switch s {
	case Released:
		return "released"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Reading:
		return "reading"
	case Writing:
		return "writing"
	case Closing:
		return "closing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Gate is the admission gate for one set or index handle.
type Gate struct {
	name string
	log  *zap.SugaredLogger

	mu        sync.Mutex
	readCond  *sync.Cond
	writeCond *sync.Cond
	closeCond *sync.Cond

	status        Status
	readerCount   int
	readerWaiting int
	writerWaiting int

	// pinned counts handles recently returned by procctx.Context's
	// GetSet/GetIndex that haven't reached AcquireRead/AcquireWrite yet.
	// Without it, CloseWait could observe Ready/zero-waiters and evict a
	// handle a concurrent caller already holds a reference to but hasn't
	// gated yet.
	pinned int

	// file, when non-nil, is flock'd exclusively for the whole duration of
	// a write and shared while at least one in-process reader is active.
	file *os.File
}

// New creates a Gate in the Ready state for the named handle. file may be
// nil for tests or purely in-process usage that doesn't need cross-process
// locking.
func New(name string, file *os.File, log *zap.SugaredLogger) *Gate {
	g := &Gate{name: name, file: file, log: log, status: Ready}
	g.readCond = sync.NewCond(&g.mu)
	g.writeCond = sync.NewCond(&g.mu)
	g.closeCond = sync.NewCond(&g.mu)
	return g
}

// Pin marks the gate as handed out but not yet gated, keeping CloseWait
// from evicting it out from under a caller that holds the reference
// procctx.Context.GetSet/GetIndex just returned but hasn't reached
// AcquireRead/AcquireWrite yet. Every Pin must be matched by exactly one
// later AcquireRead or AcquireWrite call on the same Gate, which consumes
// the pin as its first step, even if the acquire itself then fails.
func (g *Gate) Pin() {
	g.mu.Lock()
	g.pinned++
	g.mu.Unlock()
}

// AcquireWrite blocks until the gate admits a single writer, then takes the
// exclusive file lock. Writers have priority over newly arriving readers.
func (g *Gate) AcquireWrite() error {
	g.mu.Lock()
	g.pinned--
	g.writerWaiting++
	for g.status != Ready {
		g.writeCond.Wait()
	}
	g.writerWaiting--
	g.status = Writing
	g.mu.Unlock()

	if g.file != nil {
		if err := unix.Flock(int(g.file.Fd()), unix.LOCK_EX); err != nil {
			g.mu.Lock()
			g.status = Ready
			g.mu.Unlock()
			return fmt.Errorf("gate %s: acquire exclusive file lock: %w", g.name, err)
		}
	}
	return nil
}

// ReleaseWrite releases the exclusive file lock and returns the gate to
// Ready, waking a waiting writer, or else all waiting readers, or else a
// single close waiter.
func (g *Gate) ReleaseWrite() {
	if g.file != nil {
		if err := unix.Flock(int(g.file.Fd()), unix.LOCK_UN); err != nil {
			g.log.Warnw("failed to release exclusive file lock", "gate", g.name, "error", err)
		}
	}

	g.mu.Lock()
	g.status = Ready
	switch {
	case g.writerWaiting > 0:
		g.writeCond.Signal()
	case g.readerWaiting > 0:
		g.readCond.Broadcast()
	default:
		g.closeCond.Signal()
	}
	g.mu.Unlock()
}

// AcquireRead blocks until the gate admits another reader. The first
// concurrent in-process reader also takes the shared file lock.
func (g *Gate) AcquireRead() error {
	g.mu.Lock()
	g.pinned--
	g.readerWaiting++
	for !((g.status == Reading || g.status == Ready) && g.writerWaiting == 0) {
		g.readCond.Wait()
	}
	g.readerWaiting--
	g.readerCount++
	first := g.readerCount == 1
	g.status = Reading
	g.mu.Unlock()

	if first && g.file != nil {
		if err := unix.Flock(int(g.file.Fd()), unix.LOCK_SH); err != nil {
			g.mu.Lock()
			g.readerCount--
			if g.readerCount == 0 {
				g.status = Ready
			}
			g.mu.Unlock()
			return fmt.Errorf("gate %s: acquire shared file lock: %w", g.name, err)
		}
	}
	return nil
}

// ReleaseRead decrements the reader count; the last reader to leave releases
// the shared file lock and, if no writer is waiting either, wakes a close
// waiter.
func (g *Gate) ReleaseRead() {
	g.mu.Lock()
	g.readerCount--
	last := g.readerCount == 0
	if last {
		g.status = Ready
	}
	writerWaiting := g.writerWaiting
	readerWaiting := g.readerWaiting
	g.mu.Unlock()

	if last && g.file != nil {
		if err := unix.Flock(int(g.file.Fd()), unix.LOCK_UN); err != nil {
			g.log.Warnw("failed to release shared file lock", "gate", g.name, "error", err)
		}
	}

	g.mu.Lock()
	switch {
	case writerWaiting > 0:
		g.writeCond.Signal()
	case last && readerWaiting == 0:
		g.closeCond.Signal()
	}
	g.mu.Unlock()
}

// CloseWait blocks until the gate is Ready with no readers, no waiters, and
// no outstanding pins, then transitions to Closing. Callers must hold no
// other reference to the handle once this returns; a new Gate is required
// to reuse the name.
func (g *Gate) CloseWait() {
	g.mu.Lock()
	for !(g.status == Ready && g.pinned <= 0 && g.readerCount == 0 && g.readerWaiting == 0 && g.writerWaiting == 0) {
		g.closeCond.Wait()
	}
	g.status = Closing
	g.mu.Unlock()
}

// Status returns the gate's current state, for logging and tests.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
