// Package inodepool provides the process-wide pooled allocator for
// in-memory inode objects. Objects are carved from fixed slots, recycled
// rather than released to the heap, and destroyed asynchronously: a
// destroy request only schedules reclamation, which happens once every
// reader that entered before the request has left its read section.
package inodepool

import (
	"reflect"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"

	"github.com/jiebaomaster/babyfs/common"
)

var log = logging.Logger("inodepool")

// How often the background reclaimer sweeps the pending queue.
const reclaimInterval = 10 * time.Millisecond

var _ common.InodePool = (*Pool)(nil)

type slotState int

const (
	stateFree slotState = iota
	stateInUse
	stateDoomed // destroy requested, grace period running
)

type slot struct {
	rip   *common.Inode
	node  *common.Node
	state slotState
	gen   uint64 // generation recorded at the destroy request
}

type Pool struct {
	m    sync.Mutex
	cond *sync.Cond
	clk  clock.Clock

	slots  []*slot
	free   []*slot
	carved int
	index  map[*common.Inode]*slot

	gen     uint64         // current generation
	readers map[uint64]int // active readers keyed by entry generation
	pending []*slot        // doomed slots awaiting their grace period

	reclaimed int // slots physically recycled so far

	copyOff  uintptr // offset of the copy-safe range within Inode
	copySize uintptr // size of the copy-safe range

	done   chan struct{}
	closed bool
}

// New creates a pool with the given number of object slots. The per-slot
// initializer that constructs the generic node record runs exactly once
// per slot, the first time the slot is carved; recycling a slot does not
// rerun it. The block-location list is registered as the only range of
// the object that may be copied to or from caller-controlled buffers.
func New(size int, clk clock.Clock) (*Pool, error) {
	if size <= 0 {
		return nil, common.ErrAlloc
	}

	field, ok := reflect.TypeOf(common.Inode{}).FieldByName("BlockList")
	if !ok {
		return nil, common.ErrAlloc
	}

	p := &Pool{
		clk:      clk,
		slots:    make([]*slot, 0, size),
		index:    make(map[*common.Inode]*slot, size),
		readers:  make(map[uint64]int),
		copyOff:  field.Offset,
		copySize: field.Type.Size(),
		done:     make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.m)

	go p.reclaimer()

	return p, nil
}

// initOnce constructs a fresh slot: the generic node record is created
// and linked to the private record here and never again.
func (p *Pool) initOnce() *slot {
	s := &slot{
		rip:  new(common.Inode),
		node: new(common.Node),
	}
	s.rip.Node = s.node
	s.rip.Devnum = common.NO_DEV
	p.slots = append(p.slots, s)
	p.index[s.rip] = s
	return s
}

// Allocate returns a new or recycled inode object. The generic node
// fields are in a freshly constructed state; the filesystem-private
// fields keep whatever the previous user left and must be set before
// first use.
func (p *Pool) Allocate() (*common.Inode, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return nil, common.ErrAlloc
	}

	var s *slot
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
	} else if p.carved < cap(p.slots) {
		s = p.initOnce()
		p.carved++
	} else {
		log.Warnf("inode pool exhausted (%d slots)", cap(p.slots))
		return nil, common.ErrAlloc
	}

	s.state = stateInUse
	*s.node = common.Node{} // the runtime layer's fresh-node state
	s.rip.Dirty = false
	s.rip.Devnum = common.NO_DEV

	return s.rip, nil
}

// RequestDestroy schedules the object for reclamation. It never frees
// synchronously: the slot is recycled only after every reader that
// entered before this call has exited, so the caller must not assume the
// object is invalid when this returns.
func (p *Pool) RequestDestroy(rip *common.Inode) {
	p.m.Lock()
	defer p.m.Unlock()

	s, ok := p.index[rip]
	if !ok || s.state != stateInUse {
		// double destroy or foreign object
		log.Errorf("destroy requested for object not held from this pool")
		return
	}

	s.state = stateDoomed
	s.gen = p.gen
	p.gen++ // readers entering from now on do not hold this object back
	p.pending = append(p.pending, s)
}

type readHandle struct {
	p    *Pool
	gen  uint64
	once sync.Once
}

func (h *readHandle) Exit() {
	h.once.Do(func() {
		h.p.m.Lock()
		h.p.readers[h.gen]--
		if h.p.readers[h.gen] == 0 {
			delete(h.p.readers, h.gen)
		}
		h.p.m.Unlock()
		h.p.cond.Broadcast()
	})
}

// ReadEnter opens a read section. Objects obtained before a concurrent
// RequestDestroy stay dereferenceable until Exit is called on the
// returned handle.
func (p *Pool) ReadEnter() common.ReadHandle {
	p.m.Lock()
	defer p.m.Unlock()

	p.readers[p.gen]++
	return &readHandle{p: p, gen: p.gen}
}

// minReaderGen returns the lowest generation any active reader entered
// at, or ^uint64(0) when no reader is active. Callers hold p.m.
func (p *Pool) minReaderGen() uint64 {
	min := ^uint64(0)
	for g := range p.readers {
		if g < min {
			min = g
		}
	}
	return min
}

// tryReclaim recycles every doomed slot whose grace period has elapsed:
// no active reader entered at or before the slot's recorded generation.
// Callers hold p.m.
func (p *Pool) tryReclaim() {
	min := p.minReaderGen()

	kept := p.pending[:0]
	for _, s := range p.pending {
		if s.gen < min {
			s.state = stateFree
			p.free = append(p.free, s)
			p.reclaimed++
		} else {
			kept = append(kept, s)
		}
	}
	p.pending = kept
}

func (p *Pool) reclaimer() {
	ticker := p.clk.Ticker(reclaimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.m.Lock()
			p.tryReclaim()
			p.m.Unlock()
		case <-p.done:
			return
		}
	}
}

// Drain is the grace-period barrier: it blocks until every outstanding
// destroy request has been reclaimed.
func (p *Pool) Drain() {
	p.m.Lock()
	for {
		p.tryReclaim()
		if len(p.pending) == 0 {
			break
		}
		p.cond.Wait()
	}
	p.m.Unlock()
}

// Teardown drains all deferred reclamations, then releases the pool.
// Objects still allocated and never handed to RequestDestroy make the
// teardown fail; they would otherwise be freed out from under their
// holders.
func (p *Pool) Teardown() error {
	p.Drain()

	p.m.Lock()
	defer p.m.Unlock()

	if p.closed {
		return nil
	}

	for _, s := range p.slots {
		if s.state != stateFree {
			log.Errorf("pool teardown with live objects outstanding")
			return common.EBUSY
		}
	}

	p.closed = true
	close(p.done)
	p.free = nil
	p.pending = nil
	return nil
}

// Valid reports whether the object currently maps to a live (allocated
// or doomed-but-unreclaimed) slot.
func (p *Pool) Valid(rip *common.Inode) bool {
	p.m.Lock()
	defer p.m.Unlock()
	s, ok := p.index[rip]
	return ok && s.state != stateFree
}

// Reclaimed reports how many slots have been physically recycled.
func (p *Pool) Reclaimed() int {
	p.m.Lock()
	defer p.m.Unlock()
	return p.reclaimed
}

// CopyRange reports the registered copy-safe range of an inode object:
// the byte offset and size of the block-location list.
func (p *Pool) CopyRange() (offset, size uintptr) {
	return p.copyOff, p.copySize
}
