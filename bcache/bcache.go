package bcache

import (
	"sync"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"

	"github.com/jiebaomaster/babyfs/common"
)

var log = logging.Logger("bcache")

// An elaboration of the CacheBlock type, decorated with the members we
// need to handle the LRU cache policy.
type lru_buf struct {
	*common.CacheBlock

	count   int      // the number of clients of this block
	onchain bool     // whether the block sits on the LRU chain
	next    *lru_buf // used to link all free bufs in a chain
	prev    *lru_buf // used to link all free bufs the other way

	b_hash *lru_buf // used to link all bufs for a hash mask together

	waiting []chan resBlockCache // a list of waiting get requests
	m       *sync.Mutex          // mutex for the waiting slice
}

type LRUCache struct {
	devices []common.BlockDevice
	devinfo []common.DeviceInfo

	buf       []*lru_buf // static list of cache blocks
	buf_hash  []*lru_buf // the buffer hash table
	hash_mask int        // the mask for entries in the buffer hash table
	front     *lru_buf   // a pointer to the least recently used block
	rear      *lru_buf   // a pointer to the most recently used block

	releases atomic.Int64 // number of blocks handed back so far

	in  chan reqBlockCache
	out chan resBlockCache
}

// NewLRUCache creates a new LRUCache with the given number of device
// slots, buffer slots and hash table entries.
func NewLRUCache(numdevices int, numslots int, numhash int) common.BlockCache {
	cache := &LRUCache{
		devices:  make([]common.BlockDevice, numdevices),
		devinfo:  make([]common.DeviceInfo, numdevices),
		buf:      make([]*lru_buf, numslots),
		buf_hash: make([]*lru_buf, numhash),
		in:       make(chan reqBlockCache),
		out:      make(chan resBlockCache),
	}

	// Create all of the entries in buf ahead of time
	for i := 0; i < numslots; i++ {
		cache.buf[i] = new(lru_buf)
		cache.buf[i].CacheBlock = new(common.CacheBlock)
		cache.buf[i].Devnum = common.NO_DEV
		cache.buf[i].onchain = true
		cache.buf[i].m = new(sync.Mutex)
	}

	for i := 1; i < numslots-1; i++ {
		cache.buf[i].prev = cache.buf[i-1]
		cache.buf[i].next = cache.buf[i+1]
	}

	cache.front = cache.buf[0]
	cache.front.next = cache.buf[1]

	cache.rear = cache.buf[numslots-1]
	cache.rear.prev = cache.buf[numslots-2]

	for i := 0; i < numslots-1; i++ {
		cache.buf[i].b_hash = cache.buf[i].next
	}

	cache.buf_hash[0] = cache.front
	cache.hash_mask = numhash - 1

	// Start the main processing loop
	go cache.loop()
	return cache
}

func (c *LRUCache) loop() {
	alive := true
	for alive {
		req := <-c.in
		switch req := req.(type) {
		case req_BlockCache_MountDevice:
			if c.devices[req.devnum] != nil {
				c.out <- res_BlockCache_MountDevice{common.EBUSY}
				continue
			}
			c.devices[req.devnum] = req.dev
			c.devinfo[req.devnum] = req.info
			c.out <- res_BlockCache_MountDevice{nil}
		case req_BlockCache_UnmountDevice:
			c.flush(req.devnum)
			c.devices[req.devnum] = nil
			c.out <- res_BlockCache_UnmountDevice{nil}
		case req_BlockCache_GetBlock:
			callback := make(chan resBlockCache)

			if req.devnum < 0 || req.devnum >= len(c.devices) || c.devices[req.devnum] == nil {
				c.out <- res_BlockCache_Async{callback}
				callback <- res_BlockCache_GetBlock{nil, common.EINVAL}
				continue
			}

			// search for the desired block in the cache
			var bp *lru_buf
			b := req.bnum & c.hash_mask
			for bp = c.buf_hash[b]; bp != nil; bp = bp.b_hash {
				if bp.Blocknum == req.bnum && bp.Devnum == req.devnum {
					// we found what we were looking for!
					break
				}
			}

			if bp != nil {
				bp.m.Lock()
				if len(bp.waiting) > 0 {
					// this block is being loaded asynchronously, join the
					// waiting list
					bp.count++
					bp.waiting = append(bp.waiting, callback)
					bp.m.Unlock()
					// the server stays available for other requests; this
					// one finishes when the load completes.
					c.out <- res_BlockCache_Async{callback}
				} else {
					// the block is ready now, so return it
					if bp.count == 0 {
						// block was idle on the LRU chain, reclaim it
						c.rm_lru(bp)
					}
					bp.count++
					bp.m.Unlock()
					c.out <- res_BlockCache_Async{callback}
					callback <- res_BlockCache_GetBlock{bp.CacheBlock, nil}
				}
			} else {
				// We will need to load the block from the backing store,
				// asynchronously. Any get requests performed during this
				// load are queued and woken in FIFO order.
				bp := c.evictBlock()
				if bp == nil {
					// every slot is pinned
					c.out <- res_BlockCache_Async{callback}
					callback <- res_BlockCache_GetBlock{nil, common.ErrAlloc}
				} else {
					bp.m.Lock()
					bp.count++
					bp.waiting = append(bp.waiting, callback)
					bp.m.Unlock()

					c.loadSlot(bp, req.devnum, req.bnum)
					c.out <- res_BlockCache_Async{callback}

					// perform the device read asynchronously
					bdev := c.devices[req.devnum]
					pos := int64(c.devinfo[req.devnum].Blocksize) * int64(req.bnum)
					go func() {
						err := bdev.Read(bp.Data, pos)
						bp.m.Lock()
						cb := bp.CacheBlock
						if err != nil {
							// nobody may keep a failed load pinned
							log.Errorf("read of block %d from device %d failed: %s",
								req.bnum, req.devnum, err)
							bp.Devnum = common.NO_DEV
							bp.count -= len(bp.waiting)
							cb = nil
						}
						for _, callback := range bp.waiting {
							callback <- res_BlockCache_GetBlock{cb, err}
						}
						bp.waiting = nil
						bp.m.Unlock()
						// a failed slot is left off the LRU chain and is
						// rescued by the next eviction scan
					}()
				}
			}
		case req_BlockCache_PutBlock:
			err := c.putBlock(req.cb)
			c.releases.Add(1)
			c.out <- res_BlockCache_PutBlock{err}
		case req_BlockCache_Invalidate:
			c.invalidate(req.devnum)
			c.out <- res_BlockCache_Invalidate{}
		case req_BlockCache_Flush:
			c.flush(req.devnum)
			c.out <- res_BlockCache_Flush{}
		case req_BlockCache_Shutdown:
			busy := false
			for i := 0; i < len(c.devices); i++ {
				if c.devices[i] != nil {
					busy = true
				}
			}
			if busy {
				c.out <- res_BlockCache_Shutdown{common.EBUSY}
				continue
			}
			c.out <- res_BlockCache_Shutdown{nil}
			alive = false
		}
	}
}

func (c *LRUCache) evictBlock() *lru_buf {
	// Take the oldest block ('front' of the LRU chain)
	bp := c.front
	if bp == nil {
		// The chain may be empty while an idle slot exists: a failed
		// load drops its slot without re-chaining it. Rescue one.
		bp = c.rescueOrphan()
		if bp == nil {
			// all buffers are pinned; the caller turns this into an error
			return nil
		}
	} else {
		c.rm_lru(bp)
	}

	// Remove the block that was just taken from its hash chain
	b := bp.Blocknum & c.hash_mask
	prev_ptr := c.buf_hash[b]
	if prev_ptr == bp {
		c.buf_hash[b] = bp.b_hash
	} else if prev_ptr != nil {
		// The block just taken is not on the front of its hash chain
		for prev_ptr.b_hash != nil {
			if prev_ptr.b_hash == bp {
				prev_ptr.b_hash = bp.b_hash // found it
				break
			} else {
				prev_ptr = prev_ptr.b_hash // keep looking
			}
		}
	}
	bp.b_hash = nil

	// If the block taken is dirty, make it clean by writing it to the
	// disk. Avoid hysteresis by flushing all other dirty blocks for the
	// same device.
	if bp.Devnum != common.NO_DEV && bp.Dirty {
		c.flush(bp.Devnum)
	}

	return bp
}

// rescueOrphan scans for a slot that is idle but off the LRU chain,
// which is how a failed load leaves its buffer behind.
func (c *LRUCache) rescueOrphan() *lru_buf {
	for i := 0; i < len(c.buf); i++ {
		bp := c.buf[i]
		if bp.onchain {
			continue
		}
		bp.m.Lock()
		idle := bp.count == 0 && len(bp.waiting) == 0 && bp.Devnum == common.NO_DEV
		bp.m.Unlock()
		if idle {
			return bp
		}
	}
	return nil
}

// loadSlot binds an evicted buffer slot to a new device block and hooks
// it into the hash chain; the device read itself happens asynchronously.
func (c *LRUCache) loadSlot(bp *lru_buf, dev, bnum int) {
	// We rely on the garbage collector for the actual block data, so
	// toss what we have here and allocate a fresh block. This avoids
	// aliasing data still visible to a previous holder.
	bp.Data = make([]byte, c.devinfo[dev].Blocksize)

	bp.Devnum = dev
	bp.Blocknum = bnum
	bp.Dirty = false
	b := bp.Blocknum & c.hash_mask
	bp.b_hash = c.buf_hash[b]
	c.buf_hash[b] = bp
	bp.Buf = bp
}

// Return a block to the list of available blocks. A pinned block stays
// where it is until its last holder has put it back; only then is it
// appended to the rear of the LRU chain. Handing a block back does not
// write it out; dirty blocks are flushed on eviction or explicit Flush.
func (c *LRUCache) putBlock(cb *common.CacheBlock) error {
	if cb == nil {
		return nil
	}

	// We can find the lru_buf that corresponds to the given CacheBlock
	// by checking the 'Buf' field and coercing it.
	bp := cb.Buf.(*lru_buf)

	bp.m.Lock()
	bp.count--
	stillUsed := bp.count > 0
	bp.m.Unlock()
	if stillUsed {
		return nil
	}

	// Block will likely be needed again soon, so put it on the rear of
	// the LRU chain where it will be the last to be evicted.
	bp.prev = c.rear
	bp.next = nil
	if c.rear == nil {
		c.front = bp
	} else {
		c.rear.next = bp
	}
	c.rear = bp
	bp.onchain = true

	return nil
}

func (c *LRUCache) invalidate(dev int) {
	for i := 0; i < len(c.buf); i++ {
		if c.buf[i].Devnum == dev {
			c.buf[i].Devnum = common.NO_DEV
		}
	}
}

func (c *LRUCache) flush(dev int) {
	if c.devices[dev] == nil {
		return
	}

	blocksize := int64(c.devinfo[dev].Blocksize)
	for i := 0; i < len(c.buf); i++ {
		bp := c.buf[i]
		if bp.Dirty && bp.Devnum == dev {
			pos := blocksize * int64(bp.Blocknum)
			if err := c.devices[dev].Write(bp.Data, pos); err != nil {
				log.Errorf("flush of block %d to device %d failed: %s",
					bp.Blocknum, dev, err)
				continue
			}
			bp.Dirty = false
		}
	}
}

// Remove a block from its LRU chain
func (c *LRUCache) rm_lru(bp *lru_buf) {
	nextp := bp.next
	prevp := bp.prev
	if prevp != nil {
		prevp.next = nextp
	} else {
		c.front = nextp
	}

	if nextp != nil {
		nextp.prev = prevp
	} else {
		c.rear = prevp
	}
	bp.next = nil
	bp.prev = nil
	bp.onchain = false
}
