package fs

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jiebaomaster/babyfs/common"
)

// Volume is the live per-mount context. It owns exactly one pinned block
// buffer (the one backing the superblock mirror) and the decoded mirror
// itself, and lives from a successful mount until put-super.
type Volume struct {
	SessionID uuid.UUID // identifies this mount session in logs

	devnum int
	dev    common.BlockDevice
	cache  common.BlockCache
	pool   common.InodePool

	sbuf  *common.CacheBlock // the pinned buffer backing the mirror
	Super *common.Superblock // the decoded descriptor, immutable here
	Info  common.DeviceInfo  // per-volume parameters, passed explicitly

	ops      common.VolumeOps
	root     *common.Inode
	readonly bool

	m        sync.Mutex
	released bool
}

// Ops returns the volume's operation table.
func (vol *Volume) Ops() common.VolumeOps {
	return vol.ops
}

// Root returns the root inode object loaded at mount.
func (vol *Volume) Root() *common.Inode {
	return vol.root
}

// PutSuper releases the volume's resources: the single pinned buffer
// goes back to the cache without flushing the mirror into it first.
// Safe to call more than once and on a volume that never finished
// mounting; repeated calls are no-ops.
func (vol *Volume) PutSuper() error {
	if vol == nil {
		return nil
	}

	vol.m.Lock()
	defer vol.m.Unlock()

	if vol.released {
		return nil
	}
	vol.released = true

	var err error
	if vol.sbuf != nil {
		err = vol.cache.PutBlock(vol.sbuf)
		vol.sbuf = nil
	}
	vol.Super = nil
	return err
}

// DirEntry is the attachment point handed to the rest of the system once
// a mount succeeds. The directory-entry subsystem proper lives outside
// this core; we only supply the backing inode.
type DirEntry struct {
	Name   string
	Inode  *common.Inode
	Volume *Volume
}

// makeRoot builds the root directory entry from the root inode.
func makeRoot(vol *Volume) (*DirEntry, error) {
	if vol.root == nil || !vol.root.IsDirectory() {
		return nil, common.ErrRootEntry
	}
	return &DirEntry{Name: "/", Inode: vol.root, Volume: vol}, nil
}

// volumeOps is the babyfs implementation of the per-volume operation
// table.
type volumeOps struct {
	mod *Module
	vol *Volume
}

var _ common.VolumeOps = (*volumeOps)(nil)

// StatFS serves generic usage figures from the in-memory mirror; the
// device is not touched.
func (ops *volumeOps) StatFS() common.StatInfo {
	sup := ops.vol.Super
	if sup == nil {
		return common.StatInfo{}
	}
	return common.StatInfo{
		Blocksize:      ops.vol.Info.Blocksize,
		NrDstoreBlocks: sup.NrDstoreBlocks,
		NrInodes:       sup.NrInodes,
		NrFreeInodes:   sup.NrFreeInodes,
		NrFreeBlocks:   sup.NrFreeBlocks,
	}
}

func (ops *volumeOps) AllocInode() (*common.Inode, error) {
	return ops.mod.pool.Allocate()
}

func (ops *volumeOps) DestroyInode(rip *common.Inode) {
	ops.mod.pool.RequestDestroy(rip)
}

func (ops *volumeOps) WriteInode(rip *common.Inode, sync bool) error {
	return ops.mod.WriteInode(ops.vol, rip, sync)
}

func (ops *volumeOps) Teardown() error {
	return ops.vol.PutSuper()
}
