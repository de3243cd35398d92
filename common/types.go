package common

// Node is the generic node record owned by the surrounding runtime
// layer. The filesystem never extends it by embedding; the private Inode
// record links back to it instead.
type Node struct {
	Ino    uint64 // inode number, 0 when the node is unbound
	Mode   uint16 // file type and protection bits
	Nlinks uint16 // number of directory entries referring to this node
	Uid    uint16
	Gid    uint16
	Size   uint32 // current file size in bytes
	Atime  uint32
	Mtime  uint32
	Ctime  uint32
}

// Inode is the filesystem-private extension of a Node, allocated from
// the inode object pool. BlockList is the only range of the object that
// may be copied to or from caller-controlled buffers.
type Inode struct {
	Node *Node // back-reference to the generic record

	BlockList [NrBlockPtrs]uint32 // block-location list

	Devnum int  // device this inode was loaded from, NO_DEV if none
	Dirty  bool // whether the inode has uncommitted changes
}

// IsDirectory reports whether the node carries the directory type bit.
func (rip *Inode) IsDirectory() bool {
	return rip.Node != nil && rip.Node.Mode&ModeDirectory > 0
}

// DeviceInfo carries the decoded per-volume parameters. It is built from
// the superblock mirror at mount and passed explicitly to every function
// that needs it; there is no process-wide copy.
type DeviceInfo struct {
	Blocksize      int    // the fixed logical block size
	NrDstoreBlocks uint32 // number of data-store blocks on the volume
	RootInode      uint64 // inode number of the root directory
	NrInodes       uint32 // number of inode table entries
	Devnum         int    // slot of this device in the block cache
}

// CacheBlock is a pinned in-memory copy of one on-disk block. It stays
// exclusively with its holder until handed back with PutBlock; putting
// it back does not imply the data is flushed.
type CacheBlock struct {
	Data     []byte // one block of raw device data
	Blocknum int    // the number of this block
	Devnum   int    // the device number of this block
	Dirty    bool   // whether the block has uncommitted changes

	Buf interface{} // the cache-policy specific block
}

// StatInfo reports generic volume usage figures, served entirely from
// the in-memory superblock mirror.
type StatInfo struct {
	Blocksize      int
	NrDstoreBlocks uint32
	NrInodes       uint32
	NrFreeInodes   uint32
	NrFreeBlocks   uint32
}

// BlockDevice is a random-access block device. Read and Write transfer
// exactly len(buf) bytes at the given byte offset and may block the
// calling goroutine for the duration of the I/O.
type BlockDevice interface {
	Read(buf []byte, pos int64) error
	Write(buf []byte, pos int64) error
	SectorSize() int
	Close() error
}

// BlockCache manages pinned block buffers for every mounted device.
type BlockCache interface {
	MountDevice(devnum int, dev BlockDevice, info DeviceInfo) error
	UnmountDevice(devnum int) error
	GetBlock(devnum, bnum int) (*CacheBlock, error)
	PutBlock(cb *CacheBlock) error
	Invalidate(devnum int)
	Flush(devnum int)
	Releases() int
	Shutdown() error
}

// ReadHandle brackets a reader-side grace period. An inode obtained
// before RequestDestroy may be dereferenced safely until Exit is called.
type ReadHandle interface {
	Exit()
}

// InodePool is the process-wide pooled allocator for Inode objects.
// Allocate and RequestDestroy are safe for concurrent use without
// external locking. RequestDestroy is asynchronous: the slot is recycled
// only after every reader that entered before the call has exited.
type InodePool interface {
	Allocate() (*Inode, error)
	RequestDestroy(rip *Inode)
	ReadEnter() ReadHandle
	Drain()
	Teardown() error
}

// VolumeOps is the operation table a mounted volume exposes to the
// runtime layer. Each volume holds its own instance, so several
// filesystem variants can coexist in one process.
type VolumeOps interface {
	StatFS() StatInfo
	AllocInode() (*Inode, error)
	DestroyInode(rip *Inode)
	WriteInode(rip *Inode, sync bool) error
	Teardown() error
}
