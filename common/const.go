package common

const (
	// BlockSize is the fixed logical block size of a babyfs volume. The
	// device must be able to honor it before any block is read.
	BlockSize = 1024

	// SuperMagic identifies a babyfs superblock in block 0.
	SuperMagic = 0xBABE0001

	// SuperBlockNum is the block index holding the volume descriptor.
	SuperBlockNum = 0

	// ItableBlockNum is the first block of the on-disk inode table.
	ItableBlockNum = 1

	// InodeSize is the size of one on-disk inode record.
	InodeSize = 128

	// InodesPerBlock is the number of inode records in one table block.
	InodesPerBlock = BlockSize / InodeSize

	// NrBlockPtrs is the length of an inode's block-location list.
	NrBlockPtrs = 12

	// SectorSize is the smallest unit a backing device may advertise.
	SectorSize = 512

	// DefaultRootInode is the inode number mkbabyfs assigns to the root
	// directory. Mounts use the number recorded in the superblock, not
	// this constant.
	DefaultRootInode = 2
)

const (
	NR_DEVICES  = 8   // number of device slots in the block cache
	NR_BUFS     = 100 // number of blocks in the block cache
	NR_BUF_HASH = 128 // size of the block cache hash table, power of 2
	NR_INODES   = 64  // number of slots in the inode object pool
)

const (
	NO_DEV   = -1 // absence of a device number
	NO_BLOCK = 0  // absence of a block number
	NO_INODE = 0  // absence of an inode number
)

// On-disk file type bits stored in DiskInode.Mode.
const (
	ModeRegular   = 0x8000
	ModeDirectory = 0x4000
)
