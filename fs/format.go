package fs

import (
	"github.com/jiebaomaster/babyfs/common"
)

// Format writes a fresh babyfs layout onto a device: the superblock in
// block 0, a zeroed inode table, and a root directory inode. The device
// must hold 1 + itable + dstoreBlocks blocks.
func Format(dev common.BlockDevice, dstoreBlocks, inodes uint32) (*common.Superblock, error) {
	if dev == nil || dstoreBlocks == 0 || inodes < common.DefaultRootInode {
		return nil, common.EINVAL
	}
	if err := setBlockSize(dev, common.BlockSize); err != nil {
		return nil, err
	}

	itableBlocks := (int(inodes) + common.InodesPerBlock - 1) / common.InodesPerBlock

	sup := &common.Superblock{
		Magic:          common.SuperMagic,
		NrDstoreBlocks: dstoreBlocks,
		RootInode:      common.DefaultRootInode,
		NrInodes:       inodes,
		NrFreeInodes:   inodes - common.DefaultRootInode,
		NrFreeBlocks:   dstoreBlocks,
	}

	block := make([]byte, common.BlockSize)
	if err := sup.Encode(block); err != nil {
		return nil, err
	}
	if err := dev.Write(block, int64(common.SuperBlockNum)*common.BlockSize); err != nil {
		return nil, err
	}

	// Zero the inode table.
	zero := make([]byte, common.BlockSize)
	for i := 0; i < itableBlocks; i++ {
		pos := int64(common.ItableBlockNum+i) * common.BlockSize
		if err := dev.Write(zero, pos); err != nil {
			return nil, err
		}
	}

	// Write the root directory inode.
	root := &common.Inode{
		Node: &common.Node{
			Ino:    common.DefaultRootInode,
			Mode:   common.ModeDirectory | 0755,
			Nlinks: 2,
			Size:   common.BlockSize,
		},
	}
	blocknum, offset := common.ItableBlock(common.DefaultRootInode)
	pos := int64(blocknum) * common.BlockSize
	if err := dev.Read(block, pos); err != nil {
		return nil, err
	}
	if err := common.EncodeInode(root, block[offset:offset+common.InodeSize]); err != nil {
		return nil, err
	}
	if err := dev.Write(block, pos); err != nil {
		return nil, err
	}

	return sup, nil
}

// DeviceBlocks returns the total number of blocks a formatted volume
// with the given geometry occupies.
func DeviceBlocks(dstoreBlocks, inodes uint32) int {
	itableBlocks := (int(inodes) + common.InodesPerBlock - 1) / common.InodesPerBlock
	return 1 + itableBlocks + int(dstoreBlocks)
}
