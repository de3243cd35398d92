package fs

import (
	"github.com/jiebaomaster/babyfs/common"
)

// LoadInode fetches an on-disk inode into a pool-allocated object. The
// generic node record comes back freshly constructed by the pool; the
// private fields are filled from the inode table entry here.
func (mod *Module) LoadInode(vol *Volume, inum uint64) (*common.Inode, error) {
	if inum == common.NO_INODE || inum > uint64(vol.Info.NrInodes) {
		return nil, common.ENOENT
	}

	rip, err := mod.pool.Allocate()
	if err != nil {
		return nil, err
	}

	blocknum, offset := common.ItableBlock(inum)
	bp, err := mod.cache.GetBlock(vol.devnum, blocknum)
	if err != nil {
		mod.pool.RequestDestroy(rip)
		return nil, common.EIO
	}

	err = common.DecodeInode(bp.Data[offset:offset+common.InodeSize], rip)
	mod.cache.PutBlock(bp)
	if err != nil {
		mod.pool.RequestDestroy(rip)
		return nil, err
	}

	rip.Node.Ino = inum
	rip.Devnum = vol.devnum
	rip.Dirty = false
	return rip, nil
}

// WriteInode copies the node record and block-location list back into
// the inode table. With sync set, the dirty block is pushed to the
// device before returning.
func (mod *Module) WriteInode(vol *Volume, rip *common.Inode, sync bool) error {
	if rip == nil || rip.Node == nil || rip.Node.Ino == common.NO_INODE {
		return common.EINVAL
	}
	if vol.readonly {
		return common.EROFS
	}

	blocknum, offset := common.ItableBlock(rip.Node.Ino)
	bp, err := mod.cache.GetBlock(vol.devnum, blocknum)
	if err != nil {
		return common.EIO
	}

	err = common.EncodeInode(rip, bp.Data[offset:offset+common.InodeSize])
	if err == nil {
		bp.Dirty = true
		rip.Dirty = false
	}
	mod.cache.PutBlock(bp)
	if err != nil {
		return err
	}

	if sync {
		mod.cache.Flush(vol.devnum)
	}
	return nil
}
