package fs

import (
	"github.com/google/uuid"

	"github.com/jiebaomaster/babyfs/common"
)

// Mount is the babyfs mount entry point. It runs the fill-super
// sequence: claim a device slot, configure the block size, read and
// decode block 0, wire the operation table, load the root inode and
// build the root entry. The first failure unwinds everything acquired
// so far; a mount context is never installed partially.
func (mod *Module) Mount(dev common.BlockDevice, opts MountOptions) (*DirEntry, error) {
	if dev == nil {
		return nil, common.EINVAL
	}

	// Allocate the mount context.
	vol, err := mod.allocContext(dev)
	if err != nil {
		return nil, err
	}

	entry, err := mod.fillSuper(vol, opts)
	if err != nil {
		// the context allocated above must not leak on a failed mount
		mod.releaseContext(vol)
		return nil, err
	}

	mod.m.Lock()
	mod.volumes[vol.devnum] = vol
	mod.m.Unlock()

	log.Infof("mounted %s session %s: %d data blocks, root inode %d",
		FSName, vol.SessionID, vol.Info.NrDstoreBlocks, vol.Info.RootInode)
	return entry, nil
}

// allocContext claims a device slot and builds an empty mount context.
func (mod *Module) allocContext(dev common.BlockDevice) (*Volume, error) {
	mod.m.Lock()
	defer mod.m.Unlock()

	devnum := common.NO_DEV
	for i := 0; i < len(mod.devices); i++ {
		if mod.devices[i] == dev {
			return nil, common.EBUSY // already mounted
		}
		if mod.devices[i] == nil && devnum == common.NO_DEV {
			devnum = i
		}
	}
	if devnum == common.NO_DEV {
		return nil, common.ErrAlloc // no context slot available
	}

	vol := &Volume{
		SessionID: uuid.New(),
		devnum:    devnum,
		dev:       dev,
		cache:     mod.cache,
		pool:      mod.pool,
	}
	mod.devices[devnum] = dev
	return vol, nil
}

// releaseContext returns the device slot of a context that never
// finished mounting.
func (mod *Module) releaseContext(vol *Volume) {
	mod.m.Lock()
	mod.devices[vol.devnum] = nil
	mod.m.Unlock()
}

// fillSuper performs the ordered mount sequence on a fresh context.
// Every failure path releases whatever the earlier steps acquired.
func (mod *Module) fillSuper(vol *Volume, opts MountOptions) (*DirEntry, error) {
	// Configure the device's block size before anything is read.
	if err := setBlockSize(vol.dev, common.BlockSize); err != nil {
		log.Errorf("device cannot honor block size %d: %s", common.BlockSize, err)
		return nil, err
	}

	// Attach the device to the block cache so block 0 can be read.
	info := common.DeviceInfo{Blocksize: common.BlockSize, Devnum: vol.devnum}
	if err := mod.cache.MountDevice(vol.devnum, vol.dev, info); err != nil {
		return nil, err
	}

	// The superblock is read exactly once, here; afterwards the volume
	// descriptor is served from the in-memory mirror.
	bp, err := mod.cache.GetBlock(vol.devnum, common.SuperBlockNum)
	if err != nil {
		log.Errorf("cannot read superblock: %s", err)
		mod.cache.UnmountDevice(vol.devnum)
		return nil, common.EIO
	}

	sup, err := common.DecodeSuperblock(bp.Data)
	if err == nil && sup.Magic != common.SuperMagic {
		log.Errorf("bad magic 0x%x in superblock, want 0x%x", sup.Magic, common.SuperMagic)
		err = common.ErrBadMagic
	}
	if err != nil {
		mod.cache.PutBlock(bp)
		mod.cache.Invalidate(vol.devnum)
		mod.cache.UnmountDevice(vol.devnum)
		return nil, err
	}

	// Wire the context: the mirror, the per-volume parameters and the
	// operation table. The data-store block count travels inside
	// vol.Info from here on; there is no process-wide copy of it.
	vol.sbuf = bp
	vol.Super = sup
	vol.Info = sup.DeviceInfo(vol.devnum)
	vol.readonly = opts.ReadOnly
	vol.ops = &volumeOps{mod, vol}

	// Fetch the root inode through the loader.
	root, err := mod.LoadInode(vol, vol.Info.RootInode)
	if err != nil {
		// propagate the loader's error unchanged
		log.Errorf("cannot load root inode %d: %s", vol.Info.RootInode, err)
		mod.unwindSuper(vol)
		return nil, err
	}
	vol.root = root

	// Build the root directory entry.
	entry, err := makeRoot(vol)
	if err != nil {
		mod.pool.RequestDestroy(root)
		vol.root = nil
		mod.unwindSuper(vol)
		return nil, err
	}

	return entry, nil
}

// unwindSuper releases the pinned superblock buffer and detaches the
// device after a failure past the decode step.
func (mod *Module) unwindSuper(vol *Volume) {
	vol.PutSuper()
	mod.cache.Invalidate(vol.devnum)
	mod.cache.UnmountDevice(vol.devnum)
}

// setBlockSize checks that the device can honor the filesystem's fixed
// logical block size.
func setBlockSize(dev common.BlockDevice, blocksize int) error {
	ss := dev.SectorSize()
	if ss <= 0 || blocksize%ss != 0 {
		return common.ErrBlockSize
	}
	return nil
}
