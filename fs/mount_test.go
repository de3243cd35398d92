package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiebaomaster/babyfs/common"
	"github.com/jiebaomaster/babyfs/device"
)

const (
	testDstoreBlocks = 16
	testInodes       = 2 * common.InodesPerBlock
)

// newImageDevice creates a formatted in-memory volume.
func newImageDevice(t *testing.T) common.BlockDevice {
	t.Helper()
	data := make([]byte, DeviceBlocks(testDstoreBlocks, testInodes)*common.BlockSize)
	dev, err := device.NewRamdiskDevice(data)
	require.NoError(t, err)
	_, err = Format(dev, testDstoreBlocks, testInodes)
	require.NoError(t, err)
	return dev
}

// newModule loads the driver against a fresh registry.
func newModule(t *testing.T) *Module {
	t.Helper()
	mod, err := Init(NewRegistry())
	require.NoError(t, err)
	return mod
}

func TestMountSuccess(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)
	require.NotNil(t, entry)
	vol := entry.Volume

	assert.Equal(t, "/", entry.Name)
	require.NotNil(t, entry.Inode)
	assert.True(t, entry.Inode.IsDirectory())
	assert.Equal(t, uint64(common.DefaultRootInode), entry.Inode.Node.Ino)
	assert.True(t, entry.Inode == vol.Root())

	// The descriptor mirror and the per-volume parameters it feeds.
	require.NotNil(t, vol.Super)
	assert.Equal(t, uint32(common.SuperMagic), vol.Super.Magic)
	assert.Equal(t, uint32(testDstoreBlocks), vol.Info.NrDstoreBlocks)
	assert.Equal(t, uint64(common.DefaultRootInode), vol.Info.RootInode)
	assert.Equal(t, common.BlockSize, vol.Info.Blocksize)

	// Usage figures come from the mirror without touching the device.
	st := vol.Ops().StatFS()
	assert.Equal(t, uint32(testDstoreBlocks), st.NrDstoreBlocks)
	assert.Equal(t, uint32(testInodes), st.NrInodes)
	assert.Equal(t, uint32(testInodes-common.DefaultRootInode), st.NrFreeInodes)

	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

// A full-size volume: 1024 data-store blocks, root directory at inode 2.
func TestMountDefaultGeometry(t *testing.T) {
	const dstore = 1024
	mod := newModule(t)

	data := make([]byte, DeviceBlocks(dstore, testInodes)*common.BlockSize)
	dev, err := device.NewRamdiskDevice(data)
	require.NoError(t, err)
	_, err = Format(dev, dstore, testInodes)
	require.NoError(t, err)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)
	vol := entry.Volume

	assert.Equal(t, uint32(0xBABE0001), vol.Super.Magic)
	assert.Equal(t, uint32(1024), vol.Super.NrDstoreBlocks)
	assert.Equal(t, uint64(2), vol.Super.RootInode)
	assert.Equal(t, uint64(2), entry.Inode.Node.Ino)
	assert.True(t, entry.Inode.IsDirectory())

	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

func TestMountNilDevice(t *testing.T) {
	mod := newModule(t)
	defer mod.Exit()

	_, err := mod.Mount(nil, MountOptions{})
	assert.Equal(t, common.EINVAL, err)
}

// A volume whose descriptor does not carry the expected magic number is
// rejected, and the failed mount leaves no state behind.
func TestMountBadMagic(t *testing.T) {
	mod := newModule(t)

	// All-zero block 0 decodes to magic 0.
	dev := device.NewTestDevice(common.BlockSize, 4)
	releases0 := mod.Cache().Releases()

	_, err := mod.Mount(dev, MountOptions{})
	assert.Equal(t, common.ErrBadMagic, err)

	// The pinned descriptor buffer was handed back during the unwind.
	assert.Equal(t, releases0+1, mod.Cache().Releases())

	// Nothing leaked: the driver unloads cleanly.
	require.NoError(t, mod.Exit())
}

// A device whose reads fail makes the mount fail with an I/O error after
// the superblock read was actually attempted.
func TestMountReadFailure(t *testing.T) {
	mod := newModule(t)

	fdev := device.NewFailingDevice(newImageDevice(t))
	_, err := mod.Mount(fdev, MountOptions{})
	assert.Equal(t, common.EIO, err)
	assert.GreaterOrEqual(t, fdev.Reads.Load(), int32(1))

	require.NoError(t, mod.Exit())
}

// A device that cannot honor the logical block size is rejected before
// anything is read from it.
func TestMountBlockSizeRejected(t *testing.T) {
	mod := newModule(t)
	defer mod.Exit()

	data := make([]byte, 8*4096)
	rdev, err := device.NewRamdiskDeviceSectors(data, 4096)
	require.NoError(t, err)
	cdev := device.NewCountingDevice(rdev)

	_, err = mod.Mount(cdev, MountOptions{})
	assert.Equal(t, common.ErrBlockSize, err)
	assert.Equal(t, int32(0), cdev.Reads.Load())
}

// A descriptor naming a root inode beyond the inode table makes the
// loader fail; the error is propagated unchanged and the descriptor
// buffer is released.
func TestMountRootLoadFailure(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	// Rewrite block 0 with a root inode number past the table.
	sup := &common.Superblock{
		Magic:          common.SuperMagic,
		NrDstoreBlocks: testDstoreBlocks,
		RootInode:      testInodes + 5,
		NrInodes:       testInodes,
	}
	block := make([]byte, common.BlockSize)
	require.NoError(t, sup.Encode(block))
	require.NoError(t, dev.Write(block, common.SuperBlockNum*common.BlockSize))

	releases0 := mod.Cache().Releases()
	_, err := mod.Mount(dev, MountOptions{})
	assert.Equal(t, common.ENOENT, err)
	assert.Equal(t, releases0+1, mod.Cache().Releases())

	require.NoError(t, mod.Exit())
}

// A root inode without the directory type bit aborts the mount after the
// load; the loaded object is scheduled for destruction and the driver
// still unloads cleanly.
func TestMountRootNotDirectory(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	// Clear the root inode's mode in the inode table.
	blocknum, offset := common.ItableBlock(common.DefaultRootInode)
	block := make([]byte, common.BlockSize)
	pos := int64(blocknum) * common.BlockSize
	require.NoError(t, dev.Read(block, pos))
	block[offset] = 0
	block[offset+1] = 0
	require.NoError(t, dev.Write(block, pos))

	_, err := mod.Mount(dev, MountOptions{})
	assert.Equal(t, common.ErrRootEntry, err)

	require.NoError(t, mod.Exit())
}

func TestMountSameDeviceTwice(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)

	_, err = mod.Mount(dev, MountOptions{})
	assert.Equal(t, common.EBUSY, err)

	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

// Every context slot taken makes the next mount fail with an allocation
// error.
func TestMountSlotExhaustion(t *testing.T) {
	mod := newModule(t)

	entries := make([]*DirEntry, 0, common.NR_DEVICES)
	for i := 0; i < common.NR_DEVICES; i++ {
		entry, err := mod.Mount(newImageDevice(t), MountOptions{})
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	_, err := mod.Mount(newImageDevice(t), MountOptions{})
	assert.Equal(t, common.ErrAlloc, err)

	for _, entry := range entries {
		require.NoError(t, mod.Unmount(entry))
	}
	require.NoError(t, mod.Exit())
}

// Put-super releases the pinned descriptor buffer exactly once, however
// many times it runs.
func TestPutSuperIdempotent(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)
	vol := entry.Volume

	releases0 := mod.Cache().Releases()
	require.NoError(t, vol.PutSuper())
	require.NoError(t, vol.PutSuper())
	assert.Equal(t, releases0+1, mod.Cache().Releases())
	assert.Nil(t, vol.Super)

	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

func TestUnmountTwice(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)

	require.NoError(t, mod.Unmount(entry))
	assert.Equal(t, common.EINVAL, mod.Unmount(entry))
	assert.Equal(t, common.EINVAL, mod.Unmount(nil))

	require.NoError(t, mod.Exit())
}

// The driver refuses to unload while a volume is still mounted.
func TestExitBusy(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)

	assert.Equal(t, common.EBUSY, mod.Exit())

	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

// A read-only mount refuses inode writebacks but still serves loads.
func TestMountReadOnly(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{ReadOnly: true})
	require.NoError(t, err)
	vol := entry.Volume
	ops := vol.Ops()

	rip, err := ops.AllocInode()
	require.NoError(t, err)
	rip.Node.Ino = 3
	rip.Node.Mode = common.ModeRegular | 0644
	rip.Node.Nlinks = 1

	assert.Equal(t, common.EROFS, ops.WriteInode(rip, false))

	// The root inode was loaded despite the flag; loads stay available.
	loaded, err := mod.LoadInode(vol, common.DefaultRootInode)
	require.NoError(t, err)
	assert.True(t, loaded.IsDirectory())

	ops.DestroyInode(rip)
	ops.DestroyInode(loaded)
	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}

// Inodes written through the operation table survive a reload from the
// inode table.
func TestInodeWriteLoadRoundtrip(t *testing.T) {
	mod := newModule(t)
	dev := newImageDevice(t)

	entry, err := mod.Mount(dev, MountOptions{})
	require.NoError(t, err)
	vol := entry.Volume
	ops := vol.Ops()

	rip, err := ops.AllocInode()
	require.NoError(t, err)
	rip.Node.Ino = 3
	rip.Node.Mode = common.ModeRegular | 0640
	rip.Node.Nlinks = 1
	rip.Node.Size = 3 * common.BlockSize
	rip.BlockList[0] = 17
	rip.BlockList[2] = 42
	rip.Devnum = vol.devnum
	rip.Dirty = true

	require.NoError(t, ops.WriteInode(rip, true))
	assert.False(t, rip.Dirty)

	loaded, err := mod.LoadInode(vol, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), loaded.Node.Ino)
	assert.Equal(t, uint16(common.ModeRegular|0640), loaded.Node.Mode)
	assert.Equal(t, uint32(3*common.BlockSize), loaded.Node.Size)
	assert.Equal(t, rip.BlockList, loaded.BlockList)
	assert.Equal(t, vol.devnum, loaded.Devnum)

	// Out-of-range inode numbers are rejected before the pool or the
	// cache are touched.
	_, err = mod.LoadInode(vol, common.NO_INODE)
	assert.Equal(t, common.ENOENT, err)
	_, err = mod.LoadInode(vol, testInodes+1)
	assert.Equal(t, common.ENOENT, err)

	// An unbound inode cannot be written back.
	assert.Equal(t, common.EINVAL, ops.WriteInode(&common.Inode{Node: &common.Node{}}, false))

	ops.DestroyInode(rip)
	ops.DestroyInode(loaded)
	require.NoError(t, mod.Unmount(entry))
	require.NoError(t, mod.Exit())
}
