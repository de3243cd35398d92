package device

import (
	"sync/atomic"

	"github.com/jiebaomaster/babyfs/common"
)

//////////////////////////////////////////////////////////////////////////////
// A ramdisk device with a certain number of blocks of a given block size.
// Each block is filled with the byte value of its block number, so every
// byte in block 0 is 0, every byte in block 1 is 1, etc.
//////////////////////////////////////////////////////////////////////////////

func NewTestDevice(bsize, blocks int) common.BlockDevice {
	data := make([]byte, bsize*blocks)
	for i := 0; i < blocks; i++ {
		for j := 0; j < bsize; j++ {
			data[(i*bsize)+j] = byte(i)
		}
	}
	dev, err := NewRamdiskDevice(data)
	if err != nil {
		panic("failed to create ramdisk device")
	}
	return dev
}

//////////////////////////////////////////////////////////////////////////////
// A random access device that blocks on any read operation. It notifies
// of the pending read using the HasBlocked channel and waits to be
// released on the Unblock channel.
//////////////////////////////////////////////////////////////////////////////

type BlockingDevice struct {
	common.BlockDevice
	HasBlocked chan bool
	Unblock    chan bool
}

func NewBlockingDevice(rdev common.BlockDevice) *BlockingDevice {
	return &BlockingDevice{
		rdev,
		make(chan bool),
		make(chan bool),
	}
}

func (dev *BlockingDevice) Read(buf []byte, pos int64) error {
	dev.HasBlocked <- true
	<-dev.Unblock
	return dev.BlockDevice.Read(buf, pos)
}

func (dev *BlockingDevice) Close() error {
	return dev.BlockDevice.Close()
}

//////////////////////////////////////////////////////////////////////////////
// A device whose reads always fail, counting the attempts. Used to drive
// the mount failure-unwind paths.
//////////////////////////////////////////////////////////////////////////////

type FailingDevice struct {
	common.BlockDevice
	Reads atomic.Int32
}

func NewFailingDevice(rdev common.BlockDevice) *FailingDevice {
	return &FailingDevice{BlockDevice: rdev}
}

func (dev *FailingDevice) Read(buf []byte, pos int64) error {
	dev.Reads.Add(1)
	return common.EIO
}

func (dev *FailingDevice) Close() error {
	return dev.BlockDevice.Close()
}

//////////////////////////////////////////////////////////////////////////////
// A device wrapper that counts reads without changing behavior.
//////////////////////////////////////////////////////////////////////////////

type CountingDevice struct {
	common.BlockDevice
	Reads atomic.Int32
}

func NewCountingDevice(rdev common.BlockDevice) *CountingDevice {
	return &CountingDevice{BlockDevice: rdev}
}

func (dev *CountingDevice) Read(buf []byte, pos int64) error {
	dev.Reads.Add(1)
	return dev.BlockDevice.Read(buf, pos)
}

func (dev *CountingDevice) Close() error {
	return dev.BlockDevice.Close()
}
