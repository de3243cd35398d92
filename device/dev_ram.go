package device

import (
	"github.com/jiebaomaster/babyfs/common"
)

type ramdiskDevice struct {
	data       []byte
	sectorsize int
	in         chan m_dev_req
	out        chan m_dev_res
}

// NewRamdiskDevice creates a block device over an in-memory byte slice.
func NewRamdiskDevice(data []byte) (common.BlockDevice, error) {
	return NewRamdiskDeviceSectors(data, common.SectorSize)
}

// NewRamdiskDeviceSectors creates an in-memory device advertising a
// specific sector granularity, for devices that cannot honor the
// filesystem block size.
func NewRamdiskDeviceSectors(data []byte, sectorsize int) (common.BlockDevice, error) {
	if len(data) == 0 {
		return nil, ERR_BOUNDS
	}
	dev := &ramdiskDevice{
		data,
		sectorsize,
		make(chan m_dev_req),
		make(chan m_dev_res),
	}
	go dev.loop()
	return dev, nil
}

func (dev *ramdiskDevice) loop() {
	var in <-chan m_dev_req = dev.in
	var out chan<- m_dev_res = dev.out

	for req := range in {
		switch req.call {
		case DEV_READ:
			end := req.pos + int64(len(req.buf))
			if req.pos < 0 || end > int64(len(dev.data)) {
				out <- m_dev_res{ERR_BOUNDS}
				continue
			}
			copy(req.buf, dev.data[req.pos:end])
			out <- m_dev_res{nil}
		case DEV_WRITE:
			end := req.pos + int64(len(req.buf))
			if req.pos < 0 || end > int64(len(dev.data)) {
				out <- m_dev_res{ERR_BOUNDS}
				continue
			}
			copy(dev.data[req.pos:end], req.buf)
			out <- m_dev_res{nil}
		case DEV_CLOSE:
			out <- m_dev_res{nil}
			close(dev.in)
			close(dev.out)
		default:
			out <- m_dev_res{ERR_BADCALL}
		}
	}
}

func (dev *ramdiskDevice) Read(buf []byte, pos int64) error {
	dev.in <- m_dev_req{DEV_READ, buf, pos}
	res := <-dev.out
	return res.err
}

func (dev *ramdiskDevice) Write(buf []byte, pos int64) error {
	dev.in <- m_dev_req{DEV_WRITE, buf, pos}
	res := <-dev.out
	return res.err
}

func (dev *ramdiskDevice) SectorSize() int {
	return dev.sectorsize
}

func (dev *ramdiskDevice) Close() error {
	dev.in <- m_dev_req{DEV_CLOSE, nil, 0}
	res := <-dev.out
	return res.err
}
