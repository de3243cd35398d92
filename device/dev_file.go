package device

import (
	"os"

	"github.com/jiebaomaster/babyfs/common"
)

type fileDevice struct {
	file       *os.File
	filename   string
	sectorsize int
	in         chan m_dev_req
	out        chan m_dev_res
}

// NewFileDevice creates a block device backed by an image file. All
// requests are serialized through the device loop, so the device is safe
// for concurrent use.
func NewFileDevice(filename string, sectorsize int) (common.BlockDevice, error) {
	file, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	dev := &fileDevice{
		file,
		filename,
		sectorsize,
		make(chan m_dev_req),
		make(chan m_dev_res),
	}

	go dev.loop()
	return dev, nil
}

func (dev *fileDevice) loop() {
	var in <-chan m_dev_req = dev.in
	var out chan<- m_dev_res = dev.out

	for req := range in {
		switch req.call {
		case DEV_READ:
			newPos, err := dev.file.Seek(req.pos, 0)
			if err != nil {
				out <- m_dev_res{err}
				continue
			} else if req.pos != newPos {
				out <- m_dev_res{ERR_SEEK}
				continue
			}
			_, err = dev.file.Read(req.buf)
			out <- m_dev_res{err}
		case DEV_WRITE:
			newPos, err := dev.file.Seek(req.pos, 0)
			if err != nil {
				out <- m_dev_res{err}
				continue
			} else if req.pos != newPos {
				out <- m_dev_res{ERR_SEEK}
				continue
			}
			_, err = dev.file.Write(req.buf)
			out <- m_dev_res{err}
		case DEV_CLOSE:
			err := dev.file.Close()
			out <- m_dev_res{err}
			close(dev.in)
			close(dev.out)
		default:
			out <- m_dev_res{ERR_BADCALL}
		}
	}
}

func (dev *fileDevice) Read(buf []byte, pos int64) error {
	dev.in <- m_dev_req{DEV_READ, buf, pos}
	res := <-dev.out
	return res.err
}

func (dev *fileDevice) Write(buf []byte, pos int64) error {
	dev.in <- m_dev_req{DEV_WRITE, buf, pos}
	res := <-dev.out
	return res.err
}

func (dev *fileDevice) SectorSize() int {
	return dev.sectorsize
}

func (dev *fileDevice) Close() error {
	dev.in <- m_dev_req{DEV_CLOSE, nil, 0}
	res := <-dev.out
	return res.err
}
