package inodepool

import (
	"bytes"
	"encoding/binary"

	"github.com/jiebaomaster/babyfs/common"
)

// The block-location list is the only part of an inode object that may
// be exchanged with caller-controlled buffers; everything else stays
// private to the pool and the filesystem.

// CopyOutBlockList serializes the object's copy-safe range into dst.
// dst must be at least CopyRange() size bytes.
func (p *Pool) CopyOutBlockList(rip *common.Inode, dst []byte) error {
	if uintptr(len(dst)) < p.copySize {
		return common.EINVAL
	}
	if !p.Valid(rip) {
		return common.EINVAL
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, rip.BlockList); err != nil {
		return err
	}
	copy(dst, buf.Bytes())
	return nil
}

// CopyInBlockList fills the object's copy-safe range from src. src must
// be at least CopyRange() size bytes.
func (p *Pool) CopyInBlockList(rip *common.Inode, src []byte) error {
	if uintptr(len(src)) < p.copySize {
		return common.EINVAL
	}
	if !p.Valid(rip) {
		return common.EINVAL
	}
	return binary.Read(bytes.NewReader(src), binary.LittleEndian, &rip.BlockList)
}
