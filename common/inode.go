package common

import (
	"bytes"
	"encoding/binary"
)

// DiskInode is the on-disk inode record, InodeSize bytes per entry in
// the inode table starting at ItableBlockNum.
type DiskInode struct {
	Mode      uint16
	Nlinks    uint16
	Uid       uint16
	Gid       uint16
	Size      uint32
	Atime     uint32
	Mtime     uint32
	Ctime     uint32
	BlockList [NrBlockPtrs]uint32
	Reserved  [14]uint32
}

// ItableBlock returns the block number holding the given inode and the
// record offset within that block. Inode numbers start at 1.
func ItableBlock(inum uint64) (blocknum int, offset int) {
	idx := int(inum - 1)
	blocknum = ItableBlockNum + idx/InodesPerBlock
	offset = (idx % InodesPerBlock) * InodeSize
	return
}

// DecodeInode fills the generic node record and the private
// block-location list from one on-disk inode entry.
func DecodeInode(data []byte, rip *Inode) error {
	if len(data) < InodeSize {
		return EINVAL
	}
	din := new(DiskInode)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, din); err != nil {
		return err
	}
	rip.Node.Mode = din.Mode
	rip.Node.Nlinks = din.Nlinks
	rip.Node.Uid = din.Uid
	rip.Node.Gid = din.Gid
	rip.Node.Size = din.Size
	rip.Node.Atime = din.Atime
	rip.Node.Mtime = din.Mtime
	rip.Node.Ctime = din.Ctime
	rip.BlockList = din.BlockList
	return nil
}

// EncodeInode writes the node record and block-location list back into
// an on-disk inode entry.
func EncodeInode(rip *Inode, data []byte) error {
	if len(data) < InodeSize {
		return EINVAL
	}
	din := DiskInode{
		Mode:      rip.Node.Mode,
		Nlinks:    rip.Node.Nlinks,
		Uid:       rip.Node.Uid,
		Gid:       rip.Node.Gid,
		Size:      rip.Node.Size,
		Atime:     rip.Node.Atime,
		Mtime:     rip.Node.Mtime,
		Ctime:     rip.Node.Ctime,
		BlockList: rip.BlockList,
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &din); err != nil {
		return err
	}
	copy(data, buf.Bytes())
	return nil
}
