package common

import (
	"bytes"
	"encoding/binary"
)

// Superblock is the on-disk volume descriptor stored in block 0, and its
// in-memory mirror once decoded. The mirror is read exactly once at
// mount; afterwards all volume metadata is served from memory. This
// subsystem never writes the mirror back.
type Superblock struct {
	Magic          uint32 // must equal SuperMagic
	NrDstoreBlocks uint32 // number of data-store blocks
	RootInode      uint64 // inode number of the root directory
	NrInodes       uint32 // size of the inode table
	NrFreeInodes   uint32
	NrFreeBlocks   uint32
}

// DecodeSuperblock interprets one block of raw data as a volume
// descriptor. The magic number is not checked here; callers decide
// whether to trust the volume.
func DecodeSuperblock(data []byte) (*Superblock, error) {
	if len(data) < binary.Size(Superblock{}) {
		return nil, EINVAL
	}
	sup := new(Superblock)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

// Encode writes the descriptor into the first bytes of a block-sized
// buffer, zero-filling the remainder.
func (sup *Superblock) Encode(data []byte) error {
	if len(data) < BlockSize {
		return EINVAL
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, sup); err != nil {
		return err
	}
	n := copy(data, buf.Bytes())
	for i := n; i < len(data); i++ {
		data[i] = 0
	}
	return nil
}

// DeviceInfo converts the decoded descriptor into the per-volume
// parameter record carried by the cache and the inode load/write paths.
func (sup *Superblock) DeviceInfo(devnum int) DeviceInfo {
	return DeviceInfo{
		Blocksize:      BlockSize,
		NrDstoreBlocks: sup.NrDstoreBlocks,
		RootInode:      sup.RootInode,
		NrInodes:       sup.NrInodes,
		Devnum:         devnum,
	}
}
