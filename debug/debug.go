// Package debug renders raw blocks and descriptors for the inspection
// tools.
package debug

import (
	"fmt"
	"strings"

	"github.com/jiebaomaster/babyfs/common"
)

// DumpBlock renders one block as a classic hex/ASCII dump, 16 bytes per
// line, skipping runs of all-zero lines.
func DumpBlock(data []byte, blocknum int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "block %d (%d bytes)\n", blocknum, len(data))

	skipping := false
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		zero := true
		for _, c := range line {
			if c != 0 {
				zero = false
				break
			}
		}
		if zero {
			if !skipping {
				b.WriteString("*\n")
				skipping = true
			}
			continue
		}
		skipping = false

		fmt.Fprintf(&b, "%08x  ", off)
		for i, c := range line {
			fmt.Fprintf(&b, "%02x ", c)
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// DumpSuperblock renders the decoded volume descriptor field by field.
func DumpSuperblock(sup *common.Superblock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "magic:          0x%08X\n", sup.Magic)
	fmt.Fprintf(&b, "dstore blocks:  %d\n", sup.NrDstoreBlocks)
	fmt.Fprintf(&b, "root inode:     %d\n", sup.RootInode)
	fmt.Fprintf(&b, "inodes:         %d\n", sup.NrInodes)
	fmt.Fprintf(&b, "free inodes:    %d\n", sup.NrFreeInodes)
	fmt.Fprintf(&b, "free blocks:    %d\n", sup.NrFreeBlocks)
	return b.String()
}
