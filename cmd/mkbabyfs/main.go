// mkbabyfs creates a new babyfs image with an empty root directory.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/jiebaomaster/babyfs/common"
	"github.com/jiebaomaster/babyfs/debug"
	"github.com/jiebaomaster/babyfs/device"
	"github.com/jiebaomaster/babyfs/fs"
)

func main() {
	app := &cli.App{
		Name:      "mkbabyfs",
		Usage:     "create a babyfs filesystem image",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "size",
				Usage: "number of data-store blocks",
				Value: 1024,
			},
			&cli.UintFlag{
				Name:  "inodes",
				Usage: "number of inode table entries",
				Value: 4 * common.InodesPerBlock,
			},
		},
		Action: mkfs,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mkbabyfs: %s\n", err)
		os.Exit(1)
	}
}

func mkfs(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one image filename", 1)
	}
	filename := c.Args().Get(0)
	dstore := uint32(c.Uint("size"))
	inodes := uint32(c.Uint("inodes"))

	size := int64(fs.DeviceBlocks(dstore, inodes)) * common.BlockSize

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if err := file.Truncate(size); err != nil {
		file.Close()
		return err
	}
	file.Close()

	dev, err := device.NewFileDevice(filename, common.SectorSize)
	if err != nil {
		return err
	}
	defer dev.Close()

	sup, err := fs.Format(dev, dstore, inodes)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", filename, humanize.IBytes(uint64(size)))
	fmt.Print(debug.DumpSuperblock(sup))
	return nil
}
