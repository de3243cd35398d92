// babyfsck mounts a babyfs image read-only and reports the volume
// descriptor, failing when the image does not carry a valid superblock.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/jiebaomaster/babyfs/common"
	"github.com/jiebaomaster/babyfs/debug"
	"github.com/jiebaomaster/babyfs/device"
	"github.com/jiebaomaster/babyfs/fs"
)

func main() {
	app := &cli.App{
		Name:      "babyfsck",
		Usage:     "check a babyfs filesystem image",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "hex dump the superblock block",
			},
		},
		Action: check,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "babyfsck: %s\n", err)
		os.Exit(1)
	}
}

func check(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one image filename", 1)
	}

	config, err := LoadConfig()
	if err != nil {
		return err
	}
	if level, err := logging.LevelFromString(config.LogLevel); err == nil {
		logging.SetAllLoggers(level)
	}

	filename := c.Args().Get(0)
	if config.ImageDir != "" && !filepath.IsAbs(filename) {
		filename = filepath.Join(config.ImageDir, filename)
	}

	dev, err := device.NewFileDevice(filename, common.SectorSize)
	if err != nil {
		return err
	}
	defer dev.Close()

	registry := fs.NewRegistry()
	mod, err := fs.Init(registry)
	if err != nil {
		return err
	}
	defer mod.Exit()

	entry, err := registry.MountByName(fs.FSName, dev, fs.MountOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	vol := entry.Volume

	fmt.Printf("%s: babyfs volume, session %s\n", filename, vol.SessionID)
	fmt.Print(debug.DumpSuperblock(vol.Super))

	stat := vol.Ops().StatFS()
	total := uint64(stat.NrDstoreBlocks) * uint64(stat.Blocksize)
	free := uint64(stat.NrFreeBlocks) * uint64(stat.Blocksize)
	fmt.Printf("data store:     %s (%s free)\n",
		humanize.IBytes(total), humanize.IBytes(free))

	root := entry.Inode
	fmt.Printf("root:           inode %d, mode %o, %d links\n",
		root.Node.Ino, root.Node.Mode, root.Node.Nlinks)

	if c.Bool("dump") {
		bp, err := mod.Cache().GetBlock(vol.Info.Devnum, common.SuperBlockNum)
		if err != nil {
			return err
		}
		fmt.Print(debug.DumpBlock(bp.Data, common.SuperBlockNum))
		mod.Cache().PutBlock(bp)
	}

	return mod.Unmount(entry)
}
