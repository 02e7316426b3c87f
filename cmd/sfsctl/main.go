// Command sfsctl is a small operator front end for SFS disk images: format a
// fresh one, list its files, dump one to stdout, or print usage stats.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/SebastianPilarski/sfs/blockdev"
	"github.com/SebastianPilarski/sfs/sfs"
)

func main() {
	app := cli.App{
		Name:  "sfsctl",
		Usage: "inspect and manage SFS disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "create a fresh, empty SFS image",
				Action:    formatImage,
				ArgsUsage: "IMAGE_FILE",
			},
			{
				Name:      "ls",
				Usage:     "list the files on an SFS image",
				Action:    listFiles,
				ArgsUsage: "IMAGE_FILE",
			},
			{
				Name:      "cat",
				Usage:     "print the contents of one file to stdout",
				Action:    catFile,
				ArgsUsage: "IMAGE_FILE NAME",
			},
			{
				Name:      "stat",
				Usage:     "print usage statistics for an image",
				Action:    statImage,
				ArgsUsage: "IMAGE_FILE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("sfsctl: %s", err)
	}
}

func formatImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("format requires an image file path", 1)
	}
	g := sfs.DefaultGeometry()
	l := g.Derive()

	dev, err := blockdev.InitFreshDisk(blockdev.DiskName, l.BlockSize, l.NumBlocks)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if _, err := sfs.Format(dev, g); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := os.WriteFile(path, dev.Snapshot(), 0o644); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Printf("formatted %s (%d blocks of %d bytes)\n", path, l.NumBlocks, l.BlockSize)
	return nil
}

func openImage(path string) (*sfs.Filesystem, error) {
	g := sfs.DefaultGeometry()
	l := g.Derive()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dev, err := blockdev.InitDisk(blockdev.DiskName, l.BlockSize, l.NumBlocks, raw)
	if err != nil {
		return nil, err
	}
	return sfs.Mount(dev, g)
}

func listFiles(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("ls requires an image file path", 1)
	}
	fs, err := openImage(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	for {
		name, ok := fs.GetNextFileName()
		if !ok {
			return nil
		}
		size, err := fs.GetFileSize(name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Printf("%8d  %s\n", size, name)
	}
}

func catFile(c *cli.Context) error {
	path := c.Args().Get(0)
	name := c.Args().Get(1)
	if path == "" || name == "" {
		return cli.Exit("cat requires an image file path and a file name", 1)
	}
	fs, err := openImage(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	size, err := fs.GetFileSize(name)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fd, err := fs.Fopen(name)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer fs.Fclose(fd)

	buf := make([]byte, size)
	n, err := fs.Fread(fd, buf)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}

func statImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("stat requires an image file path", 1)
	}
	fs, err := openImage(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	s := fs.Stat()
	fmt.Printf("blocks:  %d total, %d free\n", s.TotalBlocks, s.FreeBlocks)
	fmt.Printf("inodes:  %d total, %d free\n", s.TotalInodes, s.FreeInodes)
	fmt.Printf("files:   %d\n", s.Files)
	return nil
}
