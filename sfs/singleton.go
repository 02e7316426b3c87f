package sfs

import "github.com/SebastianPilarski/sfs/blockdev"

// The process-global convenience layer below mirrors the original
// process-singleton API (one mounted disk per process), trimmed down to a
// package-level *Filesystem the free functions forward to. New code should
// prefer an explicit *Filesystem handle; this wrapper exists only for
// callers ported from that single-instance calling convention.

var mounted *Filesystem

// Mkfs formats dev with the default geometry and makes the result the
// process-global mounted filesystem.
func Mkfs(dev *blockdev.Device) error {
	fs, err := Format(dev, DefaultGeometry())
	if err != nil {
		return err
	}
	mounted = fs
	return nil
}

// MountGlobal mounts an existing image as the process-global filesystem.
func MountGlobal(dev *blockdev.Device) error {
	fs, err := Mount(dev, DefaultGeometry())
	if err != nil {
		return err
	}
	mounted = fs
	return nil
}

func Fopen(name string) (int, error)             { return mounted.Fopen(name) }
func Fclose(fd int) error                         { return mounted.Fclose(fd) }
func Fread(fd int, buf []byte) (int, error)       { return mounted.Fread(fd, buf) }
func Fwrite(fd int, data []byte) (int, error)     { return mounted.Fwrite(fd, data) }
func Frseek(fd int, loc int) error                { return mounted.Frseek(fd, loc) }
func Fwseek(fd int, loc int) error                { return mounted.Fwseek(fd, loc) }
func Remove(name string) error                    { return mounted.Remove(name) }
func Commit() error                               { return mounted.Commit() }
func Restore(k int) error                         { return mounted.Restore(k) }
func GetNextFileName() (string, bool)             { return mounted.GetNextFileName() }
func GetFileSize(name string) (int, error)        { return mounted.GetFileSize(name) }
