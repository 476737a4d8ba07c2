// Package image gives read-only access to a built image and checks it.
package image

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/dir"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/super"
)

var ErrNotFound = errors.New("no such file")

type Image struct {
	d   disk.Disk
	fs  *super.FsSuper
	tbl *inode.Table
}

// Open reads the superblock of the image on d. geom must match the geometry
// the image was built with.
func Open(d disk.Disk, geom common.Geometry) (*Image, error) {
	fs, err := super.Read(d, geom)
	if err != nil {
		return nil, err
	}
	sz, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sz != fs.Size {
		return nil, fmt.Errorf("superblock says %d blocks, disk has %d", fs.Size, sz)
	}
	return &Image{d: d, fs: fs, tbl: inode.MkTable(d, fs)}, nil
}

func (im *Image) Super() *super.FsSuper {
	return im.fs
}

func (im *Image) Inode(inum common.Inum) (*inode.Inode, error) {
	return im.tbl.Read(inum)
}

func (im *Image) ReadDir(inum common.Inum) ([]dir.DirEnt, error) {
	ip, err := im.tbl.Read(inum)
	if err != nil {
		return nil, err
	}
	return dir.ReadDir(im.d, ip)
}

// Lookup finds name in the root directory.
func (im *Image) Lookup(name string) (common.Inum, error) {
	ents, err := im.ReadDir(common.ROOTINUM)
	if err != nil {
		return common.NULLINUM, err
	}
	inum, ok := dir.Lookup(ents, name)
	if !ok {
		return common.NULLINUM, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return inum, nil
}

func (im *Image) ReadFile(inum common.Inum) ([]byte, error) {
	ip, err := im.tbl.Read(inum)
	if err != nil {
		return nil, err
	}
	return file.ReadAll(im.d, ip)
}

// Blocks lists the blocks inode inum references.
func (im *Image) Blocks(inum common.Inum) ([]common.Bnum, error) {
	ip, err := im.tbl.Read(inum)
	if err != nil {
		return nil, err
	}
	return file.Blocks(im.d, ip)
}

func (im *Image) Bitmap() ([]disk.Block, error) {
	blks := make([]disk.Block, im.fs.NBitmap())
	for i := range blks {
		blk, err := im.d.Read(im.fs.BmapStart + common.Bnum(i))
		if err != nil {
			return nil, err
		}
		blks[i] = blk
	}
	return blks, nil
}
