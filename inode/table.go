package inode

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-mkfs/buf"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/super"
	"github.com/mit-pdos/go-mkfs/util"
)

var (
	ErrNoInodes = errors.New("out of inodes")
	ErrBadInum  = errors.New("inode number out of range")
)

// Table hands out inode numbers sequentially from the root inode and reads
// and writes records in the inode region. Numbers are never reused.
type Table struct {
	d    disk.Disk
	fs   *super.FsSuper
	next common.Inum
}

func MkTable(d disk.Disk, fs *super.FsSuper) *Table {
	return &Table{
		d:    d,
		fs:   fs,
		next: common.ROOTINUM,
	}
}

func (t *Table) Geometry() common.Geometry {
	return t.fs.Geom
}

// NumAllocated counts inodes handed out by Alloc.
func (t *Table) NumAllocated() uint64 {
	return uint64(t.next - common.ROOTINUM)
}

// Alloc writes a fresh inode of type typ with link count 1 and returns its
// number.
func (t *Table) Alloc(typ uint16) (common.Inum, error) {
	inum := t.next
	if uint64(inum) >= t.fs.NInodes {
		return common.NULLINUM, fmt.Errorf("alloc inode %d of %d: %w",
			inum, t.fs.NInodes, ErrNoInodes)
	}
	if err := t.Write(inum, MkInode(t.fs.Geom, typ)); err != nil {
		return common.NULLINUM, err
	}
	t.next++
	util.DPrintf(5, "ialloc: %d type %s\n", inum, typeName(typ))
	return inum, nil
}

func (t *Table) check(inum common.Inum) error {
	if uint64(inum) >= t.fs.NInodes {
		return fmt.Errorf("inode %d of %d: %w", inum, t.fs.NInodes, ErrBadInum)
	}
	return nil
}

func (t *Table) Read(inum common.Inum) (*Inode, error) {
	if err := t.check(inum); err != nil {
		return nil, err
	}
	b, err := buf.ReadBuf(t.d, t.fs.Inum2Addr(inum), t.fs.Geom.InodeSize()*8)
	if err != nil {
		return nil, err
	}
	return Decode(b.Data, t.fs.Geom), nil
}

func (t *Table) Write(inum common.Inum, ip *Inode) error {
	if err := t.check(inum); err != nil {
		return err
	}
	sz := t.fs.Geom.InodeSize()
	b := buf.MkBuf(t.fs.Inum2Addr(inum), sz*8, ip.Encode(t.fs.Geom))
	return b.WriteDirect(t.d)
}
