package alloc

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-mkfs/addr"
	"github.com/mit-pdos/go-mkfs/buf"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/super"
	"github.com/mit-pdos/go-mkfs/util"
)

var ErrNoSpace = errors.New("out of data blocks")

// Alloc is a bump allocator over block numbers [start, limit). It never
// reclaims and never hands out the same number twice; running past limit is
// only detected by Check, once allocation is over.
type Alloc struct {
	start common.Bnum
	limit common.Bnum
	next  common.Bnum // next number to hand out
}

func MkAlloc(start common.Bnum, limit common.Bnum) *Alloc {
	a := &Alloc{
		start: start,
		limit: limit,
		next:  start,
	}
	return a
}

// MkDataAlloc allocates from the data region of fs.
func MkDataAlloc(fs *super.FsSuper) *Alloc {
	return MkAlloc(fs.DataStart(), fs.Size)
}

func (a *Alloc) Next() common.Bnum {
	bn := a.next
	a.next++
	util.DPrintf(10, "balloc: %d\n", bn)
	return bn
}

// Cursor is the first number not yet handed out.
func (a *Alloc) Cursor() common.Bnum {
	return a.next
}

func (a *Alloc) NumAllocated() uint64 {
	return a.next - a.start
}

func (a *Alloc) Check() error {
	if a.next > a.limit {
		return fmt.Errorf("allocated through block %d, limit %d: %w",
			a.next-1, a.limit, ErrNoSpace)
	}
	return nil
}

// Bitmap renders fs's bitmap region with bits [0, a.Cursor()) set, which
// covers the metadata blocks and every block handed out.
func (a *Alloc) Bitmap(fs *super.FsSuper) []disk.Block {
	blks := make([]disk.Block, fs.NBitmap())
	for i := range blks {
		blks[i] = make(disk.Block, disk.BlockSize)
	}
	one := []byte{1}
	for bn := common.Bnum(0); bn < a.next; bn++ {
		ba := fs.Bit2Addr(bn)
		b := buf.MkBuf(ba, 1, one)
		b.Install(blks[ba.Blkno-fs.BmapStart])
	}
	return blks
}

// WriteBitmap checks capacity and writes the bitmap; it is the last write
// of a build.
func (a *Alloc) WriteBitmap(d disk.Disk, fs *super.FsSuper) error {
	if err := a.Check(); err != nil {
		return err
	}
	util.DPrintf(0, "balloc: first %d blocks have been allocated\n", a.next)
	for i, blk := range a.Bitmap(fs) {
		bn := fs.BmapStart + common.Bnum(i)
		util.DPrintf(1, "balloc: write bitmap block at sector %d\n", bn)
		if err := d.Write(bn, blk); err != nil {
			return err
		}
	}
	return nil
}

// IsSet reports whether block bn is marked used in the bitmap blocks blks.
func IsSet(blks []disk.Block, bn common.Bnum) bool {
	ba := addr.MkBitAddr(0, bn)
	b := buf.MkBufLoad(ba, 1, blks[ba.Blkno])
	return b.Data[0]&(1<<(ba.Off%8)) != 0
}
