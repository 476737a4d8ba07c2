// Package file writes file contents through an inode's block pointers and
// reads them back.
package file

import (
	"errors"
	"fmt"
	"io"

	"github.com/mit-pdos/go-mkfs/addr"
	"github.com/mit-pdos/go-mkfs/alloc"
	"github.com/mit-pdos/go-mkfs/buf"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/util"
)

var ErrFileTooLarge = errors.New("file too large")

// Appender grows files at their end. Blocks, including the indirect block,
// are taken from the allocator on first touch.
type Appender struct {
	d     disk.Disk
	tbl   *inode.Table
	alloc *alloc.Alloc
}

func MkAppender(d disk.Disk, tbl *inode.Table, a *alloc.Alloc) *Appender {
	return &Appender{d: d, tbl: tbl, alloc: a}
}

// bmap returns the block holding logical block fbn of ip, allocating it
// (and the indirect block) if needed. fresh reports a newly allocated block.
func (app *Appender) bmap(ip *inode.Inode, fbn uint64) (bn common.Bnum, fresh bool, err error) {
	ndirect := ip.NDirect()
	if fbn < ndirect {
		if ip.Addrs[fbn] == 0 {
			ip.Addrs[fbn] = uint32(app.alloc.Next())
			fresh = true
		}
		return common.Bnum(ip.Addrs[fbn]), fresh, nil
	}

	var ind *buf.Buf
	if ip.Indirect() == common.NULLBNUM {
		ip.SetIndirect(app.alloc.Next())
		util.DPrintf(5, "bmap: indirect block %d\n", ip.Indirect())
		ind = buf.MkBuf(addr.MkAddr(ip.Indirect(), 0), common.NBITBLOCK,
			make([]byte, disk.BlockSize))
	} else {
		ind, err = buf.ReadBuf(app.d, addr.MkAddr(ip.Indirect(), 0), common.NBITBLOCK)
		if err != nil {
			return 0, false, err
		}
	}
	off := (fbn - ndirect) * 4
	bn = ind.BnumGet(off)
	if bn == common.NULLBNUM {
		bn = app.alloc.Next()
		fresh = true
		ind.BnumPut(off, bn)
	}
	if ind.IsDirty() {
		if err := ind.WriteDirect(app.d); err != nil {
			return 0, false, err
		}
	}
	return bn, fresh, nil
}

// Append writes data at the end of inode inum and updates its size.
func (app *Appender) Append(inum common.Inum, data []byte) error {
	ip, err := app.tbl.Read(inum)
	if err != nil {
		return err
	}
	off := uint64(ip.Size)
	n := uint64(len(data))
	max := app.tbl.Geometry().MaxFileSize()
	if util.SumOverflows(off, n) || off+n > max {
		return fmt.Errorf("append %d bytes to inode %d at %d (max %d): %w",
			n, inum, off, max, ErrFileTooLarge)
	}
	util.DPrintf(10, "append inum %d at off %d sz %d\n", inum, off, n)
	for len(data) > 0 {
		fbn := off / disk.BlockSize
		bn, fresh, err := app.bmap(ip, fbn)
		if err != nil {
			return err
		}
		var blk disk.Block
		if fresh {
			blk = make(disk.Block, disk.BlockSize)
		} else {
			blk, err = app.d.Read(bn)
			if err != nil {
				return err
			}
		}
		boff := off - fbn*disk.BlockSize
		n1 := util.Min(uint64(len(data)), disk.BlockSize-boff)
		copy(blk[boff:], data[:n1])
		if err := app.d.Write(bn, blk); err != nil {
			return err
		}
		data = data[n1:]
		off += n1
	}
	ip.Size = uint32(off)
	return app.tbl.Write(inum, ip)
}

// AppendFrom streams r into inum in block-sized chunks and returns the
// number of bytes appended.
func (app *Appender) AppendFrom(inum common.Inum, r io.Reader) (uint64, error) {
	chunk := make([]byte, disk.BlockSize)
	var total uint64
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if err := app.Append(inum, chunk[:n]); err != nil {
				return total, err
			}
			total += uint64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
