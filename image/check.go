package image

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-mkfs/alloc"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/dir"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/util"
	"github.com/mit-pdos/go-mkfs/wal"
)

// CheckError lists everything Check found wrong.
type CheckError struct {
	Problems []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%d problems:\n\t%s", len(e.Problems),
		strings.Join(e.Problems, "\n\t"))
}

type checker struct {
	im       *Image
	problems []string
	owner    map[common.Bnum]common.Inum // data block -> referencing inode
}

func (c *checker) errorf(format string, a ...interface{}) {
	c.problems = append(c.problems, fmt.Sprintf(format, a...))
}

// Check verifies the invariants a fresh image must satisfy: an empty log,
// in-range and unshared block pointers, a bitmap whose set bits are exactly
// the metadata and the referenced blocks, and a well-formed root directory.
func (im *Image) Check() error {
	c := &checker{im: im, owner: make(map[common.Bnum]common.Inum)}
	if err := c.run(); err != nil {
		return err
	}
	if len(c.problems) > 0 {
		return &CheckError{Problems: c.problems}
	}
	return nil
}

func (c *checker) run() error {
	fs := c.im.fs
	h, err := wal.ReadHeader(c.im.d, fs)
	if err != nil {
		return err
	}
	if !h.Empty() {
		c.errorf("log holds %d uninstalled blocks %v", h.N, h.Pending())
	}

	used := make(map[common.Inum]bool)
	for inum := common.ROOTINUM; uint64(inum) < fs.NInodes; inum++ {
		ip, err := c.im.tbl.Read(inum)
		if err != nil {
			return err
		}
		if ip.Type == common.T_UNUSED {
			continue
		}
		used[inum] = true
		if ip.Type > common.T_DEVICE {
			c.errorf("inode %d: bad type %d", inum, ip.Type)
			continue
		}
		if uint64(ip.Size) > fs.Geom.MaxFileSize() {
			c.errorf("inode %d: size %d over max %d", inum, ip.Size, fs.Geom.MaxFileSize())
			continue
		}
		if err := c.checkBlocks(inum); err != nil {
			return err
		}
	}

	if err := c.checkBitmap(); err != nil {
		return err
	}
	return c.checkRoot(used)
}

func (c *checker) claim(inum common.Inum, bn common.Bnum, what string) {
	fs := c.im.fs
	if !fs.IsData(bn) {
		c.errorf("inode %d: %s block %d outside data region [%d, %d)",
			inum, what, bn, fs.DataStart(), fs.Size)
		return
	}
	if other, ok := c.owner[bn]; ok {
		c.errorf("inode %d: %s block %d already used by inode %d", inum, what, bn, other)
		return
	}
	c.owner[bn] = inum
}

func (c *checker) checkBlocks(inum common.Inum) error {
	ip, err := c.im.tbl.Read(inum)
	if err != nil {
		return err
	}
	if ip.Indirect() != common.NULLBNUM {
		c.claim(inum, ip.Indirect(), "indirect")
	}
	nblk := util.RoundUp(uint64(ip.Size), disk.BlockSize)
	for fbn := uint64(0); fbn < nblk; fbn++ {
		bn, err := file.BlockFor(c.im.d, ip, fbn)
		if err != nil {
			return err
		}
		if bn == common.NULLBNUM {
			c.errorf("inode %d: hole at block %d", inum, fbn)
			continue
		}
		c.claim(inum, bn, "data")
	}
	return nil
}

func (c *checker) checkBitmap() error {
	fs := c.im.fs
	blks, err := c.im.Bitmap()
	if err != nil {
		return err
	}
	// set bits must form a prefix
	var cursor common.Bnum
	for cursor < fs.Size && alloc.IsSet(blks, cursor) {
		cursor++
	}
	for bn := cursor; bn < fs.NBitmap()*common.NBITBLOCK; bn++ {
		if alloc.IsSet(blks, bn) {
			c.errorf("bitmap: block %d set past first free block %d", bn, cursor)
			break
		}
	}
	if cursor < fs.DataStart() {
		c.errorf("bitmap: metadata block %d marked free", cursor)
		return nil
	}
	for bn, inum := range c.owner {
		if bn >= cursor {
			c.errorf("inode %d: block %d marked free", inum, bn)
		}
	}
	if n := uint64(cursor - fs.DataStart()); n != uint64(len(c.owner)) {
		c.errorf("bitmap: %d data blocks marked used, %d referenced", n, len(c.owner))
	}
	return nil
}

func (c *checker) checkRoot(used map[common.Inum]bool) error {
	ip, err := c.im.tbl.Read(common.ROOTINUM)
	if err != nil {
		return err
	}
	if !ip.IsDir() {
		c.errorf("root: inode %d is a %s", common.ROOTINUM, ip.TypeName())
		return nil
	}
	if uint64(ip.Size)%disk.BlockSize != 0 {
		c.errorf("root: size %d not a multiple of %d", ip.Size, disk.BlockSize)
	}
	ents, err := dir.ReadDir(c.im.d, ip)
	if err != nil {
		return err
	}
	if len(ents) < 2 || ents[0] != (dir.DirEnt{Inum: common.ROOTINUM, Name: "."}) ||
		ents[1] != (dir.DirEnt{Inum: common.ROOTINUM, Name: ".."}) {
		c.errorf("root: missing . and .. entries")
	}
	links := make(map[common.Inum]uint16)
	for _, de := range ents {
		if !used[de.Inum] {
			c.errorf("root: entry %q names unused inode %d", de.Name, de.Inum)
		}
		links[de.Inum]++
	}
	for inum := range used {
		if inum == common.ROOTINUM {
			continue
		}
		fip, err := c.im.tbl.Read(inum)
		if err != nil {
			return err
		}
		if links[inum] != fip.Nlink {
			c.errorf("inode %d: nlink %d, %d entries", inum, fip.Nlink, links[inum])
		}
	}
	return nil
}
