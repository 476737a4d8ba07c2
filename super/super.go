// Package super computes the region layout of an image and encodes the
// superblock that describes it.
//
// Layout, in blocks:
//
//	[ boot | super | log | inode table | bitmap | data ]
package super

import (
	"errors"
	"fmt"
	"math"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-mkfs/addr"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/util"
)

const (
	BOOTBLK  = common.Bnum(0)
	SUPERBLK = common.Bnum(1)
	LOGSTART = common.Bnum(2)

	// number of encoded 4-byte fields
	nfields = 8
)

var (
	ErrNoSpace  = errors.New("metadata leaves no data blocks")
	ErrBadMagic = errors.New("bad superblock magic")
	ErrLayout   = errors.New("inconsistent superblock layout")
	ErrNoLog    = errors.New("image needs a log")
)

type FsSuper struct {
	Magic      uint32
	Size       uint64 // total blocks
	NBlocks    uint64 // data blocks
	NInodes    uint64
	NLog       uint64
	LogStart   common.Bnum
	InodeStart common.Bnum
	BmapStart  common.Bnum

	Geom common.Geometry
}

// ComputeLayout sizes every region of an image of sz blocks holding
// ninodes inodes and a log of nlog blocks.
func ComputeLayout(sz uint64, ninodes uint64, nlog uint64, geom common.Geometry) (*FsSuper, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if sz > math.MaxUint32 || ninodes > math.MaxUint32 || nlog > math.MaxUint32 {
		return nil, fmt.Errorf("layout: size %d inodes %d log %d: field overflow",
			sz, ninodes, nlog)
	}
	if nlog == 0 {
		return nil, fmt.Errorf("layout: nlog 0: %w", ErrNoLog)
	}
	if ninodes <= uint64(common.ROOTINUM) {
		return nil, fmt.Errorf("layout: %d inodes leaves no room for the root", ninodes)
	}
	nbitmap := util.RoundUp(sz, common.NBITBLOCK)
	ninodeblk := util.RoundUp(ninodes, geom.IPB())
	nmeta := 2 + nlog + ninodeblk + nbitmap
	if nmeta >= sz {
		return nil, fmt.Errorf("layout: %d metadata blocks in a %d-block image: %w",
			nmeta, sz, ErrNoSpace)
	}
	fs := &FsSuper{
		Magic:      common.FSMAGIC,
		Size:       sz,
		NBlocks:    sz - nmeta,
		NInodes:    ninodes,
		NLog:       nlog,
		LogStart:   LOGSTART,
		InodeStart: LOGSTART + nlog,
		BmapStart:  LOGSTART + nlog + ninodeblk,
		Geom:       geom,
	}
	return fs, nil
}

func (fs *FsSuper) NInodeBlk() uint64 {
	return fs.BmapStart - fs.InodeStart
}

func (fs *FsSuper) NBitmap() uint64 {
	return fs.DataStart() - fs.BmapStart
}

func (fs *FsSuper) DataStart() common.Bnum {
	return fs.Size - fs.NBlocks
}

// NMeta is the number of blocks before the data region.
func (fs *FsSuper) NMeta() uint64 {
	return fs.DataStart()
}

func (fs *FsSuper) Inum2Addr(inum common.Inum) addr.Addr {
	return addr.MkRecordAddr(fs.InodeStart, uint64(inum), fs.Geom.InodeSize())
}

// Bit2Addr locates the bitmap bit of block bn.
func (fs *FsSuper) Bit2Addr(bn common.Bnum) addr.Addr {
	return addr.MkBitAddr(fs.BmapStart, bn)
}

func (fs *FsSuper) IsData(bn common.Bnum) bool {
	return bn >= fs.DataStart() && bn < fs.Size
}

func (fs *FsSuper) String() string {
	return fmt.Sprintf("nmeta %d (boot, super, log blocks %d inode blocks %d, bitmap blocks %d) blocks %d total %d",
		fs.NMeta(), fs.NLog, fs.NInodeBlk(), fs.NBitmap(), fs.NBlocks, fs.Size)
}

// Encode packs the superblock into a block, every field 4-byte
// little-endian.
func (fs *FsSuper) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt32(fs.Magic)
	enc.PutInt32(uint32(fs.Size))
	enc.PutInt32(uint32(fs.NBlocks))
	enc.PutInt32(uint32(fs.NInodes))
	enc.PutInt32(uint32(fs.NLog))
	enc.PutInt32(uint32(fs.LogStart))
	enc.PutInt32(uint32(fs.InodeStart))
	enc.PutInt32(uint32(fs.BmapStart))
	return enc.Finish()
}

// Decode reads a superblock back and checks that its regions line up.
func Decode(blk disk.Block, geom common.Geometry) (*FsSuper, error) {
	if uint64(len(blk)) < nfields*4 {
		return nil, fmt.Errorf("superblock: %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	fs := &FsSuper{Geom: geom}
	fs.Magic = dec.GetInt32()
	fs.Size = uint64(dec.GetInt32())
	fs.NBlocks = uint64(dec.GetInt32())
	fs.NInodes = uint64(dec.GetInt32())
	fs.NLog = uint64(dec.GetInt32())
	fs.LogStart = common.Bnum(dec.GetInt32())
	fs.InodeStart = common.Bnum(dec.GetInt32())
	fs.BmapStart = common.Bnum(dec.GetInt32())
	if fs.Magic != common.FSMAGIC {
		return nil, fmt.Errorf("superblock: magic %#x: %w", fs.Magic, ErrBadMagic)
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Validate checks that the regions are ordered and sized as ComputeLayout
// would have sized them.
func (fs *FsSuper) Validate() error {
	want, err := ComputeLayout(fs.Size, fs.NInodes, fs.NLog, fs.Geom)
	if err != nil {
		return err
	}
	if *want != *fs {
		return fmt.Errorf("superblock %v, expected %v: %w", *fs, *want, ErrLayout)
	}
	return nil
}

func Read(d disk.Disk, geom common.Geometry) (*FsSuper, error) {
	blk, err := d.Read(SUPERBLK)
	if err != nil {
		return nil, err
	}
	return Decode(blk, geom)
}

func (fs *FsSuper) Write(d disk.Disk) error {
	return d.Write(SUPERBLK, fs.Encode())
}
