package common

import "fmt"

// inodeHdrSz covers the type, link count and size fields.
const inodeHdrSz uint64 = 8

// Geometry fixes the shape of an inode record. It is agreed on at build time
// by the image builder and the driver that mounts the image; the superblock
// does not record it.
type Geometry struct {
	NDirect uint64
}

func DefaultGeometry() Geometry {
	return Geometry{NDirect: NDIRECT}
}

func (g Geometry) Validate() error {
	if g.NDirect == 0 {
		return fmt.Errorf("geometry: need at least one direct pointer")
	}
	if g.rawInodeSize() > BlockSize {
		return fmt.Errorf("geometry: %d direct pointers do not fit a %d-byte block",
			g.NDirect, BlockSize)
	}
	return nil
}

// NAddrs is the number of block pointers in an inode, indirect included.
func (g Geometry) NAddrs() uint64 {
	return g.NDirect + 1
}

func (g Geometry) rawInodeSize() uint64 {
	return inodeHdrSz + 4*g.NAddrs()
}

// InodeSize is the on-disk record size: the raw record padded to the next
// power of two, so that records never straddle a block.
func (g Geometry) InodeSize() uint64 {
	raw := g.rawInodeSize()
	sz := uint64(1)
	for sz < raw {
		sz <<= 1
	}
	return sz
}

// IPB is the number of inodes per block.
func (g Geometry) IPB() uint64 {
	return BlockSize / g.InodeSize()
}

// MaxFileBlocks is the number of logical blocks an inode can address.
func (g Geometry) MaxFileBlocks() uint64 {
	return g.NDirect + NINDIRECT
}

func (g Geometry) MaxFileSize() uint64 {
	return g.MaxFileBlocks() * BlockSize
}
