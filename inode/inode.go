package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-mkfs/common"
)

// Inode is the on-disk inode record:
//
//	type (2) | nlink (2) | size (4) | NDirect direct addrs (4 each) | indirect (4) | pad
//
// All fields are little-endian.
type Inode struct {
	Type  uint16
	Nlink uint16
	Size  uint32
	Addrs []uint32 // NDirect direct pointers followed by the indirect pointer
}

func MkInode(geom common.Geometry, typ uint16) *Inode {
	return &Inode{
		Type:  typ,
		Nlink: 1,
		Size:  0,
		Addrs: make([]uint32, geom.NAddrs()),
	}
}

func (ip *Inode) IsDir() bool {
	return ip.Type == common.T_DIR
}

// Indirect is the address of the indirect block, 0 if none.
func (ip *Inode) Indirect() common.Bnum {
	return common.Bnum(ip.Addrs[len(ip.Addrs)-1])
}

func (ip *Inode) SetIndirect(bn common.Bnum) {
	ip.Addrs[len(ip.Addrs)-1] = uint32(bn)
}

func (ip *Inode) NDirect() uint64 {
	return uint64(len(ip.Addrs) - 1)
}

func (ip *Inode) String() string {
	return fmt.Sprintf("type %d nlink %d size %d addrs %v",
		ip.Type, ip.Nlink, ip.Size, ip.Addrs)
}

func typeName(typ uint16) string {
	switch typ {
	case common.T_UNUSED:
		return "unused"
	case common.T_DIR:
		return "dir"
	case common.T_FILE:
		return "file"
	case common.T_DEVICE:
		return "device"
	}
	return fmt.Sprintf("type(%d)", typ)
}

func (ip *Inode) TypeName() string {
	return typeName(ip.Type)
}

// Encode produces the geom.InodeSize()-byte record. The two 16-bit header
// fields share one little-endian word, which lays them out exactly as two
// little-endian halfwords.
func (ip *Inode) Encode(geom common.Geometry) []byte {
	if uint64(len(ip.Addrs)) != geom.NAddrs() {
		panic(fmt.Sprintf("inode has %d addrs, geometry wants %d",
			len(ip.Addrs), geom.NAddrs()))
	}
	enc := marshal.NewEnc(geom.InodeSize())
	enc.PutInt32(uint32(ip.Type) | uint32(ip.Nlink)<<16)
	enc.PutInt32(ip.Size)
	for _, a := range ip.Addrs {
		enc.PutInt32(a)
	}
	return enc.Finish()
}

func Decode(data []byte, geom common.Geometry) *Inode {
	dec := marshal.NewDec(data)
	hdr := dec.GetInt32()
	ip := &Inode{
		Type:  uint16(hdr),
		Nlink: uint16(hdr >> 16),
		Size:  dec.GetInt32(),
		Addrs: make([]uint32, geom.NAddrs()),
	}
	for i := range ip.Addrs {
		ip.Addrs[i] = dec.GetInt32()
	}
	return ip
}
