// buf manages sub-block disk objects (inode records, bitmap bits) and whole
// blocks, to be loaded from and installed into disk blocks
package buf

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-mkfs/addr"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/util"
)

// A Buf is a write to a disk object (inode, a bitmap bit, or disk block)
type Buf struct {
	Addr  addr.Addr
	Sz    uint64 // number of bits
	Data  []byte
	dirty bool // has this block been written to?
}

func MkBuf(addr addr.Addr, sz uint64, data []byte) *Buf {
	b := &Buf{
		Addr:  addr,
		Sz:    sz,
		Data:  data,
		dirty: false,
	}
	return b
}

// Load the bits of a disk block into a new buf, as specified by addr
func MkBufLoad(addr addr.Addr, sz uint64, blk disk.Block) *Buf {
	bytefirst := addr.Off / 8
	bytelast := (addr.Off + sz - 1) / 8
	data := blk[bytefirst : bytelast+1]
	b := &Buf{
		Addr:  addr,
		Sz:    sz,
		Data:  data,
		dirty: false,
	}
	return b
}

// ReadBuf reads the block holding addr and loads the object of sz bits.
func ReadBuf(d disk.Disk, addr addr.Addr, sz uint64) (*Buf, error) {
	blk, err := d.Read(addr.Blkno)
	if err != nil {
		return nil, err
	}
	return MkBufLoad(addr, sz, blk), nil
}

// Install 1 bit from src into dst, at offset bit. return new dst.
func installOneBit(src byte, dst byte, bit uint64) byte {
	var new byte = dst
	if src&(1<<bit) != dst&(1<<bit) {
		if src&(1<<bit) == 0 {
			// dst is 1, but should be 0
			new = new & ^(1 << bit)
		} else {
			// dst is 0, but should be 1
			new = new | (1 << bit)
		}
	}
	return new
}

// Install bit 0 of src to dst, at dstoff in destination. dstoff is in bits.
func installBit(src []byte, dst []byte, dstoff uint64) {
	dstbyte := dstoff / 8
	bit := dstoff % 8
	dst[dstbyte] = installOneBit(src[0]<<bit, dst[dstbyte], bit)
}

// Install bytes from src to dst.
func installBytes(src []byte, dst []byte, dstoff uint64, nbit uint64) {
	sz := nbit / 8
	copy(dst[dstoff/8:], src[:sz])
}

// Install the bits from buf into blk.  Two cases: a bit or a byte-aligned
// object (inode record or whole block)
func (buf *Buf) Install(blk disk.Block) {
	util.DPrintf(20, "%v: install\n", buf.Addr)
	if buf.Sz == 1 {
		installBit(buf.Data, blk, buf.Addr.Off)
	} else if buf.Sz%8 == 0 && buf.Addr.Off%8 == 0 {
		installBytes(buf.Data, blk, buf.Addr.Off, buf.Sz)
	} else {
		panic(fmt.Sprintf("Install unsupported: %v sz %d", buf.Addr, buf.Sz))
	}
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}

// WriteDirect installs buf in its block on d: whole blocks are written as is,
// sub-block objects are merged into the block's current contents.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	buf.SetDirty()
	if buf.Sz == common.NBITBLOCK {
		return d.Write(buf.Addr.Blkno, buf.Data)
	}
	blk, err := d.Read(buf.Addr.Blkno)
	if err != nil {
		return err
	}
	buf.Install(blk)
	return d.Write(buf.Addr.Blkno, blk)
}

// BnumGet reads the 4-byte block number at byte offset off.
func (buf *Buf) BnumGet(off uint64) common.Bnum {
	dec := marshal.NewDec(buf.Data[off : off+4])
	return common.Bnum(dec.GetInt32())
}

func (buf *Buf) BnumPut(off uint64, v common.Bnum) {
	enc := marshal.NewEnc(4)
	enc.PutInt32(uint32(v))
	copy(buf.Data[off:off+4], enc.Finish())
	buf.SetDirty()
}
