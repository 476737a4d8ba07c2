package wal

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/super"
	"github.com/mit-pdos/go-mkfs/util"
)

const (
	HDRMETA  = uint64(4) // space for the count of logged blocks
	HDRADDRS = (disk.BlockSize - HDRMETA) / 4
)

// Header is the commit record at the start of the log region: the number of
// committed blocks followed by their home addresses. A zero count means
// there is nothing to recover, which is how a fresh image leaves it.
type Header struct {
	N     uint32
	Addrs []uint32
}

// capacity is the number of addresses the header of a log of nlog blocks
// can hold.
func capacity(nlog uint64) uint64 {
	return util.Min(nlog, HDRADDRS)
}

func (h *Header) Empty() bool {
	return h.N == 0
}

func (h *Header) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt32(h.N)
	for _, a := range h.Addrs {
		enc.PutInt32(a)
	}
	return enc.Finish()
}

func Decode(blk disk.Block, nlog uint64) (*Header, error) {
	dec := marshal.NewDec(blk)
	h := &Header{N: dec.GetInt32()}
	room := capacity(nlog)
	if uint64(h.N) > room {
		return nil, fmt.Errorf("log header: %d blocks logged, room for %d", h.N, room)
	}
	h.Addrs = make([]uint32, room)
	for i := range h.Addrs {
		h.Addrs[i] = dec.GetInt32()
	}
	return h, nil
}

// ReadHeader reads the header of fs's log.
func ReadHeader(d disk.Disk, fs *super.FsSuper) (*Header, error) {
	blk, err := d.Read(fs.LogStart)
	if err != nil {
		return nil, err
	}
	return Decode(blk, fs.NLog)
}

// Pending lists the home blocks a non-empty log would install on recovery.
func (h *Header) Pending() []common.Bnum {
	bns := make([]common.Bnum, h.N)
	for i := range bns {
		bns[i] = common.Bnum(h.Addrs[i])
	}
	return bns
}
