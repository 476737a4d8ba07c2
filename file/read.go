package file

import (
	"fmt"

	"github.com/mit-pdos/go-mkfs/addr"
	"github.com/mit-pdos/go-mkfs/buf"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/util"
)

// BlockFor resolves logical block fbn of ip without allocating; it returns
// NULLBNUM for an unmapped block.
func BlockFor(d disk.Disk, ip *inode.Inode, fbn uint64) (common.Bnum, error) {
	ndirect := ip.NDirect()
	if fbn < ndirect {
		return common.Bnum(ip.Addrs[fbn]), nil
	}
	if fbn-ndirect >= common.NINDIRECT {
		return common.NULLBNUM, fmt.Errorf("block %d: %w", fbn, ErrFileTooLarge)
	}
	if ip.Indirect() == common.NULLBNUM {
		return common.NULLBNUM, nil
	}
	ind, err := buf.ReadBuf(d, addr.MkAddr(ip.Indirect(), 0), common.NBITBLOCK)
	if err != nil {
		return common.NULLBNUM, err
	}
	return ind.BnumGet((fbn - ndirect) * 4), nil
}

// Blocks lists every block ip references, the indirect block included.
func Blocks(d disk.Disk, ip *inode.Inode) ([]common.Bnum, error) {
	var bns []common.Bnum
	nblk := util.RoundUp(uint64(ip.Size), disk.BlockSize)
	for fbn := uint64(0); fbn < nblk; fbn++ {
		bn, err := BlockFor(d, ip, fbn)
		if err != nil {
			return nil, err
		}
		if bn != common.NULLBNUM {
			bns = append(bns, bn)
		}
	}
	if ip.Indirect() != common.NULLBNUM {
		bns = append(bns, ip.Indirect())
	}
	return bns, nil
}

// ReadAll returns the first ip.Size bytes of the file.
func ReadAll(d disk.Disk, ip *inode.Inode) ([]byte, error) {
	size := uint64(ip.Size)
	data := make([]byte, 0, size)
	for off := uint64(0); off < size; off += disk.BlockSize {
		n := util.Min(disk.BlockSize, size-off)
		bn, err := BlockFor(d, ip, off/disk.BlockSize)
		if err != nil {
			return nil, err
		}
		if bn == common.NULLBNUM {
			data = append(data, make([]byte, n)...)
			continue
		}
		blk, err := d.Read(bn)
		if err != nil {
			return nil, err
		}
		data = append(data, blk[:n]...)
	}
	return data, nil
}
