// Package dir encodes directory entries and appends them to directories.
package dir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/util"
)

var ErrInumRange = errors.New("inode number does not fit a directory entry")

// DirEnt is a directory entry: a 2-byte little-endian inode number followed
// by a DIRSIZ-byte name, NUL-padded but not NUL-terminated when full. Inum 0
// marks a free slot.
type DirEnt struct {
	Inum common.Inum
	Name string
}

// Encode packs de into DIRENTSZ bytes. Names longer than DIRSIZ are
// truncated.
func (de DirEnt) Encode() []byte {
	b := make([]byte, common.DIRENTSZ)
	binary.LittleEndian.PutUint16(b[0:2], uint16(de.Inum))
	copy(b[2:2+common.DIRSIZ], de.Name)
	return b
}

func Decode(b []byte) DirEnt {
	name := b[2 : 2+common.DIRSIZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return DirEnt{
		Inum: common.Inum(binary.LittleEndian.Uint16(b[0:2])),
		Name: string(name),
	}
}

// AddEntry appends an entry naming target to directory dir.
func AddEntry(app *file.Appender, dir common.Inum, name string, target common.Inum) error {
	if target > math.MaxUint16 {
		return fmt.Errorf("entry %q -> %d: %w", name, target, ErrInumRange)
	}
	if uint64(len(name)) > common.DIRSIZ {
		util.DPrintf(1, "dir: truncating %q to %q\n", name, name[:common.DIRSIZ])
	}
	de := DirEnt{Inum: target, Name: name}
	return app.Append(dir, de.Encode())
}

// MkRoot allocates the root directory, which must be the first inode, and
// gives it "." and ".." entries that both point at itself.
func MkRoot(tbl *inode.Table, app *file.Appender) (common.Inum, error) {
	root, err := tbl.Alloc(common.T_DIR)
	if err != nil {
		return common.NULLINUM, err
	}
	if root != common.ROOTINUM {
		return common.NULLINUM, fmt.Errorf("root allocated as inode %d, want %d",
			root, common.ROOTINUM)
	}
	if err := AddEntry(app, root, ".", root); err != nil {
		return common.NULLINUM, err
	}
	if err := AddEntry(app, root, "..", root); err != nil {
		return common.NULLINUM, err
	}
	return root, nil
}

// ReadDir lists the used entries of directory ip in order.
func ReadDir(d disk.Disk, ip *inode.Inode) ([]DirEnt, error) {
	if !ip.IsDir() {
		return nil, fmt.Errorf("inode is a %s, not a directory", ip.TypeName())
	}
	data, err := file.ReadAll(d, ip)
	if err != nil {
		return nil, err
	}
	var ents []DirEnt
	for off := uint64(0); off+common.DIRENTSZ <= uint64(len(data)); off += common.DIRENTSZ {
		de := Decode(data[off : off+common.DIRENTSZ])
		if de.Inum == common.NULLINUM {
			continue
		}
		ents = append(ents, de)
	}
	return ents, nil
}

// Lookup finds name among ents.
func Lookup(ents []DirEnt, name string) (common.Inum, bool) {
	for _, de := range ents {
		if de.Name == name {
			return de.Inum, true
		}
	}
	return common.NULLINUM, false
}
