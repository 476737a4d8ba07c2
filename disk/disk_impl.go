package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	path      string
	fd        int
	numBlocks uint64
}

// NewFileDisk creates (or truncates) the image at path, takes an exclusive
// lock on it for the lifetime of the disk, and sizes it to numBlocks blocks.
//
// The lock is taken before truncation, so a concurrent builder on the same
// path fails without clobbering the image.
func NewFileDisk(path string, numBlocks uint64) (*fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if (stat.Mode & unix.S_IFMT) == unix.S_IFREG {
		err = unix.Ftruncate(fd, 0)
		if err == nil {
			err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		}
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	return &fileDisk{path: path, fd: fd, numBlocks: numBlocks}, nil
}

// OpenFileDisk opens an existing image read-only; its size must be a whole
// number of blocks.
func OpenFileDisk(path string) (*fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if uint64(stat.Size)%BlockSize != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: size %d is not a multiple of %d",
			path, stat.Size, BlockSize)
	}
	return &fileDisk{path: path, fd: fd, numBlocks: uint64(stat.Size) / BlockSize}, nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	if err := checkAccess(a, d.numBlocks, buf); err != nil {
		return err
	}
	n, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("%s: read block %d: %w", d.path, a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("%s: read block %d: %w (%d bytes)", d.path, a, ErrShortIO, n)
	}
	return nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.numBlocks, v); err != nil {
		return err
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("%s: write block %d: %w", d.path, a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("%s: write block %d: %w (%d bytes)", d.path, a, ErrShortIO, n)
	}
	return nil
}

func (d *fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("%s: sync: %w", d.path, err)
	}
	return nil
}

// Close drops the lock along with the descriptor.
func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}

/////////////////////////
/////////////////////////

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	l      *sync.RWMutex
	blocks [][BlockSize]byte
}

func NewMemDisk(numBlocks uint64) *memDisk {
	blocks := make([][BlockSize]byte, numBlocks)
	return &memDisk{l: new(sync.RWMutex), blocks: blocks}
}

func (d *memDisk) ReadTo(a uint64, buf Block) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if err := checkAccess(a, uint64(len(d.blocks)), buf); err != nil {
		return err
	}
	copy(buf, d.blocks[a][:])
	return nil
}

func (d *memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *memDisk) Write(a uint64, v Block) error {
	d.l.Lock()
	defer d.l.Unlock()
	if err := checkAccess(a, uint64(len(d.blocks)), v); err != nil {
		return err
	}
	copy(d.blocks[a][:], v)
	return nil
}

func (d *memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d *memDisk) Barrier() error { return nil }

func (d *memDisk) Close() error { return nil }
