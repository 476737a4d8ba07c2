// Package mkfs builds a filesystem image: a root directory holding a flat
// set of files.
//
// A build runs through its phases in order, once each:
//
//	Initialize -> WriteSuper -> MkRoot -> AddFile* -> FixRoot -> Finish
package mkfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mit-pdos/go-mkfs/alloc"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/dir"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/super"
	"github.com/mit-pdos/go-mkfs/util"
)

type Phase int

const (
	PhaseNew Phase = iota
	PhaseInitialized
	PhaseSuper
	PhaseRoot // files may be added
	PhaseFixed
	PhaseDone
)

var phaseNames = []string{"new", "initialized", "superblock written",
	"root created", "root fixed", "done"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var ErrPhase = errors.New("build step out of order")

// Builder owns the allocation state of one build.
type Builder struct {
	d     disk.Disk
	cfg   Config
	phase Phase

	fs    *super.FsSuper
	tbl   *inode.Table
	alloc *alloc.Alloc
	app   *file.Appender
	root  common.Inum
}

func MkBuilder(d disk.Disk, cfg Config) *Builder {
	return &Builder{
		d:     d,
		cfg:   cfg,
		phase: PhaseNew,
	}
}

func (b *Builder) Phase() Phase {
	return b.phase
}

// Super is the layout, available once the superblock is written.
func (b *Builder) Super() *super.FsSuper {
	return b.fs
}

func (b *Builder) expect(p Phase) error {
	if b.phase != p {
		return fmt.Errorf("%w: in phase %q, need %q", ErrPhase, b.phase, p)
	}
	return nil
}

// Initialize zeroes the whole image.
func (b *Builder) Initialize() error {
	if err := b.expect(PhaseNew); err != nil {
		return err
	}
	sz, err := b.d.Size()
	if err != nil {
		return err
	}
	if sz != b.cfg.Size {
		return fmt.Errorf("disk has %d blocks, config wants %d", sz, b.cfg.Size)
	}
	if err := disk.ZeroFill(b.d); err != nil {
		return err
	}
	b.phase = PhaseInitialized
	return nil
}

// WriteSuper lays out the regions and writes the superblock.
func (b *Builder) WriteSuper() error {
	if err := b.expect(PhaseInitialized); err != nil {
		return err
	}
	fs, err := super.ComputeLayout(b.cfg.Size, b.cfg.NInodes, b.cfg.NLog, b.cfg.Geometry())
	if err != nil {
		return err
	}
	util.DPrintf(0, "%v\n", fs)
	if err := fs.Write(b.d); err != nil {
		return err
	}
	b.fs = fs
	b.tbl = inode.MkTable(b.d, fs)
	b.alloc = alloc.MkDataAlloc(fs)
	b.app = file.MkAppender(b.d, b.tbl, b.alloc)
	b.phase = PhaseSuper
	return nil
}

// MkRoot creates the root directory with its "." and ".." entries.
func (b *Builder) MkRoot() error {
	if err := b.expect(PhaseSuper); err != nil {
		return err
	}
	root, err := dir.MkRoot(b.tbl, b.app)
	if err != nil {
		return err
	}
	b.root = root
	b.phase = PhaseRoot
	return nil
}

// AddFile creates a file called name in the root directory holding the
// contents of r.
func (b *Builder) AddFile(name string, r io.Reader) (common.Inum, error) {
	if err := b.expect(PhaseRoot); err != nil {
		return common.NULLINUM, err
	}
	inum, err := b.tbl.Alloc(common.T_FILE)
	if err != nil {
		return common.NULLINUM, fmt.Errorf("%s: %w", name, err)
	}
	if err := dir.AddEntry(b.app, b.root, name, inum); err != nil {
		return common.NULLINUM, fmt.Errorf("%s: %w", name, err)
	}
	n, err := b.app.AppendFrom(inum, r)
	if err != nil {
		return common.NULLINUM, fmt.Errorf("%s: %w", name, err)
	}
	util.DPrintf(1, "mkfs: %s -> inode %d, %d bytes\n", name, inum, n)
	return inum, nil
}

// AddPath adds the host file at path under its short name.
func (b *Builder) AddPath(path string) (common.Inum, error) {
	name, err := ShortName(path)
	if err != nil {
		return common.NULLINUM, err
	}
	f, err := os.Open(path)
	if err != nil {
		return common.NULLINUM, err
	}
	defer f.Close()
	return b.AddFile(name, f)
}

// FixRoot rounds the root directory's size up to a whole block, since the
// kernel reads directories a block at a time.
func (b *Builder) FixRoot() error {
	if err := b.expect(PhaseRoot); err != nil {
		return err
	}
	ip, err := b.tbl.Read(b.root)
	if err != nil {
		return err
	}
	ip.Size = uint32(util.RoundUp(uint64(ip.Size), disk.BlockSize) * disk.BlockSize)
	if err := b.tbl.Write(b.root, ip); err != nil {
		return err
	}
	b.phase = PhaseFixed
	return nil
}

// Finish writes the bitmap, covering every block handed out, and flushes
// the image.
func (b *Builder) Finish() error {
	if err := b.expect(PhaseFixed); err != nil {
		return err
	}
	if err := b.alloc.WriteBitmap(b.d, b.fs); err != nil {
		return err
	}
	if err := b.d.Barrier(); err != nil {
		return err
	}
	b.phase = PhaseDone
	return nil
}

// NumBlocks is the number of data blocks handed out so far.
func (b *Builder) NumBlocks() uint64 {
	if b.alloc == nil {
		return 0
	}
	return b.alloc.NumAllocated()
}

// Build runs a whole build onto d from the host files at paths.
func Build(d disk.Disk, cfg Config, paths []string) (*super.FsSuper, error) {
	b := MkBuilder(d, cfg)
	if err := b.Initialize(); err != nil {
		return nil, err
	}
	if err := b.WriteSuper(); err != nil {
		return nil, err
	}
	if err := b.MkRoot(); err != nil {
		return nil, err
	}
	for _, p := range paths {
		if _, err := b.AddPath(p); err != nil {
			return nil, err
		}
	}
	if err := b.FixRoot(); err != nil {
		return nil, err
	}
	if err := b.Finish(); err != nil {
		return nil, err
	}
	return b.Super(), nil
}

// BuildFile builds the image file at out. A failed build leaves whatever
// was written behind.
func BuildFile(out string, cfg Config, paths []string) (fs *super.FsSuper, err error) {
	// reject a bad configuration before touching out
	if _, err := super.ComputeLayout(cfg.Size, cfg.NInodes, cfg.NLog, cfg.Geometry()); err != nil {
		return nil, err
	}
	d, err := disk.NewFileDisk(out, cfg.Size)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			fs, err = nil, fmt.Errorf("close %s: %w", out, cerr)
		}
	}()
	return Build(d, cfg, paths)
}
