package mkfs

import (
	"bytes"
	"errors"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-mkfs/alloc"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/dir"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/image"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/super"
)

type input struct {
	name string
	data []byte
}

func data(sz int) []byte {
	d := make([]byte, sz)
	rand.Read(d)
	return d
}

// build runs every phase over in-memory inputs.
func build(t *testing.T, cfg Config, inputs []input) (disk.Disk, *Builder) {
	d := disk.NewMemDisk(cfg.Size)
	b := MkBuilder(d, cfg)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.WriteSuper())
	require.NoError(t, b.MkRoot())
	for _, in := range inputs {
		_, err := b.AddFile(in.name, bytes.NewReader(in.data))
		require.NoError(t, err)
	}
	require.NoError(t, b.FixRoot())
	require.NoError(t, b.Finish())
	assert.Equal(t, PhaseDone, b.Phase())
	return d, b
}

func open(t *testing.T, d disk.Disk, cfg Config) *image.Image {
	im, err := image.Open(d, cfg.Geometry())
	require.NoError(t, err)
	require.NoError(t, im.Check())
	return im
}

func TestEndToEnd(t *testing.T) {
	for _, ndirect := range []uint64{common.NDIRECT, 2} {
		cfg := DefaultConfig()
		cfg.NDirect = ndirect
		a := data(10)
		bs := data(2050)
		d, b := build(t, cfg, []input{{"a", a}, {"b", bs}})
		im := open(t, d, cfg)

		ents, err := im.ReadDir(common.ROOTINUM)
		require.NoError(t, err)
		assert.Equal(t, []dir.DirEnt{
			{Inum: 1, Name: "."},
			{Inum: 1, Name: ".."},
			{Inum: 2, Name: "a"},
			{Inum: 3, Name: "b"},
		}, ents)

		root, err := im.Inode(common.ROOTINUM)
		require.NoError(t, err)
		assert.Equal(t, uint32(disk.BlockSize), root.Size, "root rounded to a block")

		ia, err := im.Inode(2)
		require.NoError(t, err)
		assert.Equal(t, uint32(10), ia.Size)
		assert.Equal(t, common.T_FILE, ia.Type)
		assert.NotEqual(t, uint32(0), ia.Addrs[0])
		for _, x := range ia.Addrs[1:] {
			assert.Equal(t, uint32(0), x, "a uses one direct block")
		}
		got, err := im.ReadFile(2)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		ib, err := im.Inode(3)
		require.NoError(t, err)
		assert.Equal(t, uint32(2050), ib.Size)
		blks, err := im.Blocks(3)
		require.NoError(t, err)
		assert.True(t, len(blks) >= 3)
		third, err := file.BlockFor(d, ib, 2)
		require.NoError(t, err)
		assert.NotEqual(t, common.NULLBNUM, third)
		if ndirect == 2 {
			assert.NotEqual(t, common.NULLBNUM, ib.Indirect(),
				"3rd block reached through the indirect pointer")
			assert.Equal(t, 4, len(blks))
		} else {
			assert.Equal(t, common.NULLBNUM, ib.Indirect())
			assert.Equal(t, uint32(third), ib.Addrs[2])
		}
		got, err = im.ReadFile(3)
		require.NoError(t, err)
		assert.Equal(t, bs, got)

		// root 1, a 1, b 3 (plus the indirect block)
		k := uint64(5)
		if ndirect == 2 {
			k = 6
		}
		assert.Equal(t, k, b.NumBlocks())
		bm, err := im.Bitmap()
		require.NoError(t, err)
		used := im.Super().NMeta() + k
		for bn := uint64(0); bn < common.NBITBLOCK; bn++ {
			if alloc.IsSet(bm, bn) != (bn < used) {
				t.Fatalf("ndirect %d: bitmap bit %d wrong", ndirect, bn)
			}
		}
	}
}

func TestImageSuperblock(t *testing.T) {
	cfg := DefaultConfig()
	d, _ := build(t, cfg, nil)
	fs, err := super.Read(d, cfg.Geometry())
	require.NoError(t, err)
	assert.Equal(t, uint64(1954), fs.NBlocks)
	boot, err := d.Read(super.BOOTBLK)
	require.NoError(t, err)
	assert.Equal(t, make(disk.Block, disk.BlockSize), boot, "boot block stays zero")
}

func TestLongNameTruncated(t *testing.T) {
	cfg := DefaultConfig()
	long := "averyveryverylongname"
	d, _ := build(t, cfg, []input{{long, []byte("x")}})
	im := open(t, d, cfg)
	inum, err := im.Lookup(long[:common.DIRSIZ])
	require.NoError(t, err)
	assert.Equal(t, common.Inum(2), inum)
	_, err = im.Lookup(long)
	assert.True(t, errors.Is(err, image.ErrNotFound))
}

func TestRootFixupExact(t *testing.T) {
	cfg := DefaultConfig()
	// 2 + 62 entries fill the first directory block exactly
	var inputs []input
	for i := 0; i < int(common.DIRENTBLK)-2; i++ {
		inputs = append(inputs, input{name: "f" + strconv.Itoa(i)})
	}
	d, _ := build(t, cfg, inputs)
	im := open(t, d, cfg)
	root, err := im.Inode(common.ROOTINUM)
	require.NoError(t, err)
	assert.Equal(t, uint32(disk.BlockSize), root.Size, "already aligned, left alone")

	// one more entry spills into a second block
	inputs = append(inputs, input{name: "extra"})
	d, _ = build(t, cfg, inputs)
	im = open(t, d, cfg)
	root, err = im.Inode(common.ROOTINUM)
	require.NoError(t, err)
	assert.Equal(t, uint32(2*disk.BlockSize), root.Size)
}

func TestManyFiles(t *testing.T) {
	cfg := DefaultConfig()
	var inputs []input
	for i := 0; i < 40; i++ {
		inputs = append(inputs, input{
			name: "file" + string(rune('A'+i)),
			data: data(rand.Intn(20 * int(disk.BlockSize))),
		})
	}
	d, _ := build(t, cfg, inputs)
	im := open(t, d, cfg)
	for _, in := range inputs {
		inum, err := im.Lookup(in.name)
		require.NoError(t, err)
		got, err := im.ReadFile(inum)
		require.NoError(t, err)
		assert.Equal(t, in.data, got, in.name)
	}
}

func TestPhaseOrder(t *testing.T) {
	cfg := DefaultConfig()
	b := MkBuilder(disk.NewMemDisk(cfg.Size), cfg)
	assert.True(t, errors.Is(b.WriteSuper(), ErrPhase))
	require.NoError(t, b.Initialize())
	assert.True(t, errors.Is(b.Initialize(), ErrPhase), "no repeats")
	_, err := b.AddFile("x", bytes.NewReader(nil))
	assert.True(t, errors.Is(err, ErrPhase))
	require.NoError(t, b.WriteSuper())
	assert.True(t, errors.Is(b.FixRoot(), ErrPhase))
	require.NoError(t, b.MkRoot())
	assert.True(t, errors.Is(b.Finish(), ErrPhase))
	require.NoError(t, b.FixRoot())
	_, err = b.AddFile("late", bytes.NewReader(nil))
	assert.True(t, errors.Is(err, ErrPhase), "no files after the root fixup")
	require.NoError(t, b.Finish())
	assert.Equal(t, "done", b.Phase().String())
}

func TestDiskSizeMismatch(t *testing.T) {
	cfg := DefaultConfig()
	b := MkBuilder(disk.NewMemDisk(100), cfg)
	assert.Error(t, b.Initialize())
}

func TestOutOfInodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NInodes = 4
	d := disk.NewMemDisk(cfg.Size)
	b := MkBuilder(d, cfg)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.WriteSuper())
	require.NoError(t, b.MkRoot())
	_, err := b.AddFile("x", bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = b.AddFile("y", bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = b.AddFile("z", bytes.NewReader(nil))
	assert.True(t, errors.Is(err, inode.ErrNoInodes))
}

func TestFileTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	d := disk.NewMemDisk(cfg.Size)
	b := MkBuilder(d, cfg)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.WriteSuper())
	require.NoError(t, b.MkRoot())
	big := data(int(cfg.Geometry().MaxFileSize()) + 1)
	_, err := b.AddFile("big", bytes.NewReader(big))
	assert.True(t, errors.Is(err, file.ErrFileTooLarge))
}

func TestImageFull(t *testing.T) {
	cfg := Config{Size: 60, NInodes: 16, NLog: 2, NDirect: common.NDIRECT}
	d := disk.NewMemDisk(cfg.Size)
	b := MkBuilder(d, cfg)
	require.NoError(t, b.Initialize())
	require.NoError(t, b.WriteSuper())
	require.NoError(t, b.MkRoot())
	_, err := b.AddFile("big", bytes.NewReader(data(60*int(disk.BlockSize))))
	assert.True(t, errors.Is(err, disk.ErrOutOfBounds))
}

func TestBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Size = 40
	b := MkBuilder(disk.NewMemDisk(cfg.Size), cfg)
	require.NoError(t, b.Initialize())
	assert.True(t, errors.Is(b.WriteSuper(), super.ErrNoSpace))
}

func TestBuildFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "mkfs")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, os.Mkdir("user", 0755))
	cat := data(3000)
	require.NoError(t, ioutil.WriteFile("user/_cat", cat, 0644))
	require.NoError(t, ioutil.WriteFile("README", []byte("hello\n"), 0644))

	cfg := DefaultConfig()
	fs, err := BuildFile("fs.img", cfg, []string{"README", "user/_cat"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), fs.Size)

	fi, err := os.Stat("fs.img")
	require.NoError(t, err)
	assert.Equal(t, int64(2000*disk.BlockSize), fi.Size())

	d, err := disk.OpenFileDisk("fs.img")
	require.NoError(t, err)
	defer d.Close()
	im := open(t, d, cfg)
	inum, err := im.Lookup("cat")
	require.NoError(t, err)
	got, err := im.ReadFile(inum)
	require.NoError(t, err)
	assert.Equal(t, cat, got)
	inum, err = im.Lookup("README")
	require.NoError(t, err)
	got, err = im.ReadFile(inum)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\n"), got)
}

func TestBuildFileErrors(t *testing.T) {
	dir, err := ioutil.TempDir("", "mkfs")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "fs.img")

	cfg := DefaultConfig()
	cfg.Size = 10
	_, err = BuildFile(out, cfg, nil)
	assert.Error(t, err)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "bad config fails before creating the image")

	_, err = BuildFile(out, DefaultConfig(), []string{"user/nonexistent"})
	assert.Error(t, err)
	_, err = BuildFile(out, DefaultConfig(), []string{"kernel/kernel"})
	assert.True(t, errors.Is(err, ErrBadName))
}
