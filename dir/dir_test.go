package dir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-mkfs/alloc"
	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/file"
	"github.com/mit-pdos/go-mkfs/inode"
	"github.com/mit-pdos/go-mkfs/super"
)

func TestEncode(t *testing.T) {
	b := DirEnt{Inum: 0x0102, Name: "cat"}.Encode()
	assert.Equal(t, []byte{0x02, 0x01, 'c', 'a', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, b)
}

func TestEncodeTruncates(t *testing.T) {
	b := DirEnt{Inum: 7, Name: "abcdefghijklmnopq"}.Encode()
	assert.Equal(t, int(common.DIRENTSZ), len(b))
	assert.Equal(t, "abcdefghijklmn", string(b[2:]), "full field has no terminator")
	assert.Equal(t, DirEnt{Inum: 7, Name: "abcdefghijklmn"}, Decode(b))
}

func TestDecode(t *testing.T) {
	for _, de := range []DirEnt{{1, "."}, {1, ".."}, {65535, "x"}, {3, ""}} {
		assert.Equal(t, de, Decode(de.Encode()))
	}
}

type env struct {
	d   disk.Disk
	tbl *inode.Table
	app *file.Appender
}

func mkEnv(t *testing.T) env {
	fs, err := super.ComputeLayout(2000, 200, 30, common.DefaultGeometry())
	require.NoError(t, err)
	d := disk.NewMemDisk(fs.Size)
	tbl := inode.MkTable(d, fs)
	return env{d: d, tbl: tbl, app: file.MkAppender(d, tbl, alloc.MkDataAlloc(fs))}
}

func TestMkRoot(t *testing.T) {
	e := mkEnv(t)
	root, err := MkRoot(e.tbl, e.app)
	require.NoError(t, err)
	assert.Equal(t, common.ROOTINUM, root)

	ip, err := e.tbl.Read(root)
	require.NoError(t, err)
	assert.Equal(t, uint32(2*common.DIRENTSZ), ip.Size)
	ents, err := ReadDir(e.d, ip)
	require.NoError(t, err)
	assert.Equal(t, []DirEnt{{root, "."}, {root, ".."}}, ents)
}

func TestMkRootNotFirst(t *testing.T) {
	e := mkEnv(t)
	_, err := e.tbl.Alloc(common.T_FILE)
	require.NoError(t, err)
	_, err = MkRoot(e.tbl, e.app)
	assert.Error(t, err)
}

func TestAddEntries(t *testing.T) {
	e := mkEnv(t)
	root, err := MkRoot(e.tbl, e.app)
	require.NoError(t, err)
	// enough entries to spill into a second block
	want := []DirEnt{{root, "."}, {root, ".."}}
	for i := 0; i < 100; i++ {
		inum, err := e.tbl.Alloc(common.T_FILE)
		require.NoError(t, err)
		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		require.NoError(t, AddEntry(e.app, root, name, inum))
		want = append(want, DirEnt{inum, name})
	}
	ip, err := e.tbl.Read(root)
	require.NoError(t, err)
	ents, err := ReadDir(e.d, ip)
	require.NoError(t, err)
	assert.Equal(t, want, ents)

	inum, ok := Lookup(ents, "bc")
	assert.True(t, ok)
	assert.Equal(t, common.Inum(2+2*26+1), inum)
	_, ok = Lookup(ents, "zz")
	assert.False(t, ok)
}

func TestAddEntryLongName(t *testing.T) {
	e := mkEnv(t)
	root, err := MkRoot(e.tbl, e.app)
	require.NoError(t, err)
	require.NoError(t, AddEntry(e.app, root, "averyveryverylongname", 2))
	ip, _ := e.tbl.Read(root)
	ents, err := ReadDir(e.d, ip)
	require.NoError(t, err)
	assert.Equal(t, "averyveryveryl", ents[2].Name)
}

func TestAddEntryRange(t *testing.T) {
	e := mkEnv(t)
	root, err := MkRoot(e.tbl, e.app)
	require.NoError(t, err)
	err = AddEntry(e.app, root, "big", 1<<16)
	assert.True(t, errors.Is(err, ErrInumRange))
}

func TestReadDirNotDir(t *testing.T) {
	e := mkEnv(t)
	_, err := MkRoot(e.tbl, e.app)
	require.NoError(t, err)
	inum, _ := e.tbl.Alloc(common.T_FILE)
	ip, _ := e.tbl.Read(inum)
	_, err = ReadDir(e.d, ip)
	assert.Error(t, err)
}
