package common

const (
	// BlockSize is the size of a sector; one filesystem block is one sector.
	BlockSize uint64 = 1024

	// NBITBLOCK is the number of bitmap bits held by one block.
	NBITBLOCK uint64 = BlockSize * 8

	FSMAGIC uint32 = 0x10203040

	NDIRECT   uint64 = 12
	NINDIRECT uint64 = BlockSize / 4 // pointers in an indirect block

	DIRSIZ    uint64 = 14
	DIRENTSZ  uint64 = 16
	DIRENTBLK uint64 = BlockSize / DIRENTSZ

	// defaults for a fresh image
	FSSIZE  uint64 = 2000
	NINODES uint64 = 200
	LOGSIZE uint64 = 30
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// Inode types as stored in the type field.
const (
	T_UNUSED uint16 = 0
	T_DIR    uint16 = 1
	T_FILE   uint16 = 2
	T_DEVICE uint16 = 3
)
