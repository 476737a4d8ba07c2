package mkfs

import (
	"github.com/mit-pdos/go-mkfs/common"
)

// Config sizes the image being built.
type Config struct {
	Size    uint64 // total blocks
	NInodes uint64
	NLog    uint64 // log blocks
	NDirect uint64 // direct pointers per inode
}

func DefaultConfig() Config {
	return Config{
		Size:    common.FSSIZE,
		NInodes: common.NINODES,
		NLog:    common.LOGSIZE,
		NDirect: common.NDIRECT,
	}
}

func (cfg Config) Geometry() common.Geometry {
	return common.Geometry{NDirect: cfg.NDirect}
}
