package disk

import (
	"errors"
	"fmt"
)

var (
	ErrBlockSize   = errors.New("buffer is not block-sized")
	ErrOutOfBounds = errors.New("block address out of bounds")
	ErrShortIO     = errors.New("short transfer")
)

func checkAccess(a uint64, numBlocks uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return fmt.Errorf("block %d: %w (%d bytes)", a, ErrBlockSize, len(buf))
	}
	if a >= numBlocks {
		return fmt.Errorf("block %d of %d: %w", a, numBlocks, ErrOutOfBounds)
	}
	return nil
}
