package mkfs

import (
	"errors"
	"fmt"
	"strings"
)

// BuildPrefix is the directory user programs are built in.
const BuildPrefix = "user/"

var ErrBadName = errors.New("bad file name")

// ShortName turns an input path into the name stored in the root directory.
// The build directory prefix is dropped, as is one leading '_' (programs are
// built as _cat, _ls, ... so the host never runs them in place of its own).
// Anything left that still names a subdirectory is rejected.
func ShortName(path string) (string, error) {
	name := strings.TrimPrefix(path, BuildPrefix)
	if strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("%s: %w: not in the root directory", path, ErrBadName)
	}
	name = strings.TrimPrefix(name, "_")
	if name == "" {
		return "", fmt.Errorf("%q: %w: empty", path, ErrBadName)
	}
	return name, nil
}
