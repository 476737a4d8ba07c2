// Command mkfs builds a filesystem image holding the given files in its root
// directory.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mit-pdos/go-mkfs/mkfs"
	"github.com/mit-pdos/go-mkfs/util"
)

func ferr(f string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, f, s...)
}

type options struct {
	cfg     mkfs.Config
	verbose uint64
	out     string
	paths   []string
}

// parseArgs parses the command line after the program name. Usage and flag
// errors are written to errOut.
func parseArgs(name string, args []string, errOut io.Writer) (*options, error) {
	o := &options{cfg: mkfs.DefaultConfig()}
	fl := flag.NewFlagSet(name, flag.ContinueOnError)
	fl.SetOutput(errOut)
	fl.Uint64Var(&o.cfg.Size, "size", o.cfg.Size, "the size of the image (in blocks)")
	fl.Uint64Var(&o.cfg.NInodes, "ninodes", o.cfg.NInodes, "the number of inodes")
	fl.Uint64Var(&o.cfg.NLog, "nlog", o.cfg.NLog, "the size of the log (in blocks)")
	fl.Uint64Var(&o.cfg.NDirect, "ndirect", o.cfg.NDirect, "direct block pointers per inode")
	fl.Uint64Var(&o.verbose, "v", 0, "debug output level")
	fl.Usage = func() {
		fmt.Fprintf(errOut, "Usage: %s fs.img files...\n", name)
		fl.PrintDefaults()
	}
	if err := fl.Parse(args); err != nil {
		return nil, err
	}
	if fl.NArg() < 1 {
		fl.Usage()
		return nil, fmt.Errorf("missing output image")
	}
	o.out = fl.Arg(0)
	o.paths = fl.Args()[1:]
	return o, nil
}

func main() {
	o, err := parseArgs(os.Args[0], os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(1)
	}
	if err != nil {
		ferr("mkfs: %v\n", err)
		os.Exit(1)
	}
	util.Debug = o.verbose

	if _, err := mkfs.BuildFile(o.out, o.cfg, o.paths); err != nil {
		ferr("mkfs: %v\n", err)
		os.Exit(1)
	}
}
