// Command fsexplorer opens a shell for browsing a built image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/disk"
	"github.com/mit-pdos/go-mkfs/image"
)

func main() {
	geom := common.DefaultGeometry()
	flag.Uint64Var(&geom.NDirect, "ndirect", geom.NDirect, "direct block pointers per inode")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-ndirect N] fs.img\n", os.Args[0])
		os.Exit(1)
	}
	d, err := disk.OpenFileDisk(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer d.Close()
	im, err := image.Open(d, geom)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shell := ishell.New()
	shell.SetPrompt("/ > ")
	shell.Set("image", im)
	for _, cmd := range commands() {
		shell.AddCmd(cmd)
	}
	shell.Run()
}
