package main

import (
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/mit-pdos/go-mkfs/common"
	"github.com/mit-pdos/go-mkfs/image"
)

func commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{Name: "super", Help: "print the superblock", Func: Super},
		{Name: "ls", Help: "list the root directory", Func: Ls},
		{Name: "stat", Help: "stat <inum>: print an inode", Func: Stat},
		{Name: "cat", Help: "cat <name>: print a file", Func: Cat},
		{Name: "check", Help: "check the image", Func: Check},
	}
}

func getImage(c *ishell.Context) *image.Image {
	return c.Get("image").(*image.Image)
}

func Super(c *ishell.Context) {
	fs := getImage(c).Super()
	c.Println(fs.String())
	c.Printf("magic %#x logstart %d inodestart %d bmapstart %d datastart %d\n",
		fs.Magic, fs.LogStart, fs.InodeStart, fs.BmapStart, fs.DataStart())
}

func Ls(c *ishell.Context) {
	im := getImage(c)
	ents, err := im.ReadDir(common.ROOTINUM)
	if err != nil {
		c.Err(err)
		return
	}
	for _, de := range ents {
		ip, err := im.Inode(de.Inum)
		if err != nil {
			c.Err(err)
			return
		}
		c.Printf("%-14s %4d %6s %8d\n", de.Name, de.Inum, ip.TypeName(), ip.Size)
	}
}

func Stat(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("expected 1 argument")
		return
	}
	n, err := strconv.ParseUint(c.Args[0], 10, 64)
	if err != nil {
		c.Err(err)
		return
	}
	im := getImage(c)
	ip, err := im.Inode(common.Inum(n))
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(ip.String())
	bns, err := im.Blocks(common.Inum(n))
	if err != nil {
		c.Err(err)
		return
	}
	c.Printf("blocks %v\n", bns)
}

func Cat(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("expected 1 argument")
		return
	}
	im := getImage(c)
	inum, err := im.Lookup(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	data, err := im.ReadFile(inum)
	if err != nil {
		c.Err(err)
		return
	}
	c.Print(string(data))
}

func Check(c *ishell.Context) {
	if err := getImage(c).Check(); err != nil {
		c.Err(err)
		return
	}
	c.Println("ok")
}
