package main

import (
	"flag"
	"fmt"
	"os"

	"lsmkv/internal/common"
	"lsmkv/internal/inspect"
)

func main() {
	verbose := flag.Bool("v", false, "print every cell or record")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-v] <file.sst|vlog>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	common.LoggingEnabled = false
	if err := inspect.File(os.Stdout, flag.Arg(0), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "failed to inspect %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}
