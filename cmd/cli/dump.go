package main

import (
	"fmt"
	"os"

	"lsmkv/internal/db"
	"lsmkv/internal/inspect"
)

func dumpMemtable(engine *db.DB) {
	fmt.Println("Dumping Memtable")
	fmt.Println()
	inspect.Memtable(os.Stdout, engine.Memtable())
}

func dumpFile(path string) {
	fmt.Printf("Dumping %s\n", path)
	fmt.Println()
	if err := inspect.File(os.Stdout, path, true); err != nil {
		fmt.Printf("dump error: %v\n", err)
	}
}
