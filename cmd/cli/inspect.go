package main

import (
	"fmt"
	"os"

	"lsmkv/internal/inspect"
)

func inspectFile(path string) {
	if err := inspect.File(os.Stdout, path, false); err != nil {
		fmt.Printf("inspect error: %v\n", err)
	}
	fmt.Println()
}
