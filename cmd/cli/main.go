package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lsmkv/internal/common"
	"lsmkv/internal/db"

	"github.com/peterh/liner"
)

const usage = "commands: put <k> <v> | get <k> | del <k> | scan <lo> <hi> | gc [chunk] | flush | reset | " +
	"seed <x> | dump mem|<file> | inspect <file> | history [n] | exit"

func main() {
	dir := flag.String("dir", db.DefaultOptions.Dir, "data directory")
	memtableBytes := flag.Int("memtable-bytes", db.DefaultOptions.MemtableMaxBytes, "memtable flush threshold in bytes")
	level0 := flag.Int("l0", db.DefaultOptions.Level0Capacity, "level-0 table capacity")
	gcChunk := flag.Uint64("gc-chunk", db.DefaultOptions.GCChunkSize, "default gc chunk size in bytes")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn)")
	histFile := flag.String("history", defaultHistoryFile(), "history file")
	flag.Parse()

	common.SetLogLevel(*logLevel)

	engine, err := db.Open(
		db.WithDir(*dir),
		db.WithMemtableMaxBytes(*memtableBytes),
		db.WithLevel0Capacity(*level0),
		db.WithGCChunkSize(*gcChunk),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("lsmkv - key/value separated LSM store")
	fmt.Printf("config: dir=%s memtable_bytes=%d l0_capacity=%d\n", *dir, *memtableBytes, *level0)
	fmt.Println(usage)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	history, err := newHistory(line, *histFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load history: %v\n", err)
	}

	seedIndex := loadSeedIndex(engine)
	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "input error: %v\n", err)
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		history.add(input)

		if !run(engine, history, strings.Fields(input), &seedIndex) {
			break
		}
	}

	if err := history.save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save history: %v\n", err)
	}
	line.Close()

	if err := engine.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close database: %v\n", err)
		os.Exit(1)
	}
}

var commands = []string{"put", "get", "del", "scan", "gc", "flush", "reset", "seed", "dump", "inspect", "history", "exit"}

func complete(prefix string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(prefix)) {
			out = append(out, c)
		}
	}
	return out
}

// run executes one command and reports whether the REPL should continue.
func run(engine *db.DB, history *History, parts []string, seedIndex *int) bool {
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "put":
		if len(args) != 2 {
			fmt.Println("usage: put <key> <value>")
			return true
		}
		key, ok := parseKey(args[0])
		if !ok {
			return true
		}
		if err := engine.Put(key, []byte(args[1])); err != nil {
			fmt.Printf("put error: %v\n", err)
			return true
		}
		fmt.Println("ok")
	case "get":
		if len(args) != 1 {
			fmt.Println("usage: get <key>")
			return true
		}
		key, ok := parseKey(args[0])
		if !ok {
			return true
		}
		value, found, err := engine.Get(key)
		if err != nil {
			fmt.Printf("get error: %v\n", err)
			return true
		}
		if !found {
			fmt.Println("(not found)")
			return true
		}
		fmt.Printf("%s\n", value)
	case "del", "delete":
		if len(args) != 1 {
			fmt.Println("usage: del <key>")
			return true
		}
		key, ok := parseKey(args[0])
		if !ok {
			return true
		}
		deleted, err := engine.Delete(key)
		if err != nil {
			fmt.Printf("delete error: %v\n", err)
			return true
		}
		if !deleted {
			fmt.Println("(not found)")
			return true
		}
		fmt.Println("ok")
	case "scan":
		if len(args) != 2 {
			fmt.Println("usage: scan <low> <high>")
			return true
		}
		low, ok := parseKey(args[0])
		if !ok {
			return true
		}
		high, ok := parseKey(args[1])
		if !ok {
			return true
		}
		pairs, err := engine.Scan(low, high)
		if err != nil {
			fmt.Printf("scan error: %v\n", err)
			return true
		}
		for _, p := range pairs {
			fmt.Printf("%-20d %s\n", p.Key, p.Value)
		}
		fmt.Printf("(%d pairs)\n", len(pairs))
	case "gc":
		var chunk uint64
		if len(args) == 1 {
			n, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				fmt.Println("gc: chunk must be a non-negative integer")
				return true
			}
			chunk = n
		}
		stats, err := engine.GC(chunk)
		if err != nil {
			fmt.Printf("gc error: %v\n", err)
			return true
		}
		fmt.Printf("reclaimed %d bytes: %d records scanned, %d rehomed, tail now %d\n",
			stats.Reclaimed, stats.Records, stats.Rehomed, stats.Tail)
	case "flush":
		if err := engine.Flush(); err != nil {
			fmt.Printf("flush error: %v\n", err)
			return true
		}
		fmt.Println("ok")
	case "reset":
		if err := engine.Reset(); err != nil {
			fmt.Printf("reset error: %v\n", err)
			return true
		}
		*seedIndex = 0
		fmt.Println("ok")
	case "seed":
		if len(args) != 1 {
			fmt.Println("usage: seed <x>")
			return true
		}
		x, err := strconv.Atoi(args[0])
		if err != nil || x < 1 {
			fmt.Println("seed: x must be a positive integer")
			return true
		}
		runSeed(engine, x, seedIndex)
	case "dump":
		if len(args) != 1 {
			fmt.Println("usage: dump mem|<file>")
			return true
		}
		if args[0] == "mem" {
			dumpMemtable(engine)
		} else {
			dumpFile(args[0])
		}
	case "inspect":
		if len(args) != 1 {
			fmt.Println("usage: inspect <file>")
			return true
		}
		inspectFile(args[0])
	case "history":
		n := 0
		if len(args) == 1 {
			n, _ = strconv.Atoi(args[0])
		}
		for i, c := range history.list(n) {
			fmt.Printf("%4d  %s\n", i+1, c)
		}
	case "exit", "quit":
		return false
	default:
		fmt.Println("unknown command")
		fmt.Println(usage)
	}
	return true
}

func parseKey(s string) (uint64, bool) {
	key, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		fmt.Printf("invalid key %q: keys are unsigned 64-bit integers\n", s)
		return 0, false
	}
	return key, true
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lsmkv_history"
	}
	return filepath.Join(home, ".lsmkv_history")
}
