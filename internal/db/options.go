package db

import (
	"lsmkv/internal/manifest"
	"lsmkv/internal/memtable"
)

type Options struct {
	// Dir holds the level directories and, by default, the value log.
	Dir string

	// ValueLogPath overrides the value log location. Empty means
	// <Dir>/vlog.
	ValueLogPath string

	MemtableMaxBytes int
	Level0Capacity   int
	MaxTableKeys     int

	// GCChunkSize is the number of value-log bytes GC reclaims when
	// called with a zero chunk size.
	GCChunkSize uint64
}

var DefaultOptions = Options{
	Dir:              "data",
	MemtableMaxBytes: memtable.DefaultMaxBytes,
	Level0Capacity:   manifest.DefaultOptions.Level0Capacity,
	MaxTableKeys:     manifest.DefaultOptions.MaxTableKeys,
	GCChunkSize:      64 * 1024,
}

type Option func(*Options)

func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

func WithValueLogPath(path string) Option {
	return func(o *Options) {
		o.ValueLogPath = path
	}
}

func WithMemtableMaxBytes(n int) Option {
	return func(o *Options) {
		o.MemtableMaxBytes = n
	}
}

func WithLevel0Capacity(n int) Option {
	return func(o *Options) {
		o.Level0Capacity = n
	}
}

func WithMaxTableKeys(n int) Option {
	return func(o *Options) {
		o.MaxTableKeys = n
	}
}

func WithGCChunkSize(n uint64) Option {
	return func(o *Options) {
		o.GCChunkSize = n
	}
}
