package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// History persists the REPL's line-editing history between sessions.
type History struct {
	line *liner.State
	file string
}

func newHistory(line *liner.State, file string) (*History, error) {
	h := &History{line: line, file: file}

	f, err := os.Open(file)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return h, err
	}
	defer f.Close()

	if _, err := line.ReadHistory(f); err != nil {
		return h, err
	}
	return h, nil
}

// add records cmd. Repeats of the last command are dropped by liner.
func (h *History) add(cmd string) {
	h.line.AppendHistory(strings.TrimSpace(cmd))
}

func (h *History) save() error {
	f, err := os.Create(h.file)
	if err != nil {
		return err
	}
	if _, err := h.line.WriteHistory(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// list returns the last n commands, or all of them when n <= 0.
func (h *History) list(n int) []string {
	var buf bytes.Buffer
	if _, err := h.line.WriteHistory(&buf); err != nil {
		return nil
	}
	commands := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(commands) == 1 && commands[0] == "" {
		return nil
	}

	if n <= 0 || n > len(commands) {
		n = len(commands)
	}
	return commands[len(commands)-n:]
}
