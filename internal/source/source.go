// Package source reads the text to classify from files, standard input,
// web articles or RSS/Atom feeds.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// maxInputBytes caps text read from files and stdin.
const maxInputBytes = 1 << 20

// FromFile reads the whole file at path as input text.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// FromReader reads r up to the input size limit.
func FromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	return string(data), nil
}

// Join combines command-line words into one input text.
func Join(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
