package release

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads a pre-built bundle from disk.
type FileSource struct {
	Path string
}

// Bundle implements Source.
func (s FileSource) Bundle(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return data, nil
}

// BytesSource serves a bundle already held in memory, such as one
// embedded into the binary.
type BytesSource []byte

// Bundle implements Source. The returned slice is a copy.
func (s BytesSource) Bundle(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), s...), nil
}
