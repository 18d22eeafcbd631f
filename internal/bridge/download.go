package bridge

import (
	"fmt"
	"os"
	"path/filepath"
)

// Downloader hands an export to the user.
type Downloader interface {
	Deliver(d Download) error
}

// FuncDownloader adapts a function to Downloader.
type FuncDownloader func(Download) error

// Deliver implements Downloader.
func (f FuncDownloader) Deliver(d Download) error { return f(d) }

// DirDownloader writes exports into a directory.
type DirDownloader struct {
	Dir string
}

// Deliver implements Downloader. The directory is created if needed.
func (d DirDownloader) Deliver(dl Download) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(dl.Name))
	if err := os.WriteFile(path, []byte(dl.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
