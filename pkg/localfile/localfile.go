// Package localfile holds the no-overwrite write and OS-open helpers shared
// by the CLI and the MCP tool surface.
package localfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
)

var (
	// ErrAlreadyExists reports a write target that is already present.
	ErrAlreadyExists = errors.New("file already exists")
	// ErrNotFound reports an expected local file that is absent.
	ErrNotFound = errors.New("file not found")
)

// openFile and openURL are swapped out in tests.
var (
	openFile = browser.OpenFile
	openURL  = browser.OpenURL
)

// WriteNew writes data to path, creating parent directories as needed. It
// never overwrites: an existing path fails with ErrAlreadyExists. The check
// and the write are not atomic; concurrent writers to the same path race.
func WriteNew(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// Resolve returns the absolute form of path, failing with ErrNotFound when
// nothing exists there.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error resolving %s: %w", path, err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
	} else if err != nil {
		return "", fmt.Errorf("error checking %s: %w", abs, err)
	}
	return abs, nil
}

// Open hands an existing file to the OS default handler.
func Open(path string) error {
	abs, err := Resolve(path)
	if err != nil {
		return err
	}
	return openFile(abs)
}

// OpenURL opens rawurl in the default browser.
func OpenURL(rawurl string) error {
	return openURL(rawurl)
}
