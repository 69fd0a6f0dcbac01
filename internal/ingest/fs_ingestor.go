package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
)

// CheckFile validates a file name and size against the analysis service
// limits. It returns the normalized extension.
func CheckFile(name string, size int64) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if ext == "" || !constants.IsAllowedExt(ext) {
		return ext, fmt.Errorf("%w: %q", common.ErrUnsupportedFile, filepath.Ext(name))
	}
	if limit := constants.MaxSizeFor(ext); size > limit {
		return ext, fmt.Errorf("%w: %s is %d bytes, limit %d", common.ErrFileTooLarge, filepath.Base(name), size, limit)
	}
	return ext, nil
}

// Load reads path after checking existence, extension and size.
func Load(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, path)
	}
	ext, err := CheckFile(abs, info.Size())
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)

	return &File{
		Path:    abs,
		Name:    filepath.Base(abs),
		Ext:     ext,
		Size:    int64(len(data)),
		HashHex: hex.EncodeToString(sum[:]),
		ModTime: info.ModTime(),
		Data:    data,
	}, nil
}
