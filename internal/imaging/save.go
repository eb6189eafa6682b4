package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// maxSaveAttempts bounds the " (n)" suffix search in SaveBlob.
const maxSaveAttempts = 1000

// SaveBlob writes b into dir under a name derived from name and the blob
// type (see media.SuggestName). Existing files are never overwritten; a
// " (1)", " (2)", ... suffix is added instead. It returns the written path.
func SaveBlob(dir string, b *media.Blob, name string) (string, error) {
	if b == nil {
		return "", errors.New("failed to save blob: nil blob")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Base(media.SuggestName(b, name))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < maxSaveAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(b.Data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
	return "", errors.Errorf("failed to save blob: no free name for %s in %s", base, dir)
}
