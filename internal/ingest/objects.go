package ingest

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/storage"
)

// ImportObjects downloads every .csv and .xlsx object under prefix into a
// temporary directory below workDir and imports them in key order.
func (im *Importer) ImportObjects(ctx context.Context, store storage.ObjectStorage, prefix, workDir string) (Result, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return Result{}, err
	}

	dir, err := os.MkdirTemp(workDir, "objects-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var paths []string
	for i, obj := range objects {
		ext := strings.ToLower(path.Ext(obj.Key))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		local := filepath.Join(dir, fmt.Sprintf("%04d_%s", i, path.Base(obj.Key)))
		if err := store.DownloadObject(ctx, obj.Key, local); err != nil {
			return Result{}, err
		}
		paths = append(paths, local)
	}

	res, err := im.ImportFiles(ctx, paths)
	res.Source = prefix
	return res, err
}
