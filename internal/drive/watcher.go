package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls sales files out of a Drive folder.
type Downloader struct {
	source Source
}

func NewDownloader(s Source) *Downloader {
	return &Downloader{source: s}
}

// IsSalesFile reports whether name looks like an importable sales file.
func IsSalesFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}

// DownloadFolder downloads every CSV and XLSX file of the folder into
// DownloadDir and returns the local paths in listing order.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !IsSalesFile(f.Name) {
			continue
		}

		localPath, err := d.Download(ctx, f, opts.DownloadDir)
		if err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	log.Info().Str("folder_id", opts.FolderID).Int("files", len(localPaths)).Msg("drive folder downloaded")
	return localPaths, nil
}

// Download writes one file into dir and returns its local path.
func (d *Downloader) Download(ctx context.Context, f *File, dir string) (string, error) {
	localPath := filepath.Join(dir, filepath.Base(f.Name))
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.source.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return localPath, nil
}
