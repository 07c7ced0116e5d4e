package drive

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/ingest"
)

// IngestService imports sales files stored on Google Drive.
type IngestService struct {
	source     Source
	downloader *Downloader
	importer   *ingest.Importer
	workDir    string
}

func NewIngestService(source Source, importer *ingest.Importer, workDir string) *IngestService {
	return &IngestService{
		source:     source,
		downloader: NewDownloader(source),
		importer:   importer,
		workDir:    workDir,
	}
}

// IngestFile downloads one Drive file and imports its sales rows.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (ingest.Result, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return ingest.Result{}, err
	}
	if !IsSalesFile(f.Name) {
		return ingest.Result{}, fmt.Errorf("%s is not a CSV or XLSX file", f.Name)
	}

	dir, err := os.MkdirTemp(s.workDir, "drive-")
	if err != nil {
		return ingest.Result{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path, err := s.downloader.Download(ctx, f, dir)
	if err != nil {
		return ingest.Result{}, err
	}
	return s.importer.ImportFile(ctx, path)
}

// IngestFolder imports every sales file of a Drive folder.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) (ingest.Result, error) {
	dir, err := os.MkdirTemp(s.workDir, "drive-")
	if err != nil {
		return ingest.Result{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	paths, err := s.downloader.DownloadFolder(ctx, DownloadOptions{FolderID: folderID, DownloadDir: dir})
	if err != nil {
		return ingest.Result{}, err
	}
	return s.importer.ImportFiles(ctx, paths)
}
