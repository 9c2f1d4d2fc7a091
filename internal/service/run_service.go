package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/port"
)

// RunUpload is one uploaded PDF within a run submission.
type RunUpload struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// CreateRunInput is the DTO for run creation requests.
type CreateRunInput struct {
	ApplicationRef string
	Uploads        []RunUpload
}

// RunResults bundles a completed run with its per-document outcomes.
type RunResults struct {
	Run       *domain.Run
	Documents []domain.DocumentResult
}

// RunService defines the run management contract.
type RunService interface {
	CreateRun(ctx context.Context, input CreateRunInput) (*domain.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]domain.Run, int, error)
	ListDocuments(ctx context.Context, runID uuid.UUID) ([]domain.Document, error)
	GetResults(ctx context.Context, runID uuid.UUID) (*RunResults, error)
	GetDocumentDownloadURL(ctx context.Context, docID uuid.UUID) (string, error)
}

type runService struct {
	runRepo      port.RunRepository
	docRepo      port.DocumentRepository
	fieldRepo    port.ResolvedFieldRepository
	findingRepo  port.FindingRepository
	artifactRepo port.ArtifactRepository
	storage      port.ObjectStorage
	cfg          *config.S3Config
}

// NewRunService creates a new RunService implementation.
func NewRunService(
	runRepo port.RunRepository,
	docRepo port.DocumentRepository,
	fieldRepo port.ResolvedFieldRepository,
	findingRepo port.FindingRepository,
	artifactRepo port.ArtifactRepository,
	storage port.ObjectStorage,
	cfg *config.S3Config,
) RunService {
	return &runService{
		runRepo:      runRepo,
		docRepo:      docRepo,
		fieldRepo:    fieldRepo,
		findingRepo:  findingRepo,
		artifactRepo: artifactRepo,
		storage:      storage,
		cfg:          cfg,
	}
}

// CreateRun stores every uploaded PDF and enqueues one document per file.
// The queue worker picks them up asynchronously; the run starts in running
// state with zero progress.
func (s *runService) CreateRun(ctx context.Context, input CreateRunInput) (*domain.Run, error) {
	if len(input.Uploads) == 0 {
		return nil, fmt.Errorf("%w: a run needs at least one document", domain.ErrUnsupportedFileType)
	}
	for _, u := range input.Uploads {
		if err := s.validateUpload(u); err != nil {
			return nil, err
		}
	}

	run := &domain.Run{
		ID:             uuid.New(),
		ApplicationRef: input.ApplicationRef,
		State:          domain.RunStateRunning,
		TotalDocuments: len(input.Uploads),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	log.Printf("runService.CreateRun: run %s created with %d documents (ref %q)",
		run.ID, len(input.Uploads), input.ApplicationRef)

	for _, u := range input.Uploads {
		docID := uuid.New()
		s3Key := fmt.Sprintf("runs/%s/documents/%s/%s", run.ID, docID, u.Header.Filename)

		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.cfg.Bucket,
			Key:         s3Key,
			Body:        u.File,
			ContentType: "application/pdf",
			Size:        u.Header.Size,
		})
		if err != nil {
			log.Printf("runService.CreateRun: S3 upload failed for %s: %v", u.Header.Filename, err)
			return nil, domain.ErrUploadFailed
		}

		doc := &domain.Document{
			ID:           docID,
			RunID:        run.ID,
			FileName:     u.Header.Filename,
			ContentType:  "application/pdf",
			FileSize:     u.Header.Size,
			S3Bucket:     s.cfg.Bucket,
			S3Key:        s3Key,
			DocumentType: domain.DocTypeUnknown,
			Status:       domain.ProcessingStatusQueued,
		}
		if err := s.docRepo.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("creating document %s: %w", u.Header.Filename, err)
		}
	}

	return run, nil
}

// validateUpload checks the extension, size limit, and magic bytes of one
// uploaded file, and rewinds it for the subsequent S3 upload.
func (s *runService) validateUpload(u RunUpload) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Header.Filename), "."))
	if ext != string(domain.FileTypePDF) {
		return domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if u.Header.Size > maxBytes {
		return domain.ErrFileTooLarge
	}

	buf := make([]byte, 512)
	n, err := u.File.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading file header: %w", err)
	}
	if _, ok := domain.AllowedContentTypes[http.DetectContentType(buf[:n])]; !ok {
		return domain.ErrUnsupportedFileType
	}

	if _, err := u.File.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking file: %w", err)
	}
	return nil
}

func (s *runService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	return s.runRepo.GetByID(ctx, runID)
}

func (s *runService) ListRuns(ctx context.Context, offset, limit int) ([]domain.Run, int, error) {
	return s.runRepo.List(ctx, offset, limit)
}

func (s *runService) ListDocuments(ctx context.Context, runID uuid.UUID) ([]domain.Document, error) {
	if _, err := s.runRepo.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.docRepo.ListByRun(ctx, runID)
}

// GetResults returns per-document fields, findings, and artifacts for a
// finished run. A still-running run is not reportable yet.
func (s *runService) GetResults(ctx context.Context, runID uuid.UUID) (*RunResults, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.State == domain.RunStateRunning {
		return nil, domain.ErrRunNotComplete
	}

	docs, err := s.docRepo.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	results := &RunResults{Run: run}
	for i := range docs {
		doc := docs[i]
		fields, err := s.fieldRepo.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		findings, err := s.findingRepo.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		artifacts, err := s.artifactRepo.ListByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		results.Documents = append(results.Documents, domain.DocumentResult{
			Document:  &doc,
			Fields:    fields,
			Findings:  findings,
			Artifacts: artifacts,
		})
	}
	return results, nil
}

func (s *runService) GetDocumentDownloadURL(ctx context.Context, docID uuid.UUID) (string, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, doc.S3Bucket, doc.S3Key, s.cfg.PresignExpiry)
}
