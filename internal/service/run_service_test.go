package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/port"
	"planproof/mocks"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func upload(name string, content []byte) RunUpload {
	return RunUpload{
		File:   memFile{bytes.NewReader(content)},
		Header: &multipart.FileHeader{Filename: name, Size: int64(len(content))},
	}
}

func pdfBytes() []byte {
	return []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
}

func s3TestConfig() *config.S3Config {
	return &config.S3Config{
		Bucket:        "planproof-test",
		MaxFileSizeMB: 1,
		PresignExpiry: 900,
	}
}

func newTestRunService() (RunService, *mocks.MockRunRepo, *mocks.MockDocumentRepo, *mocks.MockObjectStorage) {
	runRepo := new(mocks.MockRunRepo)
	docRepo := new(mocks.MockDocumentRepo)
	storage := new(mocks.MockObjectStorage)
	svc := NewRunService(
		runRepo, docRepo,
		new(mocks.MockResolvedFieldRepo),
		new(mocks.MockFindingRepo),
		new(mocks.MockArtifactRepo),
		storage, s3TestConfig(),
	)
	return svc, runRepo, docRepo, storage
}

func TestCreateRunRejectsNonPDFExtension(t *testing.T) {
	svc, runRepo, _, _ := newTestRunService()

	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		ApplicationRef: "PP-14469287",
		Uploads:        []RunUpload{upload("site_plan.docx", pdfBytes())},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRunRejectsOversizedFile(t *testing.T) {
	svc, runRepo, _, _ := newTestRunService()

	big := upload("application_form.pdf", pdfBytes())
	big.Header.Size = 2 * 1024 * 1024 // limit is 1 MB

	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		Uploads: []RunUpload{big},
	})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRunRejectsWrongMagicBytes(t *testing.T) {
	svc, _, _, _ := newTestRunService()

	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		Uploads: []RunUpload{upload("renamed.pdf", []byte("not actually a pdf"))},
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestCreateRunRejectsEmptySubmission(t *testing.T) {
	svc, _, _, _ := newTestRunService()

	_, err := svc.CreateRun(context.Background(), CreateRunInput{ApplicationRef: "PP-1"})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestCreateRunQueuesDocuments(t *testing.T) {
	svc, runRepo, docRepo, storage := newTestRunService()

	var createdRun *domain.Run
	runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Run")).
		Run(func(args mock.Arguments) { createdRun = args.Get(1).(*domain.Run) }).
		Return(nil)
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{}, nil)

	var createdDocs []*domain.Document
	docRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Document")).
		Run(func(args mock.Arguments) { createdDocs = append(createdDocs, args.Get(1).(*domain.Document)) }).
		Return(nil)

	run, err := svc.CreateRun(context.Background(), CreateRunInput{
		ApplicationRef: "PP-14469287",
		Uploads: []RunUpload{
			upload("application_form.pdf", pdfBytes()),
			upload("site_plan.pdf", pdfBytes()),
		},
	})

	require.NoError(t, err)
	require.NotNil(t, createdRun)
	assert.Equal(t, domain.RunStateRunning, createdRun.State)
	assert.Equal(t, 2, createdRun.TotalDocuments)
	assert.Equal(t, "PP-14469287", createdRun.ApplicationRef)

	require.Len(t, createdDocs, 2)
	for _, doc := range createdDocs {
		assert.Equal(t, run.ID, doc.RunID)
		assert.Equal(t, domain.ProcessingStatusQueued, doc.Status)
		assert.Equal(t, domain.DocTypeUnknown, doc.DocumentType)
		assert.Equal(t, "planproof-test", doc.S3Bucket)
		assert.Contains(t, doc.S3Key, "runs/"+run.ID.String()+"/documents/")
	}
	storage.AssertNumberOfCalls(t, "Upload", 2)
}

func TestCreateRunUploadFailure(t *testing.T) {
	svc, runRepo, docRepo, storage := newTestRunService()

	runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		Uploads: []RunUpload{upload("application_form.pdf", pdfBytes())},
	})

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetResultsRequiresFinishedRun(t *testing.T) {
	svc, runRepo, _, _ := newTestRunService()

	runID := uuid.New()
	runRepo.On("GetByID", mock.Anything, runID).
		Return(&domain.Run{ID: runID, State: domain.RunStateRunning}, nil)

	_, err := svc.GetResults(context.Background(), runID)

	assert.ErrorIs(t, err, domain.ErrRunNotComplete)
}

func TestGetDocumentDownloadURL(t *testing.T) {
	svc, _, docRepo, storage := newTestRunService()

	docID := uuid.New()
	docRepo.On("GetByID", mock.Anything, docID).Return(&domain.Document{
		ID:       docID,
		S3Bucket: "planproof-test",
		S3Key:    "runs/r/documents/d/form.pdf",
	}, nil)
	storage.On("GetPresignedURL", mock.Anything, "planproof-test", "runs/r/documents/d/form.pdf", int64(900)).
		Return("https://example.test/presigned", nil)

	url, err := svc.GetDocumentDownloadURL(context.Background(), docID)

	require.NoError(t, err)
	assert.Equal(t, "https://example.test/presigned", url)
}
