package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrRunNotFound           = errors.New("run not found")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed          = errors.New("file upload to storage failed")
	ErrExtractionUnavailable = errors.New("document extraction unavailable")
	ErrInvalidRuleCatalog    = errors.New("rule catalog failed validation")
	ErrRunNotComplete        = errors.New("run has not completed yet")
)
