package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planproof/internal/csvexport"
	"planproof/internal/report"
	"planproof/internal/service"
)

// RunHandler handles run submission, status, and result endpoints.
type RunHandler struct {
	runService service.RunService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// Create handles POST /api/v1/runs
// Accepts a multipart form with one or more "documents" PDF files and an
// optional "application_ref" field. Processing is asynchronous; the returned
// run starts in running state.
func (h *RunHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "multipart form is required")
		return
	}

	files := form.File["documents"]
	if len(files) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_DOCUMENTS", "at least one documents file is required")
		return
	}

	input := service.CreateRunInput{
		ApplicationRef: c.PostForm("application_ref"),
	}
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file "+header.Filename)
			return
		}
		defer func() { _ = f.Close() }()
		input.Uploads = append(input.Uploads, service.RunUpload{File: f, Header: header})
	}

	run, err := h.runService.CreateRun(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, run)
}

// List handles GET /api/v1/runs
func (h *RunHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := h.runService.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}

	run, err := h.runService.GetRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	docs, err := h.runService.ListDocuments(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"run":       run,
		"documents": docs,
	})
}

// GetResults handles GET /api/v1/runs/:id/results
// Only complete runs are reportable; a running run yields 409.
func (h *RunHandler) GetResults(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}

	results, err := h.runService.GetResults(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, results)
}

// ExportCSV handles GET /api/v1/runs/:id/export/csv
func (h *RunHandler) ExportCSV(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}

	results, err := h.runService.GetResults(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename(results.Run.ApplicationRef, "csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteResults(results.Documents); err != nil {
		return
	}
	w.Flush()
}

// ExportExcel handles GET /api/v1/runs/:id/export/xlsx
func (h *RunHandler) ExportExcel(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return
	}

	results, err := h.runService.GetResults(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, results.Run, results.Documents); err != nil {
		RespondError(c, http.StatusInternalServerError, "EXPORT_FAILED", "workbook generation failed")
		return
	}

	filename := csvexport.BuildFilename(results.Run.ApplicationRef, "xlsx")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetDocumentDownloadURL handles GET /api/v1/documents/:id/download
func (h *RunHandler) GetDocumentDownloadURL(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	url, err := h.runService.GetDocumentDownloadURL(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"download_url": url})
}
