package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/ingest"
	"pdfchat/internal/transport/http/response"
	"pdfchat/internal/vectorindex"
)

const maxPDFSize = 10 << 20 // 10 MB

type DocumentsHandler struct {
	pipeline  *ingest.Pipeline
	index     vectorindex.Index
	ingestDir string
}

func NewDocumentsHandler(pipeline *ingest.Pipeline, index vectorindex.Index, ingestDir string) *DocumentsHandler {
	return &DocumentsHandler{pipeline: pipeline, index: index, ingestDir: ingestDir}
}

// Upload accepts a multipart form with "file" (PDF) and ingests it.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	source := filepath.Base(file.Filename)
	written, skipped, err := h.pipeline.IngestFile(c.Request.Context(), source, f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "ingest failed: "+err.Error())
		return
	}

	response.OK(c, gin.H{
		"source":         source,
		"chunks_written": written,
		"skipped":        skipped,
	})
}

// Ingest runs the directory pipeline and returns its report.
func (h *DocumentsHandler) Ingest(c *gin.Context) {
	var req struct {
		Dir string `json:"dir"`
	}
	_ = c.ShouldBindJSON(&req)
	dir := req.Dir
	if dir == "" {
		dir = h.ingestDir
	}

	report, err := h.pipeline.Run(c.Request.Context(), dir)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		return
	}
	response.OK(c, report)
}

func (h *DocumentsHandler) List(c *gin.Context) {
	docs, err := h.index.ListDocuments(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

// Delete removes a document and its chunks by source name.
func (h *DocumentsHandler) Delete(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "source is required")
		return
	}

	hash, err := h.index.ContentHash(c.Request.Context(), source)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}
	if hash == "" {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
		return
	}

	if err := h.index.DeleteDocument(c.Request.Context(), source); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_source": source})
}
