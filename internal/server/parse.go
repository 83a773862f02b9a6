package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vapl/orderdocs/internal/common"
	"github.com/vapl/orderdocs/internal/pipeline"
	"github.com/vapl/orderdocs/internal/schema"
	"github.com/vapl/orderdocs/internal/store"
)

// ParseHandler exposes the extraction pipeline over HTTP. Authentication,
// tenancy and permission checks belong to the gateway in front of this
// service.
type ParseHandler struct {
	processor *pipeline.Processor
	blobs     store.BlobStore
	logger    *slog.Logger
}

func NewParseHandler(proc *pipeline.Processor, blobs store.BlobStore, logger *slog.Logger) *ParseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseHandler{processor: proc, blobs: blobs, logger: logger}
}

// Register mounts the parse routes on the engine.
func (h *ParseHandler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/parse", h.ParseUpload)
	v1.POST("/attachments/parse", h.ParseAttachment)
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
}

// ParseUpload handles a multipart request: "file" holds the document,
// "columns" holds the column schema JSON.
func (h *ParseHandler) ParseUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	columnsJSON := c.PostForm("columns")
	if columnsJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "columns is required"})
		return
	}
	var cols []schema.Column
	if err := json.Unmarshal([]byte(columnsJSON), &cols); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "columns: " + err.Error()})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open upload: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload: " + err.Error()})
		return
	}

	h.run(c, pipeline.ParseRequest{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
		Columns:  cols,
	})
}

type attachmentParseRequest struct {
	AttachmentPath string          `json:"attachment_path" binding:"required"`
	FileName       string          `json:"file_name"`
	MimeType       string          `json:"mime_type"`
	Columns        []schema.Column `json:"columns" binding:"required"`
}

// ParseAttachment resolves an already-stored attachment through the blob
// store and parses it.
func (h *ParseHandler) ParseAttachment(c *gin.Context) {
	var req attachmentParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := h.blobs.Get(req.AttachmentPath)
	if err != nil {
		h.logger.Warn("server.attachment_unresolved", "path", req.AttachmentPath, "error", err)
		c.JSON(common.StatusHint(err), gin.H{"error": err.Error()})
		return
	}
	name := req.FileName
	if name == "" {
		name = req.AttachmentPath
	}
	h.run(c, pipeline.ParseRequest{
		FileName: name,
		MimeType: req.MimeType,
		Data:     data,
		Columns:  req.Columns,
	})
}

func (h *ParseHandler) run(c *gin.Context, req pipeline.ParseRequest) {
	reqID := uuid.New().String()
	ctx := common.WithRequestID(c.Request.Context(), reqID)

	res, err := h.processor.Parse(ctx, req)
	if err != nil {
		status := common.StatusHint(err)
		h.logger.Error("server.parse_failed", "req_id", reqID, "file", req.FileName, "status", status, "error", err)
		c.JSON(status, gin.H{"error": err.Error(), "request_id": reqID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id":              reqID,
		"rows":                    res.Rows,
		"mapping":                 res.Mapping,
		"detected_rows":           res.DetectedRows,
		"parser_model":            res.ParserModel,
		"parser_raw_text_preview": res.RawTextPreview,
	})
}
