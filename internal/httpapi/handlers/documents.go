package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/acelabs/aceai/internal/chunker"
	"github.com/acelabs/aceai/internal/common"
	"github.com/acelabs/aceai/internal/extract"
	"github.com/acelabs/aceai/internal/index"
)

const displayContentLimit = 200

type ingestReq struct {
	Text   string `json:"text" binding:"required"`
	Source string `json:"source"`
}

// IngestText stores one raw text as a single chunk.
func (h *Handler) IngestText(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		common.Fail(c, http.StatusBadRequest, 10020, "text cannot be empty")
		return
	}
	source := req.Source
	if source == "" {
		source = "manual_input"
	}

	meta := index.Metadata{
		Source:     source,
		UploadTime: time.Now().UTC(),
	}
	if err := h.Index.Add(c.Request.Context(), []string{req.Text}, []index.Metadata{meta}, nil); err != nil {
		log.Printf("[IngestText] failed source=%s err=%v", source, err)
		if errors.Is(err, index.ErrEmbedding) {
			common.Fail(c, http.StatusBadGateway, 50201, "embedding backend unavailable")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to ingest text")
		return
	}
	common.OK(c, gin.H{"status": "success"})
}

// UploadDocument accepts one file, extracts its text, splits it into
// chunks and indexes the batch under a fresh batch id.
func (h *Handler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10021, "file is required")
		return
	}
	if file.Size > h.Cfg.MaxUploadBytes {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10022,
			fmt.Sprintf("file exceeds %d bytes", h.Cfg.MaxUploadBytes))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !extract.IsAllowedExtension(ext) {
		common.Fail(c, http.StatusBadRequest, 10023,
			"unsupported file type, allowed: "+strings.Join(extract.AllowedExtensions, ", "))
		return
	}

	f, err := file.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to read upload")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, h.Cfg.MaxUploadBytes+1))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to read upload")
		return
	}
	if int64(len(content)) > h.Cfg.MaxUploadBytes {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10022,
			fmt.Sprintf("file exceeds %d bytes", h.Cfg.MaxUploadBytes))
		return
	}

	text, err := extract.Extract(content, ext)
	if err != nil {
		log.Printf("[UploadDocument] extract failed name=%s err=%v", file.Filename, err)
		common.Fail(c, http.StatusBadRequest, 10024, "failed to parse file: "+err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		common.Fail(c, http.StatusBadRequest, 10025, "file content is empty")
		return
	}

	chunks := chunker.Split(text, h.Cfg.ChunkSize, h.Cfg.ChunkOverlap)
	if len(chunks) == 0 {
		common.Fail(c, http.StatusBadRequest, 10025, "file content is empty")
		return
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	ids := make([]string, len(chunks))
	metas := make([]index.Metadata, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s_chunk_%d", batchID, i)
		metas[i] = index.Metadata{
			Source:      file.Filename,
			UploadTime:  now,
			FileType:    ext,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			BatchID:     batchID,
		}
	}

	if err := h.Index.Add(c.Request.Context(), chunks, metas, ids); err != nil {
		log.Printf("[UploadDocument] index failed name=%s batch_id=%s err=%v", file.Filename, batchID, err)
		if errors.Is(err, index.ErrEmbedding) {
			common.Fail(c, http.StatusBadGateway, 50201, "embedding backend unavailable")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to store document")
		return
	}

	common.OK(c, gin.H{
		"filename":       file.Filename,
		"chunks_created": len(chunks),
		"batch_id":       batchID,
	})
}

type documentView struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata index.Metadata `json:"metadata"`
}

func truncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= displayContentLimit {
		return s
	}
	return string(runes[:displayContentLimit]) + "..."
}

func (h *Handler) ListDocuments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	chunks, total, err := h.Index.ListPaginated(c.Request.Context(), limit, offset)
	if err != nil {
		log.Printf("[ListDocuments] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list documents")
		return
	}

	docs := make([]documentView, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, documentView{
			ID:       ch.ID,
			Content:  truncateContent(ch.Text),
			Metadata: ch.Metadata(),
		})
	}
	common.OK(c, gin.H{"total": total, "documents": docs})
}

func (h *Handler) GetDocument(c *gin.Context) {
	chunk, err := h.Index.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40410, "document not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to get document")
		return
	}
	common.OK(c, documentView{ID: chunk.ID, Content: chunk.Text, Metadata: chunk.Metadata()})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.Index.DeleteByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("[DeleteDocument] failed id=%s err=%v", id, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to delete document")
		return
	}
	if !deleted {
		common.Fail(c, http.StatusNotFound, 40410, "document not found")
		return
	}
	common.OK(c, gin.H{"status": "success"})
}

// DeleteDocumentsBySource removes every chunk of one upload, keyed by the
// shared source value. Super admin only.
func (h *Handler) DeleteDocumentsBySource(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		common.Fail(c, http.StatusBadRequest, 10026, "source is required")
		return
	}

	filter := map[string]any{"source": source}
	count, err := h.Index.CountByFilter(c.Request.Context(), filter)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to count documents")
		return
	}
	if count == 0 {
		common.Fail(c, http.StatusNotFound, 40411, "no documents found for source "+source)
		return
	}

	deleted, err := h.Index.DeleteByFilter(c.Request.Context(), filter)
	if err != nil {
		log.Printf("[DeleteDocumentsBySource] failed source=%s err=%v", source, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to delete documents")
		return
	}
	common.OK(c, gin.H{"source": source, "deleted_count": deleted})
}

// ResetIndex irreversibly clears the knowledge base. Super admin only.
func (h *Handler) ResetIndex(c *gin.Context) {
	if err := h.Index.Reset(c.Request.Context()); err != nil {
		log.Printf("[ResetIndex] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to reset index")
		return
	}
	common.OK(c, gin.H{"status": "success"})
}
