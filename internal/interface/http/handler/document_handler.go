package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/storage"
)

type DocumentHandler struct {
	storage *storage.DocumentStorage
}

func NewDocumentHandler(storage *storage.DocumentStorage) *DocumentHandler {
	return &DocumentHandler{storage: storage}
}

// UploadDocument обслуживает POST /api/documents (multipart, поле file).
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "файл обязателен")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	stored, err := h.storage.Save(c.Request.Context(), actor.ID, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"document_ref": stored.Ref,
		"checksum":     stored.Checksum,
		"size":         stored.Size,
		"mime":         stored.MIME,
	})
}
