package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/log"
)

// FileHandler serves the file registry endpoints.
type FileHandler struct {
	fileService service.FileService
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// ListFiles returns every uploaded file's registry row.
func (h *FileHandler) ListFiles(c *gin.Context) {
	resp, err := h.fileService.ListFiles()
	if err != nil {
		log.Error("ListFiles: query failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteFile removes a file's vectors, registry row and stored original.
// Unknown ids are a no-op success.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	fileID := c.Param("fileId")

	if err := h.fileService.DeleteFile(c.Request.Context(), fileID); err != nil {
		log.Error("DeleteFile: deletion failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

// Download returns a temporary URL for the original uploaded bytes.
func (h *FileHandler) Download(c *gin.Context) {
	fileID := c.Param("fileId")

	url, err := h.fileService.DownloadURL(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		log.Error("Download: presign failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate download url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}
