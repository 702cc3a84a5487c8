package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"doc-qa-go/internal/model"
	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/log"
)

// QueryHandler serves the question-answering endpoints.
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Query answers a natural-language question over the indexed documents.
func (h *QueryHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	resp, err := h.queryService.Query(c.Request.Context(), req)
	if err != nil {
		log.Error("Query: pipeline failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTranscript returns the persisted transcript of a conversation.
func (h *QueryHandler) GetTranscript(c *gin.Context) {
	conversationID := c.Param("id")

	messages, err := h.queryService.GetTranscript(c.Request.Context(), conversationID)
	if err != nil {
		log.Error("GetTranscript: lookup failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "messages": messages})
}
