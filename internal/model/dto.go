package model

// QueryRequest is the body of POST /api/v1/query. The last element of
// Messages is the active question. FileID scopes retrieval to one file when
// set. ConversationID, when set, selects the persisted transcript the
// completed turn is appended to.
type QueryRequest struct {
	Query          string        `json:"query" binding:"required"`
	FileID         string        `json:"file_id"`
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
}

// Source is one citation record derived from a retrieved chunk.
type Source struct {
	Text     string  `json:"text"`
	FileName string  `json:"filename"`
	Page     *int    `json:"page"`
	Row      *int    `json:"row"`
	Column   *string `json:"column"`
}

// ChatResponse is the body returned by POST /api/v1/query.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// UploadResponse is the body returned by POST /api/v1/upload.
type UploadResponse struct {
	FileID        string `json:"file_id"`
	FileName      string `json:"filename"`
	DocumentCount int    `json:"document_count"`
}

// ListFilesResponse is the body returned by GET /api/v1/files.
type ListFilesResponse struct {
	Files []File `json:"files"`
}
