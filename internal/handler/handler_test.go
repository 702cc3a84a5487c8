package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-go/internal/ingest"
	"doc-qa-go/internal/model"
	"doc-qa-go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUploadService struct {
	resp *model.UploadResponse
	err  error
}

func (s *stubUploadService) Upload(ctx context.Context, fileName string, content []byte) (*model.UploadResponse, error) {
	return s.resp, s.err
}

type stubQueryService struct {
	resp       *model.ChatResponse
	transcript []model.ChatMessage
	err        error
}

func (s *stubQueryService) Query(ctx context.Context, req model.QueryRequest) (*model.ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubQueryService) GetTranscript(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	return s.transcript, s.err
}

type stubFileService struct {
	files       *model.ListFilesResponse
	downloadURL string
	err         error
}

func (s *stubFileService) ListFiles() (*model.ListFilesResponse, error) {
	return s.files, s.err
}

func (s *stubFileService) DeleteFile(ctx context.Context, fileID string) error {
	return s.err
}

func (s *stubFileService) DownloadURL(ctx context.Context, fileID string) (string, error) {
	return s.downloadURL, s.err
}

func newRouter(upload service.UploadService, query service.QueryService, files service.FileService) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1")
	if upload != nil {
		api.POST("/upload", NewUploadHandler(upload).Upload)
	}
	if query != nil {
		api.POST("/query", NewQueryHandler(query).Query)
		api.GET("/conversations/:id", NewQueryHandler(query).GetTranscript)
	}
	if files != nil {
		api.GET("/files", NewFileHandler(files).ListFiles)
		api.DELETE("/files/:fileId", NewFileHandler(files).DeleteFile)
		api.GET("/files/:fileId/download", NewFileHandler(files).Download)
	}
	return r
}

func multipartUpload(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadEndpointSuccess(t *testing.T) {
	svc := &stubUploadService{resp: &model.UploadResponse{FileID: "f1", FileName: "a.pdf", DocumentCount: 4}}
	r := newRouter(svc, nil, nil)

	body, contentType := multipartUpload(t, "a.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "f1", resp.FileID)
	assert.Equal(t, 4, resp.DocumentCount)
}

func TestUploadEndpointMissingFile(t *testing.T) {
	r := newRouter(&stubUploadService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadEndpointStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"oversize", fmt.Errorf("wrap: %w", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"unsupported", fmt.Errorf("wrap: %w", ingest.ErrUnsupportedFileType), http.StatusBadRequest},
		{"pipeline", errors.New("tika down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&stubUploadService{err: tt.err}, nil, nil)

			body, contentType := multipartUpload(t, "a.pdf", []byte("%PDF"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestQueryEndpointSuccess(t *testing.T) {
	svc := &stubQueryService{resp: &model.ChatResponse{
		Answer:  "42",
		Sources: []model.Source{{Text: "the answer is 42", FileName: "guide.pdf"}},
	}}
	r := newRouter(nil, svc, nil)

	payload := `{"query":"what is the answer?","conversation_id":"c1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "guide.pdf", resp.Sources[0].FileName)
}

func TestQueryEndpointRejectsMissingQuery(t *testing.T) {
	r := newRouter(nil, &stubQueryService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewBufferString(`{"file_id":"f1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptEndpoint(t *testing.T) {
	svc := &stubQueryService{transcript: []model.ChatMessage{{Role: "user", Content: "hi"}}}
	r := newRouter(nil, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/c7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conversation_id":"c7"`)
	assert.Contains(t, w.Body.String(), `"hi"`)
}

func TestListFilesEndpoint(t *testing.T) {
	svc := &stubFileService{files: &model.ListFilesResponse{Files: []model.File{{FileID: "f1", FileName: "a.pdf"}}}}
	r := newRouter(nil, nil, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a.pdf"`)
}

func TestDeleteFileEndpoint(t *testing.T) {
	r := newRouter(nil, nil, &stubFileService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/files/f1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDownloadEndpointNotFound(t *testing.T) {
	r := newRouter(nil, nil, &stubFileService{err: service.ErrFileNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/ghost/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadEndpointSuccess(t *testing.T) {
	r := newRouter(nil, nil, &stubFileService{downloadURL: "https://store.example/originals/f1/a.pdf"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/f1/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "download_url")
}
