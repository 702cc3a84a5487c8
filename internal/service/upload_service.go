// Package service contains the application's business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"doc-qa-go/internal/ingest"
	"doc-qa-go/internal/model"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/events"
	"doc-qa-go/pkg/log"
)

// ErrFileTooLarge rejects uploads over the configured ceiling before any
// parsing work begins.
var ErrFileTooLarge = errors.New("file size exceeds the upload limit")

// VectorIndex is the slice of the embedding index the services consume.
type VectorIndex interface {
	Upsert(ctx context.Context, fileID string, docs []model.Document) error
	AwaitSearchable(ctx context.Context, fileID string, want int) error
	DeleteByFile(ctx context.Context, fileID string) error
}

// ObjectStore keeps the original uploaded bytes.
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) error
	Remove(ctx context.Context, objectName string) error
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// UploadService runs the ingestion pipeline for one uploaded file.
type UploadService interface {
	Upload(ctx context.Context, fileName string, content []byte) (*model.UploadResponse, error)
}

type uploadService struct {
	selector    *ingest.Selector
	index       VectorIndex
	fileRepo    repository.FileRepository
	objects     ObjectStore
	publisher   *events.Publisher
	maxFileSize int64
}

// NewUploadService wires the upload pipeline.
func NewUploadService(
	selector *ingest.Selector,
	index VectorIndex,
	fileRepo repository.FileRepository,
	objects ObjectStore,
	publisher *events.Publisher,
	maxFileSize int64,
) UploadService {
	return &uploadService{
		selector:    selector,
		index:       index,
		fileRepo:    fileRepo,
		objects:     objects,
		publisher:   publisher,
		maxFileSize: maxFileSize,
	}
}

// Upload parses, chunks, embeds and indexes the file, waits for the index to
// report the chunks searchable, stores the original bytes, and only then
// persists the registry row. Any failure rolls back previously written state
// so no partial upload survives.
func (s *uploadService) Upload(ctx context.Context, fileName string, content []byte) (*model.UploadResponse, error) {
	if int64(len(content)) > s.maxFileSize {
		return nil, fmt.Errorf("%w (%d bytes, limit %d)", ErrFileTooLarge, len(content), s.maxFileSize)
	}

	ingestor, err := s.selector.ForFile(fileName)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	log.Infof("processing upload %s (file_id=%s, %d bytes)", fileName, fileID, len(content))

	docs, err := ingestor.Ingest(ctx, content, fileID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s: %w", fileName, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents produced from %s", fileName)
	}

	if err := s.index.Upsert(ctx, fileID, docs); err != nil {
		s.rollbackVectors(fileID)
		return nil, fmt.Errorf("failed to store vectors for %s: %w", fileName, err)
	}

	if err := s.index.AwaitSearchable(ctx, fileID, len(docs)); err != nil {
		s.rollbackVectors(fileID)
		return nil, err
	}

	if err := s.objects.Put(ctx, objectName(fileID, fileName), content, contentTypeOf(fileName)); err != nil {
		s.rollbackVectors(fileID)
		return nil, fmt.Errorf("failed to store original file %s: %w", fileName, err)
	}

	record := &model.File{
		FileID:   fileID,
		FileName: fileName,
		FileType: strings.ToLower(filepath.Ext(fileName)),
		Size:     int64(len(content)),
	}
	if err := s.fileRepo.Create(record); err != nil {
		s.rollbackVectors(fileID)
		if removeErr := s.objects.Remove(context.Background(), objectName(fileID, fileName)); removeErr != nil {
			log.Warnf("failed to remove object of aborted upload %s: %v", fileID, removeErr)
		}
		return nil, fmt.Errorf("failed to create registry row for %s: %w", fileName, err)
	}

	s.publisher.Publish(ctx, events.Event{
		Type:          events.TypeDocumentIngested,
		FileID:        fileID,
		FileName:      fileName,
		DocumentCount: len(docs),
	})

	log.Infof("upload %s completed with %d documents", fileName, len(docs))
	return &model.UploadResponse{
		FileID:        fileID,
		FileName:      fileName,
		DocumentCount: len(docs),
	}, nil
}

// rollbackVectors removes whatever vectors an aborted upload already wrote.
// Uses a fresh context since the request context may already be canceled.
func (s *uploadService) rollbackVectors(fileID string) {
	if err := s.index.DeleteByFile(context.Background(), fileID); err != nil {
		log.Warnf("failed to roll back vectors of aborted upload %s: %v", fileID, err)
	}
}

func objectName(fileID, fileName string) string {
	return "originals/" + fileID + "/" + fileName
}

func contentTypeOf(fileName string) string {
	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
