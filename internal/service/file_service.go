package service

import (
	"context"
	"errors"
	"time"

	"doc-qa-go/internal/model"
	"doc-qa-go/internal/repository"
	"doc-qa-go/pkg/events"
	"doc-qa-go/pkg/log"
)

// ErrFileNotFound marks lookups of unknown file ids.
var ErrFileNotFound = errors.New("file not found")

// FileService manages registry rows and file deletion.
type FileService interface {
	ListFiles() (*model.ListFilesResponse, error)
	DeleteFile(ctx context.Context, fileID string) error
	DownloadURL(ctx context.Context, fileID string) (string, error)
}

type fileService struct {
	fileRepo  repository.FileRepository
	index     VectorIndex
	objects   ObjectStore
	publisher *events.Publisher
}

// NewFileService wires file listing and deletion.
func NewFileService(fileRepo repository.FileRepository, index VectorIndex, objects ObjectStore, publisher *events.Publisher) FileService {
	return &fileService{
		fileRepo:  fileRepo,
		index:     index,
		objects:   objects,
		publisher: publisher,
	}
}

// ListFiles returns every registry row.
func (s *fileService) ListFiles() (*model.ListFilesResponse, error) {
	files, err := s.fileRepo.FindAll()
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []model.File{}
	}
	return &model.ListFilesResponse{Files: files}, nil
}

// DeleteFile removes every vector with the file's id prefix, then the
// registry row, then the stored original. Deleting an unknown id is a no-op.
func (s *fileService) DeleteFile(ctx context.Context, fileID string) error {
	record, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByFile(ctx, fileID); err != nil {
		return err
	}

	if err := s.fileRepo.DeleteByID(fileID); err != nil {
		return err
	}

	if record != nil {
		if err := s.objects.Remove(ctx, objectName(fileID, record.FileName)); err != nil {
			// The vectors and registry row are gone; an orphaned object is
			// harmless and logged rather than failing the delete.
			log.Warnf("failed to remove stored object of file %s: %v", fileID, err)
		}
		s.publisher.Publish(ctx, events.Event{
			Type:     events.TypeDocumentDeleted,
			FileID:   fileID,
			FileName: record.FileName,
		})
	}

	return nil
}

// DownloadURL returns a presigned URL for the original uploaded bytes.
func (s *fileService) DownloadURL(ctx context.Context, fileID string) (string, error) {
	record, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrFileNotFound
	}
	return s.objects.PresignedGetURL(ctx, objectName(fileID, record.FileName), time.Hour)
}
