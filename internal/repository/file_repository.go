// Package repository implements the data access layer.
package repository

import (
	"errors"

	"gorm.io/gorm"

	"doc-qa-go/internal/model"
)

// FileRepository persists the registry row kept for each uploaded file.
type FileRepository interface {
	Create(record *model.File) error
	FindAll() ([]model.File, error)
	FindByID(fileID string) (*model.File, error)
	DeleteByID(fileID string) error
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a GORM-backed FileRepository.
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(record *model.File) error {
	return r.db.Create(record).Error
}

func (r *fileRepository) FindAll() ([]model.File, error) {
	var files []model.File
	err := r.db.Order("upload_date desc").Find(&files).Error
	return files, err
}

// FindByID returns the registry row, or (nil, nil) when the file is unknown.
func (r *fileRepository) FindByID(fileID string) (*model.File, error) {
	var record model.File
	err := r.db.Where("file_id = ?", fileID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteByID removes the registry row. Deleting an unknown id is a no-op.
func (r *fileRepository) DeleteByID(fileID string) error {
	return r.db.Where("file_id = ?", fileID).Delete(&model.File{}).Error
}
