package model

import "time"

// File is the registry row for an uploaded document, one per successful upload.
type File struct {
	FileID     string    `gorm:"type:varchar(36);primaryKey;column:file_id" json:"file_id"`
	FileName   string    `gorm:"type:varchar(255);not null;column:filename" json:"filename"`
	FileType   string    `gorm:"type:varchar(16);not null;column:filetype" json:"filetype"`
	Size       int64     `gorm:"not null" json:"size"`
	UploadDate time.Time `gorm:"autoCreateTime;column:upload_date" json:"upload_date"`
}

// TableName sets the table this model maps to.
func (File) TableName() string {
	return "files"
}
