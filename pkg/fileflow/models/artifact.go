package models

import (
	"time"
)

// Artifact is one shared image: either an uploaded blob or a registered
// external image URL. Rows are never updated once written.
type Artifact struct {
	Id        string    `gorm:"column:id;primaryKey" json:"-"`
	Code      string    `gorm:"column:code;size:6;not null;uniqueIndex" json:"code"`
	Filename  string    `gorm:"column:filename;not null" json:"filename"`
	FilePath  string    `gorm:"column:file_path;not null" json:"filePath"`
	FileSize  int64     `gorm:"column:file_size;not null;default:0" json:"fileSize"`
	MimeType  string    `gorm:"column:mime_type" json:"mimeType"`
	PublicUrl string    `gorm:"column:public_url;not null" json:"publicUrl"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Artifact) TableName() string {
	return "shared_images"
}

// ArtifactMetadata is what a caller supplies when registering a code.
type ArtifactMetadata struct {
	Filename  string
	FilePath  string
	FileSize  int64
	MimeType  string
	PublicUrl string
}
