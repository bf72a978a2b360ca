package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ValidDocumentCategories = []string{
	"plans", "permits", "contracts", "invoices", "photos",
	"reports", "certificates", "manuals", "other",
}

// FileInfo describes the stored object backing a document.
type FileInfo struct {
	Filename     string `bson:"filename" json:"filename"` // storage key
	OriginalName string `bson:"originalName" json:"originalName"`
	URL          string `bson:"url" json:"url"`
	Size         int64  `bson:"size" json:"size"`
	MimeType     string `bson:"mimeType" json:"mimeType"`
}

// DocumentAccess is persisted metadata; project membership remains the
// read gate.
type DocumentAccess struct {
	IsPublic     bool                 `bson:"isPublic" json:"isPublic"`
	AllowedUsers []primitive.ObjectID `bson:"allowedUsers,omitempty" json:"allowedUsers,omitempty"`
	AllowedRoles []string             `bson:"allowedRoles,omitempty" json:"allowedRoles,omitempty"`
}

type DocumentMeta struct {
	Author   string   `bson:"author,omitempty" json:"author,omitempty"`
	Keywords []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
	Language string   `bson:"language" json:"language"`
}

type Document struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Project        primitive.ObjectID `bson:"project" json:"project"`
	UploadedBy     primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	Category       string             `bson:"category" json:"category"`
	Type           string             `bson:"type" json:"type"` // MIME subtype, e.g. pdf, png
	File           FileInfo           `bson:"file" json:"file"`
	Version        string             `bson:"version" json:"version"`
	IsLatest       bool               `bson:"isLatest" json:"isLatest"`
	Tags           []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Metadata       DocumentMeta       `bson:"metadata" json:"metadata"`
	Access         DocumentAccess     `bson:"access" json:"access"`
	DownloadCount  int64              `bson:"downloadCount" json:"downloadCount"`
	LastDownloaded *time.Time         `bson:"lastDownloaded,omitempty" json:"lastDownloaded,omitempty"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FileSizeFormatted renders the byte count in the largest unit keeping
// the mantissa under 1024, with two-decimal precision.
func (d *Document) FileSizeFormatted() string {
	return FormatFileSize(d.File.Size)
}

// DaysSinceUpload is the whole days (floor) since the document was
// created, at the given instant.
func (d *Document) DaysSinceUpload(now time.Time) int {
	if now.Before(d.CreatedAt) {
		return 0
	}
	return int(now.Sub(d.CreatedAt).Hours() / 24)
}
