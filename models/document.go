package models

import "time"

// Document is the metadata of an uploaded file owned by one user.
// Filename is the blob key under the upload directory.
type Document struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       string    `json:"user_id" bson:"user_id"`
	DocType      string    `json:"doc_type" bson:"doc_type"` // E.g., health record, work permit
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"original_name,omitempty" bson:"original_name,omitempty"`
	ContentType  string    `json:"content_type,omitempty" bson:"content_type,omitempty"`
	Size         int64     `json:"size" bson:"size"`
	UploadedAt   time.Time `json:"upload_date" bson:"upload_date"`
}
