package knowledge

import "time"

const (
	KindPersona   = "persona"
	KindKnowledge = "knowledge"

	StatusProcessing = "processing"
	StatusActive     = "active"
	StatusError      = "error"
)

// Artifact is an uploaded reference document feeding the system prompt.
// Text-bearing uploads carry their extracted text inline; binary media keep
// a storage reference for native engine upload.
type Artifact struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type"`
	Status        string    `json:"status"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	StorageRef    string    `json:"storage_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UploadRequest is one admin upload.
type UploadRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=persona knowledge"`
	Filename string `json:"filename" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	Content  []byte `json:"content"`
}
