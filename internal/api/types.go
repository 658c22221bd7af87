package api

import "streamify/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	Version       string `json:"version" yaml:"version"`
	SchemaVersion int    `json:"schema_version" yaml:"schema_version"`
	StorageRoot   string `json:"storage_root" yaml:"storage_root"`
	AuthEnabled   bool   `json:"auth_enabled" yaml:"auth_enabled"`
	MaxUpload     int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// MediaResponse is one media record as returned by the API.
type MediaResponse struct {
	models.Media `yaml:",inline"`
}

// MediaListResponse wraps a page of media records.
type MediaListResponse struct {
	Items  []MediaResponse `json:"items" yaml:"items"`
	Limit  int             `json:"limit" yaml:"limit"`
	Offset int             `json:"offset" yaml:"offset"`
}

// MediaUpdateRequest defines the payload for PATCH /v1/media/{id}.
type MediaUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MediaUploadRequest describes the form fields sent with an upload.
type MediaUploadRequest struct {
	Title       string
	Description string
	Filename    string
	ContentType string
}

// OrphanBlob is a stored blob with no media record.
type OrphanBlob struct {
	StorageKey string `json:"storage_key" yaml:"storage_key"`
	SizeBytes  int64  `json:"size_bytes" yaml:"size_bytes"`
}
