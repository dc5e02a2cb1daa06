package models

import "time"

// UploadRequest is the body of POST /generate-upload-url
type UploadRequest struct {
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	Path        PathCategory `json:"path"`
}

// SignedUploadGrant is a time-limited write capability for one object key
type SignedUploadGrant struct {
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DeleteImageRequest is the body of POST /delete-image
type DeleteImageRequest struct {
	PublicURL string `json:"publicUrl"`
}

// DeleteResult describes the outcome of a delete-by-URL call
type DeleteResult struct {
	Key            string
	AlreadyDeleted bool
}

// Message is the generic {"message": ...} response body
type Message struct {
	Message string `json:"message"`
}
