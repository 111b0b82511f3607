// Package upload drives resumable uploads to the video platform.
package upload

import (
	"context"
)

// Privacy is the visibility applied to an uploaded video.
type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyUnlisted Privacy = "unlisted"
	PrivacyPrivate  Privacy = "private"
)

// Request describes one local file and the metadata it is published under.
type Request struct {
	FilePath    string
	Title       string
	Description string
	CategoryID  string
	Privacy     Privacy
	Tags        []string
}

// Progress reports how many bytes the remote side has acknowledged.
type Progress struct {
	Sent  int64
	Total int64
}

// Transport opens resumable sessions against the remote platform.
// Implementations include the YouTube Data API and in-memory fakes for tests.
type Transport interface {
	// Open prepares a session for req. It must not send the file yet.
	Open(ctx context.Context, req Request) (Session, error)
}

// Session is one resumable upload in flight.
type Session interface {
	// Next sends the next chunk. It returns the remote video ID once the upload
	// is complete and an empty ID while more chunks remain.
	Next(ctx context.Context) (Progress, string, error)

	// Close releases the local file handle.
	Close() error
}

// Uploader publishes a local file and returns the remote video ID.
type Uploader interface {
	Upload(ctx context.Context, req Request) (string, error)
}

// Connector authenticates once per run and returns an Uploader bound to that identity.
type Connector interface {
	Connect(ctx context.Context) (Uploader, error)
}
