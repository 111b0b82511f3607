// Package store contains the database layer for the upload queue processor.
package store

import (
	"errors"
	"time"
)

// ErrNotPending is returned when a terminal transition targets a job that already left PENDING.
var ErrNotPending = errors.New("queue job is not pending")

// ErrInvalidLimit is returned when a claim is requested with a non-positive limit.
var ErrInvalidLimit = errors.New("claim limit must be positive")

// JobStatus represents the state of a queued upload.
type JobStatus string

const (
	JobStatusPending  JobStatus = "PENDING"
	JobStatusUploaded JobStatus = "UPLOADED"
	JobStatusFailed   JobStatus = "FAILED"
)

// ShowType identifies which show a recording belongs to.
type ShowType string

const (
	ShowTypeHome     ShowType = "HOME"
	ShowTypeCallaway ShowType = "CALLAWAY"
)

// QueueJob is one pending request to publish a source video under the given metadata.
type QueueJob struct {
	ID           string
	FileName     string
	BlobURL      string
	Title        string
	Year         int
	Description  *string
	ShowType     ShowType
	ActIDs       []string
	PerformerIDs []string
	UploaderID   string
	Status       JobStatus
	YouTubeURL   *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProcessedAt  *time.Time

	// Uploader display data, joined at claim time.
	UploaderFirstName string
	UploaderLastName  string
}

// UploaderName returns the uploader's display name.
func (j *QueueJob) UploaderName() string {
	switch {
	case j.UploaderFirstName == "":
		return j.UploaderLastName
	case j.UploaderLastName == "":
		return j.UploaderFirstName
	}
	return j.UploaderFirstName + " " + j.UploaderLastName
}

// VideoRecord is the durable artifact created after a confirmed upload.
type VideoRecord struct {
	ID           string
	YouTubeURL   string
	YouTubeID    string
	Title        string
	Year         int
	Description  *string
	ShowType     ShowType
	UploaderID   string
	ActIDs       []string
	PerformerIDs []string
	CreatedAt    time.Time
}

// StatusCount is the number of queue jobs in one status.
type StatusCount struct {
	Status JobStatus
	Count  int64
}

// Day truncates t to its UTC calendar day. Quota rows are keyed by this value.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
