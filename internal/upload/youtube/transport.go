// Package youtube implements the resumable upload protocol of the YouTube Data API.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"uploadqueue/internal/upload"

	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"
)

// DefaultUploadURL is the media upload endpoint for video inserts.
const DefaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

// DefaultChunkSize is the size of each PUT. Must be a multiple of 256 KiB.
const DefaultChunkSize = 1024 * 1024

// Transport opens resumable upload sessions using an authorized HTTP client.
type Transport struct {
	client    *http.Client
	uploadURL string
	chunkSize int64
}

var _ upload.Transport = (*Transport)(nil)

// NewTransport creates a transport. Zero values select the defaults.
func NewTransport(client *http.Client, uploadURL string, chunkSize int64) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Transport{
		client:    client,
		uploadURL: uploadURL,
		chunkSize: chunkSize,
	}
}

// Open opens the local file and prepares the insert metadata.
// The session is created on the first call to Next.
func (t *Transport) Open(ctx context.Context, req upload.Request) (upload.Session, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("file %s is empty", req.FilePath)
	}

	body, err := json.Marshal(videoResource(req))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("encode video metadata: %w", err)
	}

	return &session{
		transport: t,
		file:      f,
		size:      info.Size(),
		metadata:  body,
	}, nil
}

func videoResource(req upload.Request) *yt.Video {
	return &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  req.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus: string(req.Privacy),
		},
	}
}

// session is one resumable upload. It is not safe for concurrent use.
type session struct {
	transport *Transport
	file      *os.File
	size      int64
	metadata  []byte

	uri    string // session URI returned by the initiation request
	offset int64  // first byte not yet acknowledged
	resync bool   // ask the server for its offset before the next chunk
}

func (s *session) Next(ctx context.Context) (upload.Progress, string, error) {
	if s.uri == "" {
		if err := s.initiate(ctx); err != nil {
			return s.progress(), "", err
		}
	}

	if s.resync {
		resp, err := s.put(ctx, fmt.Sprintf("bytes */%d", s.size), nil, 0)
		if err != nil {
			return s.progress(), "", err
		}
		videoID, done, err := s.handle(resp)
		if err != nil || done {
			return s.progress(), videoID, err
		}
		s.resync = false
	}

	if s.offset >= s.size {
		// Every byte is stored but the server has not returned the video yet.
		s.resync = true
		return s.progress(), "", fmt.Errorf("%w: %d of %d bytes stored", upload.ErrNotFinalized, s.offset, s.size)
	}

	n := s.transport.chunkSize
	if remaining := s.size - s.offset; remaining < n {
		n = remaining
	}
	contentRange := fmt.Sprintf("bytes %d-%d/%d", s.offset, s.offset+n-1, s.size)
	resp, err := s.put(ctx, contentRange, io.NewSectionReader(s.file, s.offset, n), n)
	if err != nil {
		return s.progress(), "", err
	}
	videoID, _, err := s.handle(resp)
	return s.progress(), videoID, err
}

func (s *session) Close() error {
	return s.file.Close()
}

func (s *session) progress() upload.Progress {
	return upload.Progress{Sent: s.offset, Total: s.size}
}

func (s *session) initiate(ctx context.Context) error {
	u, err := url.Parse(s.transport.uploadURL)
	if err != nil {
		return fmt.Errorf("invalid upload url: %w", err)
	}
	q := u.Query()
	q.Set("uploadType", "resumable")
	q.Set("part", "snippet,status")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(s.metadata))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(s.size, 10))
	req.Header.Set("X-Upload-Content-Type", "video/*")

	resp, err := s.transport.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return errors.New("resumable session response has no Location header")
	}
	s.uri = location
	s.offset = 0
	s.resync = false
	return nil
}

func (s *session) put(ctx context.Context, contentRange string, body io.Reader, length int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.uri, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = length
	req.Header.Set("Content-Range", contentRange)
	if length > 0 {
		req.Header.Set("Content-Type", "video/*")
	}

	resp, err := s.transport.client.Do(req)
	if err != nil {
		s.resync = true
		return nil, err
	}
	return resp, nil
}

// handle interprets a chunk or status response. done is true once the
// server has returned the created video.
func (s *session) handle(resp *http.Response) (videoID string, done bool, err error) {
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusPermanentRedirect:
		s.offset = committedOffset(resp.Header.Get("Range"))
		return "", false, nil
	case http.StatusOK, http.StatusCreated:
		var video yt.Video
		if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
			s.resync = true
			return "", false, fmt.Errorf("decode upload response: %w", err)
		}
		if video.Id == "" {
			return "", false, errors.New("upload response has no video id")
		}
		s.offset = s.size
		return video.Id, true, nil
	}

	s.resync = true
	if err := googleapi.CheckResponse(resp); err != nil {
		return "", false, err
	}
	return "", false, fmt.Errorf("unexpected upload response status %d", resp.StatusCode)
}

// committedOffset parses a Range header of the form "bytes=0-N" and returns N+1.
// A missing header means nothing has been stored.
func committedOffset(header string) int64 {
	_, last, ok := strings.Cut(strings.TrimPrefix(header, "bytes="), "-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0
	}
	return n + 1
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
