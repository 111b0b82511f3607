package youtube

import (
	"context"
	"fmt"
	"log/slog"

	"uploadqueue/internal/upload"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"
)

// Config holds the credentials and upload settings of a Connector.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	ChunkSize int64
	Engine    upload.EngineConfig

	// Overrides for tests. Zero values select the Google endpoints.
	Endpoint  oauth2.Endpoint
	UploadURL string
}

// Connector exchanges a long-lived refresh token for an authorized client.
type Connector struct {
	config Config
	logger *slog.Logger
}

var _ upload.Connector = (*Connector)(nil)

// NewConnector creates a connector.
func NewConnector(config Config, logger *slog.Logger) *Connector {
	if config.Endpoint.TokenURL == "" {
		config.Endpoint = google.Endpoint
	}
	return &Connector{config: config, logger: logger}
}

// Connect refreshes an access token once and returns an upload engine bound to it.
// The token source refreshes again if the access token expires mid-run.
func (c *Connector) Connect(ctx context.Context) (upload.Uploader, error) {
	conf := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint:     c.config.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope},
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: c.config.RefreshToken})
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	c.logger.Info("authenticated with video platform")

	client := oauth2.NewClient(ctx, ts)
	transport := NewTransport(client, c.config.UploadURL, c.config.ChunkSize)
	return upload.NewEngine(transport, c.config.Engine, c.logger), nil
}
