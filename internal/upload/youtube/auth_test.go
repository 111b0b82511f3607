package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uploadqueue/internal/logger"
	"uploadqueue/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestConnector_ConnectAndUpload(t *testing.T) {
	tokens := tokenServer(t, http.StatusOK)
	defer tokens.Close()

	fake := &fakeYouTube{wantAuth: "Bearer access-1"}
	api := httptest.NewServer(fake.handler(t))
	defer api.Close()

	conn := NewConnector(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-1",
		ChunkSize:    4,
		Endpoint:     oauth2.Endpoint{TokenURL: tokens.URL, AuthStyle: oauth2.AuthStyleInParams},
		UploadURL:    api.URL + "/upload/videos",
		Engine:       upload.EngineConfig{MaxRetries: 1},
	}, logger.Discard())

	uploader, err := conn.Connect(context.Background())
	require.NoError(t, err)

	id, err := uploader.Upload(context.Background(), testRequest(writeVideo(t, "0123456789")))
	require.NoError(t, err)
	assert.Equal(t, "vid-1", id)
	assert.Equal(t, 1, fake.initiations)
}

func TestConnector_InvalidRefreshToken(t *testing.T) {
	tokens := tokenServer(t, http.StatusBadRequest)
	defer tokens.Close()

	conn := NewConnector(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "revoked",
		Endpoint:     oauth2.Endpoint{TokenURL: tokens.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, logger.Discard())

	_, err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh access token")
}

func TestNewConnector_DefaultsToGoogleEndpoint(t *testing.T) {
	conn := NewConnector(Config{}, logger.Discard())
	assert.Contains(t, conn.config.Endpoint.TokenURL, "oauth2.googleapis.com")
}

// revokedSource fails every refresh the way the token endpoint does for a
// revoked or expired refresh token.
type revokedSource struct{ calls int }

func (s *revokedSource) Token() (*oauth2.Token, error) {
	s.calls++
	return nil, &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"},
		Body:      []byte(`{"error":"invalid_grant"}`),
		ErrorCode: "invalid_grant",
	}
}

func TestEngineOverTransport_TokenRefreshFailureIsFatal(t *testing.T) {
	fake := &fakeYouTube{}
	api := httptest.NewServer(fake.handler(t))
	defer api.Close()

	src := &revokedSource{}
	var waits []time.Duration
	engine := upload.NewEngine(
		NewTransport(oauth2.NewClient(context.Background(), src), api.URL+"/upload/videos", 4),
		upload.EngineConfig{
			MaxRetries: 10,
			Sleep: func(ctx context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			},
		},
		logger.Discard(),
	)

	_, err := engine.Upload(context.Background(), testRequest(writeVideo(t, "0123456789")))
	require.Error(t, err)

	var uploadErr *upload.Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, upload.Fatal, uploadErr.Class)
	assert.Equal(t, 0, uploadErr.Retries)

	var tokenErr *oauth2.RetrieveError
	assert.True(t, errors.As(err, &tokenErr), "expected token error in chain, got %v", err)
	assert.Empty(t, waits)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 0, fake.initiations)
}
