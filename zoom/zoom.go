// Package zoom finds and fetches cloud recordings through the Zoom API, using Server-to-Server OAuth.
package zoom

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/office-hours-archiver/netpath"
)

const (
	DefaultOAuthURL = "https://zoom.us/oauth/token"
	DefaultAPIURL   = "https://api.zoom.us/v2/"
)

var (
	ErrNoRecordings = errors.New("no recordings found")
	ErrNoToken      = errors.New("no access token in response")
)

// Credentials of a Zoom Server-to-Server OAuth app.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Authorization returns the HTTP Basic Authorization header value for the client credentials.
func (c Credentials) Authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.ClientID+":"+c.ClientSecret))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken exchanges the account credentials for a bearer token at the OAuth token endpoint oauth.
func AccessToken(ctx context.Context, oauth netpath.NetPath, creds Credentials) (string, error) {
	logger().Info("🔑 Requesting Zoom access token")
	var resp tokenResponse
	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {creds.AccountID},
	}
	oauth = oauth.WithHeaders(netpath.NewHeaders("Authorization", creds.Authorization()))
	if err := oauth.PostForm(ctx, form, &resp); err != nil {
		return "", fmt.Errorf("zoom access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", ErrNoToken
	}
	return resp.AccessToken, nil
}

// Bearer returns p authorized with token.
func Bearer(p netpath.NetPath, token string) netpath.NetPath {
	return p.WithHeaders(netpath.NewHeaders("Authorization", "Bearer "+token))
}

type recordingFile struct {
	DownloadURL   string `json:"download_url"`
	FileType      string `json:"file_type"`
	FileExtension string `json:"file_extension"`
	FileSize      int64  `json:"file_size"`
}

type meeting struct {
	Topic          string          `json:"topic"`
	StartTime      time.Time       `json:"start_time"`
	RecordingFiles []recordingFile `json:"recording_files"`
}

type recordingsResponse struct {
	Meetings []meeting `json:"meetings"`
}

// Recording describes one downloadable recording file of a meeting.
type Recording struct {
	Topic         string
	StartTime     time.Time
	DownloadURL   string
	FileExtension string
	FileSize      int64
}

// Date returns the UTC calendar date the meeting started on, as YYYY-MM-DD.
func (r Recording) Date() string {
	return r.StartTime.UTC().Format("2006-01-02")
}

// Filename is the local and archived name of the recording.
func (r Recording) Filename() string {
	ext := strings.ToLower(r.FileExtension)
	if ext == "" {
		ext = "mp4"
	}
	return "office-hours." + ext
}

// LatestRecording returns the newest meeting's video from the recordings of the authorized user. api must already
// carry a bearer token. The MP4 file is preferred; otherwise the first file is used.
func LatestRecording(ctx context.Context, api netpath.NetPath) (Recording, error) {
	logger().Info("🎥 Fetching latest Zoom recording")
	var resp recordingsResponse
	if err := api.Join("users/me/recordings").ReadJSON(ctx, &resp); err != nil {
		return Recording{}, fmt.Errorf("zoom recordings: %w", err)
	}
	if len(resp.Meetings) == 0 {
		return Recording{}, ErrNoRecordings
	}
	m := resp.Meetings[0]
	if len(m.RecordingFiles) == 0 {
		return Recording{}, fmt.Errorf("%w: meeting %q has no files", ErrNoRecordings, m.Topic)
	}
	file := m.RecordingFiles[0]
	for _, f := range m.RecordingFiles {
		if strings.EqualFold(f.FileType, "MP4") {
			file = f
			break
		}
	}
	return Recording{
		Topic:         m.Topic,
		StartTime:     m.StartTime,
		DownloadURL:   file.DownloadURL,
		FileExtension: file.FileExtension,
		FileSize:      file.FileSize,
	}, nil
}

func logger() *zap.SugaredLogger {
	return zap.S().Named("zoom")
}
