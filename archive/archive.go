// Package archive uploads files to Internet Archive items through its S3-like API.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/alanbriolat/office-hours-archiver/metadata"
	"github.com/alanbriolat/office-hours-archiver/netpath"
)

// DefaultEndpoint is the Internet Archive S3-like write endpoint.
const DefaultEndpoint = "https://s3.us.archive.org/"

// IdentifierPrefix starts every item identifier.
const IdentifierPrefix = "agoric-office-hours-"

// Identifier names the archive item for a recording made on date (YYYY-MM-DD). Two recordings on the same day share
// an identifier.
func Identifier(date string) string {
	return IdentifierPrefix + date
}

// Credentials are Internet Archive S3 keys.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Authorization returns the value of the Authorization header for these credentials.
func (c Credentials) Authorization() string {
	return fmt.Sprintf("LOW %s:%s", c.AccessKey, c.SecretKey)
}

// Root returns an authorized handle on the archive endpoint.
func Root(endpoint string, doer netpath.Doer, creds Credentials) (netpath.NetPath, error) {
	root, err := netpath.New(endpoint, doer)
	if err != nil {
		return netpath.NetPath{}, fmt.Errorf("invalid archive endpoint: %w", err)
	}
	return root.WithHeaders(netpath.NewHeaders("Authorization", creds.Authorization())), nil
}

// Outcome records a successfully uploaded file.
type Outcome struct {
	File   string
	Status int
}

// UploadError reports the file whose upload stopped a batch, along with whatever the archive said about it.
type UploadError struct {
	File string
	// Status is 0 if no response was received.
	Status int
	Reason string
	Body   string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("uploading %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("HTTP %d uploading %s:\n%s", e.Status, e.File, e.Body)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UploadAll uploads each file in order to root/identifier/<file name>, sending meta as headers. The first failure
// stops the batch and is returned as an *UploadError; files after it are not attempted.
func UploadAll(ctx context.Context, root netpath.NetPath, identifier string, files []netpath.File, meta metadata.Record) ([]Outcome, error) {
	log := zap.S().Named("archive").With("identifier", identifier)
	item := root.Join(identifier)
	outcomes := make([]Outcome, 0, len(files))
	for _, f := range files {
		target := item.Join(f.Name()).WithHeaders(meta.Headers())
		if _, err := target.PutFile(ctx, f); err != nil {
			return nil, newUploadError(f.Name(), err)
		}
		log.Infof("✅ Uploaded %s", f.Name())
		outcomes = append(outcomes, Outcome{File: f.Name(), Status: http.StatusOK})
	}
	return outcomes, nil
}

func newUploadError(name string, err error) *UploadError {
	uploadErr := &UploadError{File: name, Err: err}
	var transportErr *netpath.TransportError
	if errors.As(err, &transportErr) {
		uploadErr.Status = transportErr.Status
		uploadErr.Reason = transportErr.Reason
		uploadErr.Body = transportErr.Body
	}
	return uploadErr
}
