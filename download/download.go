// Package download manages the transient working directory used while moving files between services.
package download

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const tempPattern = "office-hours-*"

type downloadConfig struct {
	baseTempDir string
}

type DownloadConfigOption func(*downloadConfig)

// WithTempDir sets the directory the transient directory is created in. Empty means os.TempDir().
func WithTempDir(dir string) DownloadConfigOption {
	return func(c *downloadConfig) {
		if dir != "" {
			c.baseTempDir = dir
		}
	}
}

type DownloadState struct {
	config  downloadConfig
	tempDir string
}

func newDownloadState(config downloadConfig) (*DownloadState, error) {
	if err := os.MkdirAll(config.baseTempDir, 0755); err != nil {
		return nil, err
	}
	tempDir, err := os.MkdirTemp(config.baseTempDir, tempPattern)
	if err != nil {
		return nil, err
	}
	state := &DownloadState{
		config:  config,
		tempDir: tempDir,
	}
	return state, nil
}

func (s *DownloadState) close() {
	if err := os.RemoveAll(s.tempDir); err != nil {
		zap.S().Named("download").Warnf("Failed to clean up download state: %v", err)
	}
}

// Dir is the transient directory itself.
func (s *DownloadState) Dir() string {
	return s.tempDir
}

// Path returns where name lives inside the transient directory.
func (s *DownloadState) Path(name string) string {
	return filepath.Join(s.tempDir, filepath.Base(name))
}

// Create creates (or truncates) name inside the transient directory.
func (s *DownloadState) Create(name string) (*os.File, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	return os.Create(s.Path(name))
}

// WithDownloadState runs f with a fresh transient directory, which is removed again once f returns, whatever the
// outcome.
func WithDownloadState(f func(state *DownloadState) error, opts ...DownloadConfigOption) error {
	config := downloadConfig{
		baseTempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if state, err := newDownloadState(config); err != nil {
		return err
	} else {
		defer state.close()
		return f(state)
	}
}
