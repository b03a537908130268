// Package config loads endpoints and local paths from TOML, and credentials from the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/alanbriolat/office-hours-archiver/archive"
	"github.com/alanbriolat/office-hours-archiver/zoom"
)

//go:embed sample_config.toml
var sampleConfig string

var ErrMissingCredential = errors.New("missing credential")

type Archive struct {
	Endpoint string `toml:"endpoint"`
}

type Zoom struct {
	OAuthURL string `toml:"oauth_url"`
	APIURL   string `toml:"api_url"`
}

type Ledger struct {
	Path string `toml:"path"`
}

type Download struct {
	TempDir string `toml:"temp_dir"`
}

type Config struct {
	Archive  Archive  `toml:"archive"`
	Zoom     Zoom     `toml:"zoom"`
	Ledger   Ledger   `toml:"ledger"`
	Download Download `toml:"download"`
}

func Default() Config {
	return Config{
		Archive: Archive{Endpoint: archive.DefaultEndpoint},
		Zoom:    Zoom{OAuthURL: zoom.DefaultOAuthURL, APIURL: zoom.DefaultAPIURL},
	}
}

// Load reads the config file at path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Explicitly emptied endpoints fall back to the defaults.
func (c *Config) normalize() {
	def := Default()
	if c.Archive.Endpoint == "" {
		c.Archive.Endpoint = def.Archive.Endpoint
	}
	if c.Zoom.OAuthURL == "" {
		c.Zoom.OAuthURL = def.Zoom.OAuthURL
	}
	if c.Zoom.APIURL == "" {
		c.Zoom.APIURL = def.Zoom.APIURL
	}
}

func SampleConfig() string {
	return sampleConfig
}

// Environ returns the process environment, overlaid on the dotenv file at envFile if one is given.
func Environ(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		fromFile, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		for k, v := range fromFile {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env, nil
}

func require(environ map[string]string, names ...string) ([]string, error) {
	var result *multierror.Error
	values := make([]string, len(names))
	for i, name := range names {
		if v := environ[name]; v == "" {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingCredential, name))
		} else {
			values[i] = v
		}
	}
	return values, result.ErrorOrNil()
}

func ArchiveCredentials(environ map[string]string) (archive.Credentials, error) {
	v, err := require(environ, "IA_ACCESS_KEY", "IA_SECRET_KEY")
	if err != nil {
		return archive.Credentials{}, err
	}
	return archive.Credentials{AccessKey: v[0], SecretKey: v[1]}, nil
}

func ZoomCredentials(environ map[string]string) (zoom.Credentials, error) {
	v, err := require(environ, "ZOOM_ACCOUNT_ID", "ZOOM_CLIENT_ID", "ZOOM_CLIENT_SECRET")
	if err != nil {
		return zoom.Credentials{}, err
	}
	return zoom.Credentials{AccountID: v[0], ClientID: v[1], ClientSecret: v[2]}, nil
}
