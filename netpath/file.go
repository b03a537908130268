package netpath

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is a read-only view of some content to transfer. NetPath only reads it for the duration of a request.
type File interface {
	// Name is the base name the content is stored under remotely.
	Name() string
	// Size is the content length in bytes.
	Size() int64
	// Open returns a fresh reader over the full content.
	Open() (io.ReadCloser, error)
}

type localFile struct {
	path string
	size int64
}

// LocalFile describes the regular file at path.
func LocalFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	return &localFile{path: path, size: info.Size()}, nil
}

func (f *localFile) Name() string {
	return filepath.Base(f.path)
}

func (f *localFile) Size() int64 {
	return f.size
}

func (f *localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func (f *localFile) String() string {
	return f.path
}

type bytesFile struct {
	name string
	data []byte
}

// BytesFile describes in-memory content.
func BytesFile(name string, data []byte) File {
	return &bytesFile{name: name, data: data}
}

func (f *bytesFile) Name() string {
	return f.name
}

func (f *bytesFile) Size() int64 {
	return int64(len(f.data))
}

func (f *bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
