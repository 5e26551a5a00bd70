package client

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// MediaStore uploads binary assets to an external media host and returns
// the public URL to store on the user record.
type MediaStore interface {
	Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error)
}

// LocalMediaStore fakes a media host by minting stable URLs without
// persisting the bytes. It keeps the upload path exercisable in
// development and tests.
type LocalMediaStore struct {
	BaseURL string
}

func NewLocalMediaStore(baseURL string) *LocalMediaStore {
	if baseURL == "" {
		baseURL = "https://media.invalid"
	}
	return &LocalMediaStore{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalMediaStore) Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	name := path.Base(filename)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return fmt.Sprintf("%s/%d-%s", s.BaseURL, time.Now().UnixNano(), name), nil
}
