// Package blob stores comment attachments on local disk and serves them by URL.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes int64 = 10 << 20

// URLPrefix is the route attachments are served from.
const URLPrefix = "/files/"

// Store writes attachments below a root directory.
type Store struct {
	root      string
	publicURL string
	maxBytes  int64
}

// New creates the root directory if needed. publicURL is prepended to
// returned links and may be empty for host-relative URLs.
func New(root, publicURL string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{root: root, publicURL: strings.TrimRight(publicURL, "/"), maxBytes: maxBytes}, nil
}

// Root is the directory attachments live in.
func (s *Store) Root() string { return s.root }

// MaxBytes is the upload ceiling.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Put stores the content of r for userID under a random name that keeps the
// extension of name. size is the declared length; -1 means unknown, in which
// case the limit is enforced while copying.
func (s *Store) Put(ctx context.Context, userID, name string, size int64, r io.Reader) (models.Attachment, error) {
	if size > s.maxBytes {
		return models.Attachment{}, fmt.Errorf("%s is %d bytes, limit %d: %w", name, size, s.maxBytes, models.ErrTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}
	userDir := safeSegment(userID)
	if userDir == "" {
		return models.Attachment{}, errors.New("user id must not be empty")
	}

	rel := path.Join(userDir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return models.Attachment{}, fmt.Errorf("create user dir: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("create attachment: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxBytes {
		err = fmt.Errorf("%s exceeds %d bytes: %w", name, s.maxBytes, models.ErrTooLarge)
	}
	if err != nil {
		_ = os.Remove(dst)
		return models.Attachment{}, fmt.Errorf("write attachment: %w", err)
	}

	return models.Attachment{URL: s.publicURL + URLPrefix + rel, Name: filepath.Base(name)}, nil
}

// safeSegment keeps a user id usable as a single path element.
func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
