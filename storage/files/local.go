// Package files stores uploaded classroom attachments on the local disk and
// serves them back under the media URL prefix.
package files

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/classroom"
)

const MediaURLPrefix = "/media"

type LocalStore struct {
	root string
}

var _ classroom.DocumentStore = (*LocalStore)(nil)

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root is the directory served under MediaURLPrefix.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Save(classroomID, filename string, content io.Reader) (classroom.DocumentRef, error) {
	id := uuid.New().String()
	name := sanitize(filename)

	dir := filepath.Join(s.root, classroomID, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return classroom.DocumentRef{}, errors.Wrap(err, "creating media dir")
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return classroom.DocumentRef{}, errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, content); err != nil {
		return classroom.DocumentRef{}, errors.Wrap(err, "writing file")
	}

	return classroom.DocumentRef{
		ID:   id,
		Name: name,
		URL:  strings.Join([]string{MediaURLPrefix, classroomID, id, name}, "/"),
	}, nil
}

// sanitize strips any path components and characters unsafe in a URL segment.
func sanitize(filename string) string {
	name := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
