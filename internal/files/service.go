// Package files stores uploaded attachments and activity media on the
// local disk, with their metadata in the store.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
)

// DefaultMaxSize is the upload limit used when none is configured.
const DefaultMaxSize int64 = 32 << 20

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 3072

// Store is the persistence the service needs.
type Store interface {
	CreateFile(ctx context.Context, f model.File) (model.File, error)
	GetFileByID(ctx context.Context, id string) (*model.File, error)
	GetFilesByProject(ctx context.Context, projectID string) ([]model.File, error)
	DeleteFile(ctx context.Context, id string) error
}

// Service writes file content under Root and records it in the store.
type Service struct {
	store   Store
	root    string
	baseURL string
	maxSize int64
}

// NewService creates a service storing content under root. Download URLs
// are built from baseURL; an empty baseURL yields paths relative to the
// API root. maxSize <= 0 means DefaultMaxSize.
func NewService(s Store, root, baseURL string, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Service{
		store:   s,
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}
}

// Upload stores r as a file named name in the project and returns its
// record. The content type is detected from the content, falling back to
// the name's extension.
func (s *Service) Upload(
	ctx context.Context,
	sess identity.Session,
	projectID, name string,
	r io.Reader,
) (model.File, error) {
	const op = "uploading file"
	if err := sess.Require(op); err != nil {
		return model.File{}, err
	}
	if strings.TrimSpace(projectID) == "" {
		return model.File{}, apperr.E(apperr.InvalidInput, op, "project id must not be empty")
	}
	name = cleanName(name)
	if name == "" {
		return model.File{}, apperr.E(apperr.InvalidInput, op, "file name must not be empty")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return model.File{}, fmt.Errorf("%s: reading content: %w", op, err)
	}
	if n == 0 {
		return model.File{}, apperr.E(apperr.InvalidInput, op, "file %s is empty", name)
	}
	head = head[:n]

	id := uuid.New().String()
	detected := mimetype.Detect(head)
	key := path.Join(id[:2], id+detected.Extension())
	dst := s.path(key)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return model.File{}, fmt.Errorf("%s: creating storage directory: %w", op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return model.File{}, fmt.Errorf("%s: creating temp file: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return model.File{}, fmt.Errorf("%s: writing content: %w", op, err)
	}
	if size > s.maxSize {
		return model.File{}, apperr.E(apperr.InvalidInput, op, "file %s exceeds %d bytes", name, s.maxSize)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return model.File{}, fmt.Errorf("%s: moving content into place: %w", op, err)
	}

	f, err := s.store.CreateFile(ctx, model.File{
		ID:          id,
		ProjectID:   projectID,
		Name:        name,
		Key:         key,
		ContentType: contentType(detected, name),
		Size:        size,
		UploadedBy:  sess.UserID,
	})
	if err != nil {
		os.Remove(dst)
		return model.File{}, err
	}
	return f, nil
}

// Get returns a file's record.
func (s *Service) Get(ctx context.Context, id string) (*model.File, error) {
	return s.store.GetFileByID(ctx, id)
}

// List returns the files uploaded to a project.
func (s *Service) List(ctx context.Context, projectID string) ([]model.File, error) {
	return s.store.GetFilesByProject(ctx, projectID)
}

// Open returns a reader for the file's content. The caller closes it.
func (s *Service) Open(f *model.File) (*os.File, error) {
	rc, err := os.Open(s.path(f.Key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.E(apperr.NotFound, "opening file", "content of file %s is missing", f.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", f.ID, err)
	}
	return rc, nil
}

// Path returns where the file's content is stored on disk.
func (s *Service) Path(f *model.File) string {
	return s.path(f.Key)
}

// Delete removes a file. Only the uploader may delete it.
func (s *Service) Delete(ctx context.Context, sess identity.Session, id string) error {
	const op = "deleting file"
	if err := sess.Require(op); err != nil {
		return err
	}

	f, err := s.store.GetFileByID(ctx, id)
	if err != nil {
		return err
	}
	if f.UploadedBy != sess.UserID {
		return apperr.E(apperr.Forbidden, op, "only the uploader may delete file %s", id)
	}

	if err := s.store.DeleteFile(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(s.path(f.Key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: removing content: %w", op, err)
	}
	return nil
}

// URL returns the download URL recorded in attachments and activities.
func (s *Service) URL(f model.File) string {
	return s.baseURL + "/files/" + f.ID
}

// ActivityType picks the feed entry type for an uploaded file.
func ActivityType(contentType string) model.ActivityType {
	if strings.HasPrefix(contentType, "image/") {
		return model.ActivityImage
	}
	return model.ActivityDocument
}

func (s *Service) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// cleanName keeps only the base name of a client-supplied path.
func cleanName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// contentType prefers the detected type unless detection found nothing
// more specific than a generic binary or text type.
func contentType(detected *mimetype.MIME, name string) string {
	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}
