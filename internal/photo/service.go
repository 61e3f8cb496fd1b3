package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

// Properties is the slice of property.Service photos depend on.
type Properties interface {
	GetByID(ctx context.Context, id string) (*property.Property, error)
	AuthorizeHost(ctx context.Context, id, actorID string) (*property.Property, error)
}

// UploadInput carries one uploaded image. Content is read at most MaxBytes+1 bytes.
type UploadInput struct {
	PropertyID string
	ActorID    string
	Filename   string
	Content    io.Reader
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*Photo, error)
	Get(ctx context.Context, id string) (*Photo, error)
	ListByProperty(ctx context.Context, propertyID string) ([]*Photo, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *Photo, error)
	OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Photo, error)
	// Delete removes the photo; only the property's host may do so.
	Delete(ctx context.Context, id, actorID string) error
}

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif"}

type service struct {
	repo       Repository
	properties Properties
	store      storage.Storage
	thumbs     *storage.Thumbnailer
	maxBytes   int64
}

// NewService wires photo storage. maxBytes <= 0 disables the size limit.
func NewService(repo Repository, properties Properties, store storage.Storage, maxBytes int64) Service {
	return &service{
		repo:       repo,
		properties: properties,
		store:      store,
		thumbs:     storage.NewThumbnailer(),
		maxBytes:   maxBytes,
	}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*Photo, error) {
	if _, err := s.properties.AuthorizeHost(ctx, in.PropertyID, in.ActorID); err != nil {
		return nil, err
	}

	src := in.Content
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	// The declared content type is ignored; the bytes decide.
	detected := mimetype.Detect(content)
	if !mimetype.EqualsAny(detected.String(), allowedTypes...) {
		return nil, ErrUnsupportedType
	}

	id := uuid.NewString()
	dir := path.Join("photos", in.PropertyID, id[:2])
	storagePath := path.Join(dir, id+detected.Extension())

	if err := s.store.Save(ctx, storagePath, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}

	var thumbnailPath *string
	if thumb, err := s.thumbs.Thumbnail(bytes.NewReader(content)); err != nil {
		log.Printf("thumbnail for photo %s failed: %v", id, err)
	} else {
		tPath := path.Join(dir, id+"_thumb.jpg")
		if err := s.store.Save(ctx, tPath, bytes.NewReader(thumb)); err != nil {
			log.Printf("save thumbnail for photo %s failed: %v", id, err)
		} else {
			thumbnailPath = &tPath
		}
	}

	p := &Photo{
		ID:            id,
		PropertyID:    in.PropertyID,
		UploadedBy:    in.ActorID,
		Filename:      cleanFilename(in.Filename),
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ContentType:   detected.String(),
		Size:          int64(len(content)),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.removeBlobs(ctx, p)
		return nil, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, id string) (*Photo, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByProperty(ctx context.Context, propertyID string) ([]*Photo, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListByProperty(ctx, propertyID)
}

func (s *service) Open(ctx context.Context, id string) (io.ReadCloser, *Photo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.open(ctx, p.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, p, nil
}

func (s *service) OpenThumbnail(ctx context.Context, id string) (io.ReadCloser, *Photo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.ThumbnailPath == nil {
		return nil, nil, ErrThumbnailUnavailable
	}
	rc, err := s.open(ctx, *p.ThumbnailPath)
	if err != nil {
		return nil, nil, err
	}
	return rc, p, nil
}

func (s *service) open(ctx context.Context, p string) (io.ReadCloser, error) {
	rc, err := s.store.Get(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve photo from storage: %w", err)
	}
	return rc, nil
}

func (s *service) Delete(ctx context.Context, id, actorID string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.properties.AuthorizeHost(ctx, p.PropertyID, actorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeBlobs(ctx, p)
	return nil
}

// removeBlobs is best effort; an orphaned blob is only wasted disk.
func (s *service) removeBlobs(ctx context.Context, p *Photo) {
	if err := s.store.Delete(ctx, p.StoragePath); err != nil {
		log.Printf("delete photo blob %s failed: %v", p.StoragePath, err)
	}
	if p.ThumbnailPath != nil {
		if err := s.store.Delete(ctx, *p.ThumbnailPath); err != nil {
			log.Printf("delete thumbnail blob %s failed: %v", *p.ThumbnailPath, err)
		}
	}
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return "photo"
	}
	return name
}
