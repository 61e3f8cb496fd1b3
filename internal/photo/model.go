package photo

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound             = apperror.NotFound("photo not found")
	ErrThumbnailUnavailable = apperror.NotFound("thumbnail not available for this photo")
	ErrEmptyFile            = apperror.Validation("file is empty")
	ErrUnsupportedType      = apperror.Validation("only jpeg, png and gif images are accepted")
	ErrFileTooLarge         = apperror.New(http.StatusRequestEntityTooLarge, "file is too large")
)

// Photo is an image attached to a property listing.
type Photo struct {
	ID            string
	PropertyID    string
	UploadedBy    string
	Filename      string
	StoragePath   string  // Internal path
	ThumbnailPath *string // Internal path, nil when no preview could be rendered
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// URL returns the public URL for the original image.
func URL(id string) string {
	return "/v1/photos/" + id
}

// ThumbnailURL returns the public URL for the preview image.
func ThumbnailURL(id string) string {
	return "/v1/photos/" + id + "/thumbnail"
}
