// Package media validates and stores user avatars. Uploads are identified by
// their content, not their file name or declared Content-Type, and written
// either to a local directory served by the HTTP layer or to Cloudinary.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrTooLarge indicates the upload exceeded the configured limit.
	ErrTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrTypeNotAllowed indicates the detected MIME type is not an accepted image.
	ErrTypeNotAllowed = errors.New("file type not allowed")
	// ErrEmpty indicates an upload without content.
	ErrEmpty = errors.New("file is empty")
)

// allowed maps accepted MIME types to the extension stored files get.
var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a validated upload held in memory.
type Image struct {
	Data []byte
	MIME string
	Ext  string
}

// Read consumes at most maxBytes from r and validates the content as an
// accepted image type.
func Read(r io.Reader, maxBytes int64) (*Image, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(r, maxBytes+1)); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(buf.Len()) > maxBytes {
		return nil, ErrTooLarge
	}
	return Validate(buf.Bytes())
}

// Validate sniffs data and returns it as an Image if it is an accepted type.
func Validate(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return &Image{Data: data, MIME: m.String(), Ext: ext}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotAllowed, mt.String())
}

// Store persists avatars and returns the URL (or path) they are served from.
// Delete removes an upload by the URL Save returned; URLs the store does not
// own are ignored.
type Store interface {
	Save(ctx context.Context, name string, img *Image) (string, error)
	Delete(ctx context.Context, url string) error
}
