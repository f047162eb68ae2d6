package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes files under Dir and returns URLs under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore creates dir if needed and returns a store writing into it.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("media dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/media"
	}
	return &LocalStore{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Save writes img under a fresh random file name. name only seeds a
// readable prefix and never reaches the file system unsanitised.
func (s *LocalStore) Save(ctx context.Context, name string, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	file := publicID(name) + "-" + uuid.NewString()[:8] + img.Ext
	dst := filepath.Join(s.Dir, file)

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write avatar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close avatar: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	return path.Join(s.URLPrefix, file), nil
}

// Delete removes a file previously returned by Save. Missing files and URLs
// outside URLPrefix are ignored.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, ok := strings.CutPrefix(url, s.URLPrefix+"/")
	if !ok || file == "" || strings.ContainsAny(file, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Dir, file)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}

func publicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" || base == "." {
		base = "avatar"
	}
	if len(base) > 40 {
		base = base[:40]
	}
	return strings.ToLower(base)
}
