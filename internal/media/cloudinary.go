package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all credentials are present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// CloudinaryStore uploads avatars to Cloudinary and returns their secure URL.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinaryStore constructs a Cloudinary-backed store.
func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

func (s *CloudinaryStore) Save(ctx context.Context, name string, img *Image) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID(name) + "-" + uuid.NewString()[:8],
		ResourceType: "image",
	}
	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(img.Data), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected avatar: %s", result.Error.Message)
	}
	s.logger.Info().Str("public_id", result.PublicID).Msg("avatar uploaded to cloudinary")
	return result.SecureURL, nil
}

// Delete destroys the asset behind a delivery URL returned by Save.
func (s *CloudinaryStore) Delete(ctx context.Context, url string) error {
	id, ok := deliveryPublicID(url)
	if !ok {
		return nil
	}
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id, ResourceType: "image"})
	if err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected delete: %s", result.Error.Message)
	}
	s.logger.Info().Str("public_id", id).Str("result", result.Result).Msg("avatar deleted from cloudinary")
	return nil
}

// deliveryPublicID extracts the public ID from a Cloudinary delivery URL:
// the path after /upload/, minus the version segment and the extension.
func deliveryPublicID(url string) (string, bool) {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok {
		return "", false
	}
	segs := strings.Split(rest, "/")
	if len(segs) > 1 && isVersion(segs[0]) {
		segs = segs[1:]
	}
	id := strings.Join(segs, "/")
	if dot := strings.LastIndex(id, "."); dot > strings.LastIndex(id, "/") {
		id = id[:dot]
	}
	return id, id != ""
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
