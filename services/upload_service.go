package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
)

// UploadService stores files for instructors under their own key prefix
type UploadService struct {
	objects storage.ObjectStore
	policy  auth.Policy
	logger  *slog.Logger
	now     func() time.Time
}

// NewUploadService creates a new upload service
func NewUploadService(objects storage.ObjectStore, policy auth.Policy, logger *slog.Logger) *UploadService {
	return &UploadService{objects: objects, policy: policy, logger: logger, now: time.Now}
}

// DeleteUploadRequest names the object to remove
type DeleteUploadRequest struct {
	Key string `json:"key" validate:"required,max=1024"`
}

// UploadResult describes a stored object
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload stores body at uploads/<userId>/<unix>_<name>
func (s *UploadService) Upload(ctx context.Context, id *auth.Identity, filename string, size int64, body io.ReadSeeker) (*UploadResult, error) {
	if err := s.policy.Authorize(id, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, apperr.Validation("File is empty")
	}
	if size > storage.MaxUploadSize {
		return nil, apperr.Validation(fmt.Sprintf("File exceeds the %d MB limit", storage.MaxUploadSize>>20))
	}

	key := storage.UploadKey(id.UserID, filename, s.now())
	contentType := storage.ContentType(filename)
	url, err := s.objects.Put(ctx, key, body, contentType)
	if err != nil {
		s.logger.Error("upload failed", "key", key, "error", err)
		return nil, apperr.ErrStorageUnavailable.Wrap(err)
	}

	s.logger.Info("file uploaded", "key", key, "size", size, "user_id", id.UserID)
	return &UploadResult{
		Key:         key,
		URL:         url,
		Filename:    storage.SanitizeFilename(filename),
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Delete removes an object. Non-admins may only delete under their own prefix.
// A public URL is accepted in place of the key.
func (s *UploadService) Delete(ctx context.Context, id *auth.Identity, keyOrURL string) error {
	if err := s.policy.Authorize(id, model.RoleInstructor, model.RoleAdmin); err != nil {
		return err
	}
	key := keyOrURL
	if k, ok := s.objects.KeyFromURL(keyOrURL); ok {
		key = k
	}
	if strings.Contains(key, "..") {
		return apperr.Validation("Invalid key")
	}
	if !id.IsAdmin() && !strings.HasPrefix(key, storage.UserPrefix(id.UserID)) {
		return apperr.Forbidden("You can only delete your own uploads")
	}

	if err := s.objects.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return apperr.NotFound("File not found")
		}
		return apperr.ErrStorageUnavailable.Wrap(err)
	}
	s.logger.Info("file deleted", "key", key, "user_id", id.UserID)
	return nil
}
