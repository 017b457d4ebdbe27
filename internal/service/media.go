package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/storage"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
)

// MediaUpload is one file attached to a submission.
type MediaUpload struct {
	// Field is the multipart field the file arrived in: images or video.
	Field       string
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// MediaService turns uploaded files into public media references.
type MediaService struct {
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewMediaService creates a new media service.
func NewMediaService(store storage.Storage, log *slog.Logger) *MediaService {
	return &MediaService{
		storage: store,
		logger:  log,
		now:     time.Now,
	}
}

// Store validates and uploads one file.
func (s *MediaService) Store(ctx context.Context, up *MediaUpload) (*storage.UploadResult, error) {
	switch up.Field {
	case domain.MediaFieldImages:
		if !domain.IsAllowedImageType(up.ContentType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not an accepted image", up.ContentType))
		}
	case domain.MediaFieldVideo:
		if !domain.IsAllowedVideoType(up.ContentType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not an accepted video", up.ContentType))
		}
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unexpected media field %q", up.Field))
	}

	if up.Size <= 0 {
		return nil, apperrors.InvalidInput("file size must be greater than zero")
	}
	if up.Size > domain.MaxMediaFileSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file size %d exceeds maximum allowed size of %d bytes", up.Size, domain.MaxMediaFileSize))
	}

	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         storage.NewKey(up.FileName, up.ContentType, s.now()),
		ContentType: up.ContentType,
		Size:        up.Size,
		Data:        up.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	return result, nil
}

// Discard removes uploaded files whose submission was rejected. Failures are
// logged only.
func (s *MediaService) Discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to discard uploaded media",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
