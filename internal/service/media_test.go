package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/storage/memory"
	apperrors "github.com/trungse123/review-backend/pkg/errors"
	"github.com/trungse123/review-backend/pkg/logger"
)

func newTestMediaService() (*MediaService, *memory.Storage) {
	store := memory.New("/uploads")
	svc := NewMediaService(store, logger.NewWithWriter("review-service", "error", new(bytes.Buffer)))
	svc.now = func() time.Time { return time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestMediaStore_Image(t *testing.T) {
	svc, store := newTestMediaService()

	res, err := svc.Store(context.Background(), &MediaUpload{
		Field:       domain.MediaFieldImages,
		FileName:    "shoe.png",
		ContentType: "image/png",
		Size:        4,
		Data:        strings.NewReader("data"),
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/reviews/2025/04/"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, 1, store.Len())
}

func TestMediaStore_Rejections(t *testing.T) {
	tests := []struct {
		name string
		up   MediaUpload
	}{
		{"video in images", MediaUpload{Field: domain.MediaFieldImages, ContentType: "video/mp4", Size: 1}},
		{"image in video", MediaUpload{Field: domain.MediaFieldVideo, ContentType: "image/png", Size: 1}},
		{"unknown field", MediaUpload{Field: "avatar", ContentType: "image/png", Size: 1}},
		{"empty", MediaUpload{Field: domain.MediaFieldImages, ContentType: "image/png", Size: 0}},
		{"too large", MediaUpload{Field: domain.MediaFieldVideo, ContentType: "video/mp4", Size: domain.MaxMediaFileSize + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestMediaService()
			up := tt.up
			up.Data = strings.NewReader("x")

			_, err := svc.Store(context.Background(), &up)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestMediaDiscard(t *testing.T) {
	svc, store := newTestMediaService()
	res, err := svc.Store(context.Background(), &MediaUpload{
		Field:       domain.MediaFieldVideo,
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        1,
		Data:        strings.NewReader("v"),
	})
	require.NoError(t, err)

	svc.Discard(context.Background(), []string{res.Key, "reviews/missing.jpg"})

	assert.Equal(t, 0, store.Len())
}
