package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trungse123/review-backend/internal/storage"
)

func TestStorage_UploadGetDelete(t *testing.T) {
	s := New("/uploads")
	ctx := context.Background()

	res, err := s.Upload(ctx, &storage.UploadInput{
		Key:         "reviews/2025/01/a.jpg",
		ContentType: "image/jpeg",
		Size:        3,
		Data:        strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.Equal(t, "reviews/2025/01/a.jpg", res.Key)
	assert.Equal(t, "/uploads/reviews/2025/01/a.jpg", res.URL)
	assert.Equal(t, 1, s.Len())

	data, contentType, ok := s.Object(res.Key)
	require.True(t, ok)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, "image/jpeg", contentType)

	url, err := s.GetURL(ctx, res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.URL, url)

	require.NoError(t, s.Delete(ctx, res.Key))
	assert.Equal(t, 0, s.Len())

	_, err = s.GetURL(ctx, res.Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, res.Key), storage.ErrNotFound)
}

func TestStorage_RejectsTraversal(t *testing.T) {
	s := New("/uploads")
	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "../escape.jpg",
		Data: strings.NewReader("x"),
	})
	assert.Error(t, err)
}
