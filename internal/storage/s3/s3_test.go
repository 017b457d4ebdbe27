package s3

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trungse123/review-backend/internal/storage"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *mockObjectAPI) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func TestUpload_PutsObject(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media", Region: "ap-southeast-1"})

	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "media" &&
			aws.ToString(in.Key) == "reviews/2025/01/a.jpg" &&
			aws.ToString(in.ContentType) == "image/jpeg" &&
			aws.ToInt64(in.ContentLength) == 3
	})).Return(&s3.PutObjectOutput{}, nil)

	res, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "reviews/2025/01/a.jpg",
		ContentType: "image/jpeg",
		Size:        3,
		Data:        strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.ap-southeast-1.amazonaws.com/reviews/2025/01/a.jpg", res.URL)
	api.AssertExpectations(t)
}

func TestUpload_CDNDomain(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media", Region: "us-east-1", CDNDomain: "cdn.example.com"})
	api.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

	res, err := s.Upload(context.Background(), &storage.UploadInput{Key: "reviews/v.mp4", Data: strings.NewReader("v")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/reviews/v.mp4", res.URL)
}

func TestUpload_Error(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media", Region: "us-east-1"})
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := s.Upload(context.Background(), &storage.UploadInput{Key: "reviews/a.jpg", Data: strings.NewReader("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload to s3")
}

func TestUpload_InvalidKey(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media"})

	_, err := s.Upload(context.Background(), &storage.UploadInput{Key: "../a.jpg", Data: strings.NewReader("a")})
	assert.Error(t, err)
	api.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media"})
	api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "reviews/a.jpg"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	require.NoError(t, s.Delete(context.Background(), "reviews/a.jpg"))
	api.AssertExpectations(t)
}

func TestGetURL_NotFound(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media", Region: "us-east-1"})
	api.On("HeadObject", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})

	_, err := s.GetURL(context.Background(), "reviews/missing.jpg")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetURL_Found(t *testing.T) {
	api := new(mockObjectAPI)
	s := NewWithClient(api, Config{Bucket: "media", Region: "us-east-1"})
	api.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{}, nil)

	url, err := s.GetURL(context.Background(), "reviews/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.us-east-1.amazonaws.com/reviews/a.jpg", url)
}
