package domain

// Media field names on a multipart submission.
const (
	MediaFieldImages = "images"
	MediaFieldVideo  = "video"
)

// MaxMediaFileSize is the largest accepted upload (50 MB).
const MaxMediaFileSize int64 = 50 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/webm":      true,
}

// IsAllowedImageType checks whether the content type is an accepted image.
func IsAllowedImageType(contentType string) bool {
	return allowedImageTypes[contentType]
}

// IsAllowedVideoType checks whether the content type is an accepted video.
func IsAllowedVideoType(contentType string) bool {
	return allowedVideoTypes[contentType]
}
