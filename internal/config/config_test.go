package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8015, cfg.HTTPPort)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, MediaLocal, cfg.MediaDriver)
	assert.Equal(t, RewardsNone, cfg.RewardsTransport)
	assert.False(t, cfg.RedisEnabled)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, 3*time.Second, cfg.PurchaseVerifyTimeout())
	assert.Equal(t, "http://localhost:8015/uploads", cfg.MediaPublicURL())
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_QuotaLocation(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	at := time.Date(2025, 6, 15, 0, 0, 0, 0, cfg.QuotaLocation())
	_, offset := at.Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("MEDIA_DRIVER", "s3")
	t.Setenv("MEDIA_S3_BUCKET", "reviews-media")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REWARDS_TRANSPORT", "kafka")
	t.Setenv("MEDIA_BASE_URL", "https://cdn.example.com")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "https://cdn.example.com", cfg.MediaPublicURL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"http port", map[string]string{"REVIEW_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"store driver", map[string]string{"STORE_DRIVER": "sqlite"}, "STORE_DRIVER must be one of"},
		{"media driver", map[string]string{"MEDIA_DRIVER": "ftp"}, "MEDIA_DRIVER must be one of"},
		{"s3 bucket", map[string]string{"MEDIA_DRIVER": "s3"}, "MEDIA_S3_BUCKET is required"},
		{"rewards transport", map[string]string{"REWARDS_TRANSPORT": "smtp"}, "REWARDS_TRANSPORT must be one of"},
		{"rewards url", map[string]string{"REWARDS_TRANSPORT": "http", "REWARDS_URL": "loyalty"}, "REWARDS_URL"},
		{"rewards kafka without kafka", map[string]string{"REWARDS_TRANSPORT": "kafka"}, "requires KAFKA_ENABLED"},
		{"rewards attempts", map[string]string{"REWARDS_MAX_ATTEMPTS": "0"}, "REWARDS_MAX_ATTEMPTS"},
		{"verify url", map[string]string{"PURCHASE_VERIFY_URL": "ftp://orders"}, "PURCHASE_VERIFY_URL"},
		{"verify timeout", map[string]string{"PURCHASE_VERIFY_TIMEOUT_MS": "-1"}, "PURCHASE_VERIFY_TIMEOUT_MS"},
		{"rate limit burst", map[string]string{"RATE_LIMIT_BURST": "0"}, "RATE_LIMIT_BURST"},
		{"timezone", map[string]string{"QUOTA_TIMEZONE": "Mars/Olympus"}, "invalid QUOTA_TIMEZONE"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2.0"}, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RateLimitDisabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Zero(t, cfg.RateLimitRPS)
}
