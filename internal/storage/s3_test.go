package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		useSSL   bool
		endpoint string
		secure   bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"s3.example.com", true, "s3.example.com", true},
		{"//s3.example.com", false, "s3.example.com", false},
	}

	for _, tt := range tests {
		endpoint, secure := normalizeEndpoint(tt.raw, tt.useSSL)
		assert.Equal(t, tt.endpoint, endpoint, tt.raw)
		assert.Equal(t, tt.secure, secure, tt.raw)
	}
}

func TestNewS3Client(t *testing.T) {
	t.Run("requires bucket", func(t *testing.T) {
		_, err := NewS3Client(config.StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"})
		assert.Error(t, err)
	})

	t.Run("builds client without network access", func(t *testing.T) {
		client, err := NewS3Client(config.StorageConfig{
			Endpoint:  "http://minio:9000",
			AccessKey: "a",
			SecretKey: "b",
			Bucket:    "sales",
		})
		require.NoError(t, err)
		assert.Equal(t, "sales", client.bucket)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("reports/2025-01.json"))
	assert.Equal(t, "text/csv", contentType("sales/jan.CSV"))
	assert.Equal(t, "application/octet-stream", contentType("sales/jan.xlsx"))
}
