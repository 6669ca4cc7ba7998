package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", contentTypeFor("degraded/2026/01/02/abc.txt"))
	assert.Equal(t, "application/json", contentTypeFor("x.json"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://minio:9000/raw/degraded/a.txt", objectURL("https", "minio:9000", "raw", "degraded/a.txt"))
	assert.Equal(t, "http://minio/raw/k", objectURL("", "minio", "raw", "k"))
}
