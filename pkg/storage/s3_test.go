package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCVKey(t *testing.T) {
	assert.Equal(t, "cvs/u1/c1.pdf", CVKey("u1", "c1"))
	assert.Equal(t, "cvs/u1/c1.pdf", CVKey("u1/", "c1"))
}

func TestPresignExpire(t *testing.T) {
	assert.Equal(t, 15*time.Minute, (&S3{}).PresignExpire())
	assert.Equal(t, 5*time.Minute, (&S3{cfg: S3Config{PresignExpireMinutes: 5}}).PresignExpire())
}
