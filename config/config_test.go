package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRY_HOURS", "")
	t.Setenv("CLOUDINARY_UPLOAD_TIMEOUT_SECONDS", "")
	t.Setenv("BOOKING_CONFLICT_FAIL_OPEN", "")

	Load()

	assert.Equal(t, "8080", AppConfig.Server.Port)
	assert.Equal(t, 24, AppConfig.JWT.ExpiryHours)
	assert.Equal(t, 30*time.Second, AppConfig.Cloudinary.UploadTimeout)
	assert.True(t, AppConfig.Booking.ConflictFailOpen)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("CLOUDINARY_UPLOAD_TIMEOUT_SECONDS", "5")
	t.Setenv("BOOKING_CONFLICT_FAIL_OPEN", "false")

	Load()

	assert.Equal(t, "9000", AppConfig.Server.Port)
	assert.Equal(t, 2, AppConfig.JWT.ExpiryHours)
	assert.Equal(t, 5*time.Second, AppConfig.Cloudinary.UploadTimeout)
	assert.False(t, AppConfig.Booking.ConflictFailOpen)
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")

	Load()

	assert.Equal(t, 24, AppConfig.JWT.ExpiryHours)
}
