package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv(EnvListenAddr, ":9090")
	t.Setenv(EnvVerbose, "1")
	t.Setenv(EnvAccessTokenTTL, "15m")
	t.Setenv(EnvSecureCookies, "maybe")
	t.Setenv("MEALREVIEW_TEST_INT", "42")

	assert.Equal(t, ":9090", GetEnv(EnvListenAddr, ":8080"))
	assert.Equal(t, "fallback", GetEnv("MEALREVIEW_TEST_UNSET", "fallback"))
	assert.True(t, GetBool(EnvVerbose, false))
	assert.True(t, GetBool(EnvSecureCookies, true), "unparsable values fall back")
	assert.Equal(t, 15*time.Minute, GetDuration(EnvAccessTokenTTL, time.Hour))
	assert.Equal(t, 720*time.Hour, GetDuration(EnvSessionDuration, 720*time.Hour))
	assert.Equal(t, 42, GetInt("MEALREVIEW_TEST_INT", 0))
	assert.Equal(t, 7, GetInt(EnvReviewsDBPath, 7))
}
