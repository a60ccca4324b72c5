// Package env reads MealReview settings from the process environment. Values are
// loaded from .env by the commands before these getters run.
package env

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the raw value of key, or defaultValue when it is unset.
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetInt falls back to defaultValue when key is unset or not an integer.
func GetInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetBool accepts the forms strconv.ParseBool does, e.g. VERBOSE=1 or SECURE_COOKIES=false.
func GetBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDuration parses Go duration strings such as ACCESS_TOKEN_TTL=15m or SESSION_DURATION=720h.
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Server environment variable keys
const (
	EnvListenAddr    = "LISTEN_ADDR"
	EnvAuthDBPath    = "AUTH_DB_PATH"
	EnvReviewsDBPath = "REVIEWS_DB_PATH"
	EnvVerbose       = "VERBOSE"

	// NEIS Open API
	EnvNEISAPIKey  = "NEIS_API_KEY"
	EnvNEISBaseURL = "NEIS_BASE_URL"
)

// Auth-related environment variable keys
const (
	// OAuth Providers
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvGitHubClientID     = "GITHUB_CLIENT_ID"
	EnvGitHubClientSecret = "GITHUB_CLIENT_SECRET"

	// Auth Configuration
	EnvAuthCallbackBaseURL = "AUTH_CALLBACK_BASE_URL"
	EnvJWTSecret           = "JWT_SECRET"
	EnvAccessTokenTTL      = "ACCESS_TOKEN_TTL"
	EnvSessionDuration     = "SESSION_DURATION"
	EnvSecureCookies       = "SECURE_COOKIES"
)

// Client (mealctl) environment variable keys
const (
	EnvAPIURL      = "MEALREVIEW_API_URL"
	EnvSessionFile = "MEALREVIEW_SESSION_FILE"
)

/*
MealReview is a school meal review service: NEIS meal menus, star ratings and written reviews per meal.
MealReview Copyright (C) 2025 MealReview contributors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
