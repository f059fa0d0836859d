package config

import (
	"strings"

	"github.com/kamusis/imgsearch/internal/apperr"
)

// Environment variables holding provider credentials.
const (
	OpenAIKeyEnv     = "OPENAI_API_KEY"
	OpenAIBaseURLEnv = "OPENAI_BASE_URL"
	UnsplashKeyEnv   = "UNSPLASH_ACCESS_KEY"
)

// UnsplashKeySteps lists how to obtain an Unsplash access key.
const UnsplashKeySteps = "1. Sign in at https://unsplash.com/developers\n" +
	"2. Open https://unsplash.com/oauth/applications and create a New Application\n" +
	"3. Accept the terms and copy the \"Access Key\"\n" +
	"4. Run: export " + UnsplashKeyEnv + "=<access_key>  (or add it to ~/.imgsearch/.env)"

// RequireOpenAIKey resolves the description/embedding credential or returns
// a *apperr.ConfigError explaining how to set it.
func RequireOpenAIKey() (string, error) {
	return require(OpenAIKeyEnv,
		"export "+OpenAIKeyEnv+"=<key>  (or add it to ~/.imgsearch/.env)\n"+
			"Create a key at https://platform.openai.com/api-keys")
}

// RequireUnsplashKey resolves the photo-search credential or returns a
// *apperr.ConfigError with the steps to obtain one.
func RequireUnsplashKey() (string, error) {
	return require(UnsplashKeyEnv, UnsplashKeySteps)
}

func require(key, remedy string) (string, error) {
	v, err := GetConfigValue(key)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &apperr.ConfigError{Key: key, Problem: "not configured", Remedy: remedy}
	}
	return v, nil
}

// OpenAIBaseURL returns OPENAI_BASE_URL when set, otherwise fallback.
func OpenAIBaseURL(fallback string) string {
	if v, err := GetConfigValue(OpenAIBaseURLEnv); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// KeyPreview masks a credential for display, keeping the first 8 and last 4
// characters of long keys.
func KeyPreview(key string) string {
	if len(key) > 12 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	return "***"
}
