package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kamusis/imgsearch/internal/apperr"
)

// isolate points HOME at a temp dir and runs the test from an empty working
// directory so neither ~/.imgsearch/.env nor ./.env leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeUserDotEnv(t *testing.T, home, body string) string {
	t.Helper()
	dir := filepath.Join(home, ".imgsearch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDotEnv_NotExist(t *testing.T) {
	isolate(t)

	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	home := isolate(t)
	writeUserDotEnv(t, home, "# comment\nA=1\nexport B=\"two\"\nC='three'\nbroken\n")

	m, err := LoadDotEnv()
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if m["A"] != "1" || m["B"] != "two" || m["C"] != "three" {
		t.Fatalf("unexpected map: %v", m)
	}
	if _, ok := m["broken"]; ok {
		t.Fatalf("line without '=' should be ignored: %v", m)
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	home := isolate(t)
	writeUserDotEnv(t, home, "K=fromuser\nONLYUSER=user\n")
	if err := os.WriteFile(".env", []byte("K=fromlocal\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v, err := GetConfigValue("K")
	if err != nil {
		t.Fatalf("GetConfigValue: %v", err)
	}
	if v != "fromlocal" {
		t.Fatalf("expected ./.env to win over ~/.imgsearch/.env, got %q", v)
	}

	t.Setenv("K", "fromenv")
	if v, _ := GetConfigValue("K"); v != "fromenv" {
		t.Fatalf("expected env override, got %q", v)
	}

	if v, _ := GetConfigValue("ONLYUSER"); v != "user" {
		t.Fatalf("expected fallback to user dotenv, got %q", v)
	}
}

func TestEnsureDotEnvTemplate_DoesNotOverwrite(t *testing.T) {
	home := isolate(t)
	p := writeUserDotEnv(t, home, "OPENAI_API_KEY=keep\n")

	created, err := EnsureDotEnvTemplate()
	if err != nil {
		t.Fatalf("EnsureDotEnvTemplate: %v", err)
	}
	if created {
		t.Fatalf("expected existing file to be kept")
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "OPENAI_API_KEY=keep\n" {
		t.Fatalf("template overwrote existing file: %q", string(b))
	}
}

func TestEnsureDotEnvTemplate_CreatesWhenMissing(t *testing.T) {
	home := isolate(t)

	created, err := EnsureDotEnvTemplate()
	if err != nil {
		t.Fatalf("EnsureDotEnvTemplate: %v", err)
	}
	if !created {
		t.Fatalf("expected template to be created")
	}
	m, err := ParseDotEnvFile(filepath.Join(home, ".imgsearch", ".env"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m[OpenAIKeyEnv]; !ok {
		t.Fatalf("template missing %s: %v", OpenAIKeyEnv, m)
	}
	if _, ok := m[UnsplashKeyEnv]; !ok {
		t.Fatalf("template missing %s: %v", UnsplashKeyEnv, m)
	}
}

func TestRequireOpenAIKey_MissingIsConfigError(t *testing.T) {
	isolate(t)
	t.Setenv(OpenAIKeyEnv, "")

	_, err := RequireOpenAIKey()
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Key != OpenAIKeyEnv || ce.Remedy == "" {
		t.Fatalf("unexpected ConfigError: %+v", ce)
	}
}

func TestRequireUnsplashKey_FromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(UnsplashKeyEnv, "  abc  ")

	v, err := RequireUnsplashKey()
	if err != nil {
		t.Fatalf("RequireUnsplashKey: %v", err)
	}
	if v != "abc" {
		t.Fatalf("expected trimmed key, got %q", v)
	}
}

func TestKeyPreview(t *testing.T) {
	if got := KeyPreview("abcdefgh12345678wxyz"); got != "abcdefgh...wxyz" {
		t.Fatalf("unexpected preview: %q", got)
	}
	if got := KeyPreview("short"); got != "***" {
		t.Fatalf("short keys must be fully masked, got %q", got)
	}
}
