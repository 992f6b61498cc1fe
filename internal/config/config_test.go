package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testOptions struct {
	Config    string
	Host      string `toml:"server.host" env:"HOST"`
	Port      int    `toml:"server.port" env:"PORT"`
	UploadDir string `toml:"uploads.dir" env:"UPLOAD_DIR"`
	Debug     bool   `toml:"debug" env:"DEBUG"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restreamd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, `
debug = true

[server]
host = "0.0.0.0"
port = 9090

[uploads]
dir = "/data/uploads"
`)

	opts := testOptions{Config: path, Host: "127.0.0.1", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", opts.Host)
	}
	if opts.Port != 9090 {
		t.Errorf("port = %d, want 9090", opts.Port)
	}
	if opts.UploadDir != "/data/uploads" {
		t.Errorf("upload dir = %q", opts.UploadDir)
	}
	if !opts.Debug {
		t.Error("debug not set from TOML")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090
`)

	t.Setenv("RESTREAMD_PORT", "7070")
	t.Setenv("RESTREAMD_HOST", "10.0.0.1")

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", opts.Port)
	}
	if opts.Host != "10.0.0.1" {
		t.Errorf("host = %q, want env value", opts.Host)
	}
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	opts := testOptions{Config: "/nonexistent/restreamd.toml", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("missing config file surfaced as error: %v", err)
	}
	if opts.Port != 8080 {
		t.Errorf("port = %d, defaults must survive", opts.Port)
	}
}

func TestMalformedTOMLIsAnError(t *testing.T) {
	path := writeConfig(t, `this is not toml = [`)

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err == nil {
		t.Error("malformed TOML did not surface an error")
	}
}

func TestFlagNameConversion(t *testing.T) {
	cases := map[string]string{
		"Port":      "port",
		"UploadDir": "upload-dir",
		"Host":      "host",
	}
	for field, want := range cases {
		if got := flagName(field); got != want {
			t.Errorf("flagName(%q) = %q, want %q", field, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
streams = "warn"
ffmpeg = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Modules["streams"] != "warn" || cfg.Modules["ffmpeg"] != "error" {
		t.Errorf("module levels = %+v", cfg.Modules)
	}

	fallback := LoadLoggingConfig("/nonexistent.toml")
	if fallback.Level != "info" || fallback.Format != "text" {
		t.Errorf("fallback = %+v", fallback)
	}
}
