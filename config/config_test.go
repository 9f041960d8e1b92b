package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.wyat.me/object-store/object"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"), true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f, err := cfg.Format()
	if err != nil {
		t.Fatal(err)
	}
	if f != object.DefaultFormat {
		t.Errorf("got format %+v", f)
	}
	if cfg.Core.MetadataDir != ".git" || cfg.Storage.Backend != BackendLoose || cfg.Core.MaxDepth != DefaultMaxDepth {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "config.toml"), false); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[core]
hash = "blake3"
compression = "zstd"
max_depth = 12

[user]
name = "Ada"
email = "ada@example.com"

[storage]
backend = "sqlite"
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f, _ := cfg.Format()
	if f.Hash != object.BLAKE3 || f.Codec != object.Zstd {
		t.Errorf("got format %+v", f)
	}
	if cfg.Core.MaxDepth != 12 {
		t.Errorf("max_depth: got %d", cfg.Core.MaxDepth)
	}
	if cfg.Storage.Path != "objects.db" {
		t.Errorf("sqlite default path: got %q", cfg.Storage.Path)
	}
	if got := cfg.Identity(); got != "Ada <ada@example.com>" {
		t.Errorf("identity: got %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
core:
  hash: sha256
storage:
  backend: badger
log:
  level: debug
  format: json
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Core.Hash != "sha256" || cfg.Storage.Backend != BackendBadger || cfg.Storage.Path != "badger" {
		t.Errorf("got %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log: got %+v", cfg.Log)
	}
	if cfg.Core.Compression != "zlib" {
		t.Errorf("compression default lost: %q", cfg.Core.Compression)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"hash", "[core]\nhash = \"md5\"\n"},
		{"codec", "[core]\ncompression = \"lz4\"\n"},
		{"backend", "[storage]\nbackend = \"floppy\"\n"},
		{"metadata dir", "[core]\nmetadata_dir = \"a/b\"\n"},
		{"minio without endpoint", "[storage]\nbackend = \"minio\"\n"},
		{"unknown key", "[core]\nhsah = \"sha1\"\n"},
		{"syntax", "[core\n"},
	}
	t.Setenv("MINIO_ENDPOINT", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "config.toml", tt.content), false); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "minio.local:9000")
	t.Setenv("MINIO_BUCKET", "objects")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("PORT", "9999")

	path := writeFile(t, "config.toml", "[storage]\nbackend = \"minio\"\n")
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	m := cfg.Storage.Minio
	if m.Endpoint != "minio.local:9000" || m.Bucket != "objects" || m.AccessKey != "key" || m.SecretKey != "secret" {
		t.Errorf("got %+v", m)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr: got %q", cfg.Server.Addr)
	}
}

func TestWriteRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.User.Name = "Ada"
	cfg.Core.Hash = "sha256"
	if err := cfg.Write(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.User.Name != "Ada" || got.Core.Hash != "sha256" {
		t.Errorf("got %+v", got)
	}
}

func TestReadFileIgnoresEnvironment(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "minio.local:9000")
	t.Setenv("MINIO_ACCESS_KEY", "env-key")
	t.Setenv("MINIO_SECRET_KEY", "env-secret")
	t.Setenv("MINIO_BUCKET", "env-bucket")

	path := writeFile(t, "config.toml", "[storage]\nbackend = \"minio\"\n\n[storage.minio]\nbucket = \"objects\"\n")
	cfg, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	m := cfg.Storage.Minio
	if m.AccessKey != "" || m.SecretKey != "" || m.Endpoint != "" {
		t.Errorf("environment leaked into file config: %+v", m)
	}
	if m.Bucket != "objects" {
		t.Errorf("bucket: got %q", m.Bucket)
	}
	if got := cfg.WithEnv().Storage.Minio; got.SecretKey != "env-secret" || got.Bucket != "env-bucket" {
		t.Errorf("WithEnv: got %+v", got)
	}
	if cfg.Storage.Minio.SecretKey != "" {
		t.Error("WithEnv modified its receiver")
	}

	out := filepath.Join(t.TempDir(), "written.toml")
	if err := cfg.Write(out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"env-key", "env-secret", "minio.local"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("written config contains %q:\n%s", secret, data)
		}
	}
}

func TestLoadRepoCustomMetadataDir(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"docs", ".meta"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// a config.toml that does not name its own directory is not a repository
	if err := os.WriteFile(filepath.Join(root, "docs", FileName), []byte("[core]\nhash = \"sha256\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".meta", FileName), []byte("[core]\nmetadata_dir = \".meta\"\nhash = \"blake3\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRepo(root)
	if err != nil {
		t.Fatalf("LoadRepo failed: %v", err)
	}
	if cfg.Core.MetadataDir != ".meta" || cfg.Core.Hash != "blake3" {
		t.Errorf("got core %+v", cfg.Core)
	}
}

func TestLoadRepoPrefersDefaultDir(t *testing.T) {
	root := t.TempDir()
	for dir, content := range map[string]string{
		DefaultMetadataDir: "[core]\nhash = \"sha256\"\n",
		".meta":            "[core]\nmetadata_dir = \".meta\"\nhash = \"blake3\"\n",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, dir, FileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := LoadRepo(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Core.MetadataDir != DefaultMetadataDir || cfg.Core.Hash != "sha256" {
		t.Errorf("got core %+v", cfg.Core)
	}
}
