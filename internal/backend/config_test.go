package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `port: 9090
publicBaseURL: "https://upload.example.com"
storage:
  type: local
  directory: /tmp/imgdrop
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.PublicBaseURL != "https://upload.example.com" {
		t.Errorf("unexpected publicBaseURL %q", config.PublicBaseURL)
	}
	if config.Storage.Type != StorageLocal || config.Storage.Directory != "/tmp/imgdrop" {
		t.Errorf("unexpected storage %+v", config.Storage)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "storage: {}\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, config.Port)
	}
	if config.Storage.Type != StorageLocal || config.Storage.Directory != DefaultDirectory {
		t.Errorf("unexpected storage defaults %+v", config.Storage)
	}
}

func TestLoadConfig_MinioCredentialsFromEnv(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	config, err := LoadConfig(writeConfig(t, `storage:
  type: minio
  endpoint: minio:9000
  bucket: uploads
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Storage.AccessKey != "access" || config.Storage.SecretKey != "secret" {
		t.Errorf("expected credentials from environment, got %+v", config.Storage)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "unknown storage", content: "storage:\n  type: ftp\n", wantMsg: "invalid configuration"},
		{name: "minio without bucket", content: "storage:\n  type: minio\n  endpoint: minio:9000\n", wantMsg: "endpoint and bucket"},
		{name: "minio without credentials", content: "storage:\n  type: minio\n  endpoint: minio:9000\n  bucket: b\n", wantMsg: "credentials"},
		{name: "bad public url", content: "publicBaseURL: nope\n", wantMsg: "invalid configuration"},
		{name: "port out of range", content: "port: 70000\n", wantMsg: "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}
