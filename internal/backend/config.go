package backend

import (
	"fmt"
	"os"

	"github.com/jo-hoe/imgdrop/internal/common"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort      = 8080
	DefaultDirectory = "uploads"

	StorageLocal = "local"
	StorageMinio = "minio"
)

type StorageConfig struct {
	Type string `yaml:"type" validate:"omitempty,oneof=local minio"`
	// Directory holds uploaded files for local storage.
	Directory string `yaml:"directory"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

type BackendConfig struct {
	Port int `yaml:"port" validate:"min=0,max=65535"`
	// PublicBaseURL prefixes returned links. Empty means the request's own
	// scheme and host.
	PublicBaseURL string        `yaml:"publicBaseURL" validate:"omitempty,url"`
	Storage       StorageConfig `yaml:"storage"`
}

func DefaultBackendConfig() *BackendConfig {
	return &BackendConfig{
		Port: DefaultPort,
		Storage: StorageConfig{
			Type:      StorageLocal,
			Directory: DefaultDirectory,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file. Object storage
// credentials missing from the file are taken from MINIO_ACCESS_KEY and
// MINIO_SECRET_KEY.
func LoadConfig(configPath string) (*BackendConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultBackendConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *BackendConfig) applyDefaults() {
	if c.Storage.Type == "" {
		c.Storage.Type = StorageLocal
	}
	if c.Storage.Type == StorageLocal && c.Storage.Directory == "" {
		c.Storage.Directory = DefaultDirectory
	}
	if c.Storage.AccessKey == "" {
		c.Storage.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	}
	if c.Storage.SecretKey == "" {
		c.Storage.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	}
}

func (c *BackendConfig) Validate() error {
	if err := common.ValidateStruct(c); err != nil {
		return err
	}
	if c.Storage.Type == StorageMinio {
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return fmt.Errorf("invalid configuration: minio storage requires endpoint and bucket")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("invalid configuration: minio storage requires credentials")
		}
	}
	return nil
}
