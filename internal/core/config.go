package core

import (
	"fmt"
	"os"

	"github.com/jo-hoe/imgdrop/internal/common"
	"github.com/jo-hoe/imgdrop/internal/database"
	"github.com/jo-hoe/imgdrop/internal/gallery"
	"github.com/jo-hoe/imgdrop/internal/upload"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort     = 8090
	DefaultEndpoint = "http://localhost:8080/upload"
)

type Database struct {
	Type             string `yaml:"type" validate:"omitempty,oneof=memory file sqlite redis postgres"`
	ConnectionString string `yaml:"connectionString"`
}

type ServiceConfig struct {
	// Port of the local session API.
	Port int `yaml:"port" validate:"min=0,max=65535"`
	// Endpoint receives one multipart POST per file.
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// ResponseField names the JSON field of the upload response holding the reference.
	ResponseField        string   `yaml:"responseField"`
	StorageKey           string   `yaml:"storageKey"`
	Database             Database `yaml:"database"`
	PreviewMaxWidth      int      `yaml:"previewMaxWidth" validate:"min=0"`
	MaxConcurrentUploads int      `yaml:"maxConcurrentUploads" validate:"min=0"`
}

func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:          DefaultPort,
		Endpoint:      DefaultEndpoint,
		ResponseField: upload.DefaultReferenceField,
		StorageKey:    gallery.DefaultKey,
		Database: Database{
			Type: database.TypeMemory,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file. Fields the
// file leaves out keep their defaults.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ServiceConfig) Validate() error {
	if err := common.ValidateStruct(c); err != nil {
		return err
	}
	if c.Database.Type != "" && c.Database.Type != database.TypeMemory && c.Database.ConnectionString == "" {
		return fmt.Errorf("invalid configuration: database type %s requires a connectionString", c.Database.Type)
	}
	return nil
}

// applyDefaults restores defaults for values explicitly set to empty.
func (c *ServiceConfig) applyDefaults() {
	if c.ResponseField == "" {
		c.ResponseField = upload.DefaultReferenceField
	}
	if c.StorageKey == "" {
		c.StorageKey = gallery.DefaultKey
	}
	if c.Database.Type == "" {
		c.Database.Type = database.TypeMemory
	}
}
