package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/imgdrop/internal/core"
	"github.com/jo-hoe/imgdrop/internal/database"
)

type commandContext struct {
	configFlag   *string
	endpointFlag *string

	configOnce sync.Once
	config     *core.ServiceConfig
	configErr  error
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var endpointFlag string
	ctx := &commandContext{configFlag: &configFlag, endpointFlag: &endpointFlag}

	rootCmd := &cobra.Command{
		Use:           "imgdrop",
		Short:         "Upload images and keep a gallery of their links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Upload endpoint, overrides the configuration")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newGalleryCommand(ctx))
	rootCmd.AddCommand(newCopyCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

// configPath returns the configured path and whether it was asked for
// explicitly.
func (c *commandContext) configPath() (string, bool) {
	if path := strings.TrimSpace(*c.configFlag); path != "" {
		return path, true
	}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path, true
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "config.yaml", false
	}
	return filepath.Join(cwd, "config.yaml"), false
}

func (c *commandContext) ensureConfig() (*core.ServiceConfig, error) {
	c.configOnce.Do(func() {
		path, explicit := c.configPath()
		cfg, err := core.LoadConfig(path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, os.ErrNotExist):
			cfg, err = defaultCLIConfig()
			if err != nil {
				c.configErr = err
				return
			}
		default:
			c.configErr = err
			return
		}

		if endpoint := strings.TrimSpace(*c.endpointFlag); endpoint != "" {
			cfg.Endpoint = endpoint
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// defaultCLIConfig keeps the gallery in the user's config directory so it
// survives between invocations.
func defaultCLIConfig() (*core.ServiceConfig, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	cfg := core.DefaultConfig()
	cfg.Database = core.Database{
		Type:             database.TypeFile,
		ConnectionString: filepath.Join(dir, "imgdrop", "gallery"),
	}
	return cfg, nil
}

func (c *commandContext) withService(ctx context.Context, fn func(*core.CoreService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	service, err := core.NewCoreService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = service.Close()
	}()
	return fn(service)
}
