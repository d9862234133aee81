package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type initLoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type initLLMConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	RequestTimeout string `yaml:"request_timeout"`
}

type initSlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

type initKBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

type initServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type initFileConfig struct {
	Logging  initLoggingConfig `yaml:"logging"`
	LLM      initLLMConfig     `yaml:"llm"`
	Slack    initSlackConfig   `yaml:"slack"`
	KB       initKBConfig      `yaml:"kb"`
	Server   initServerConfig  `yaml:"server"`
	MaxSteps int               `yaml:"max_steps"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a starter config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = filepath.Clean(dir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			cfg := initFileConfig{
				Logging: initLoggingConfig{Level: "info", Format: "text"},
				LLM: initLLMConfig{
					Provider:       "openai",
					APIKey:         "sk-...",
					Model:          "gpt-4o",
					RequestTimeout: "90s",
				},
				Slack: initSlackConfig{BotToken: "xoxb-...", AppToken: "xapp-..."},
				KB: initKBConfig{
					Enabled:  true,
					Endpoint: "https://kb.example.com/search",
					APIKey:   "",
				},
				Server:   initServerConfig{Bind: "127.0.0.1", Port: 8790},
				MaxSteps: 2,
			}

			body, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, body, 0o644); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
			return nil
		},
	}
}
