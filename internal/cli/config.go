package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hu3mann/chatripperxx/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ChatRipper configuration",
	Long: `Manage ChatRipper configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CHATRIPPER_*)
3. Config file (~/.chatripper/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration including all sources (defaults, config file, env vars, flags).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (CHATRIPPER_*, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
		fmt.Println("  3. Config file (~/.chatripper/config.yaml)")
		fmt.Println("  4. Defaults")
		fmt.Println()

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.chatripper/config.yaml with all available options documented.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := home + "/.chatripper"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'chatripper config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		printf := func(format string, a ...interface{}) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(f, format, a...)
		}

		printf("# ChatRipper Configuration File\n")
		printf("#\n")
		printf("# Configuration hierarchy (highest to lowest priority):\n")
		printf("#   1. CLI flags\n")
		printf("#   2. Environment variables (CHATRIPPER_*)\n")
		printf("#   3. This config file\n")
		printf("#   4. Built-in defaults\n\n")

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		if _, wErr := f.Write(yamlData); wErr != nil {
			return fmt.Errorf("error writing config: %w", wErr)
		}

		printf("\n# API keys (use environment variables, they are never read from this file):\n")
		printf("#   export OPENAI_API_KEY=sk-...\n")
		printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
		printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

		if err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  chatripper config show\n")
		fmt.Printf("\n")

		return nil
	},
}

// loadConfig merges the config file over defaults, applies CHATRIPPER_*
// environment overrides on top, and validates the result
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps CHATRIPPER_* variables onto the config. Each name
// mirrors the YAML path with dots replaced by underscores. Scalar settings
// only; structured settings like hard-fail classes come from the file.
func applyEnvOverrides(cfg *model.Config) error {
	var err error

	envString := func(name string, dst *string) {
		if v, ok := os.LookupEnv("CHATRIPPER_" + name); ok {
			*dst = v
		}
	}
	envBool := func(name string, dst *bool) {
		v, ok := os.LookupEnv("CHATRIPPER_" + name)
		if !ok || err != nil {
			return
		}
		b, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			err = fmt.Errorf("CHATRIPPER_%s: %w", name, parseErr)
			return
		}
		*dst = b
	}
	envFloat := func(name string, dst *float64) {
		v, ok := os.LookupEnv("CHATRIPPER_" + name)
		if !ok || err != nil {
			return
		}
		f, parseErr := strconv.ParseFloat(v, 64)
		if parseErr != nil {
			err = fmt.Errorf("CHATRIPPER_%s: %w", name, parseErr)
			return
		}
		*dst = f
	}
	envInt := func(name string, dst *int) {
		v, ok := os.LookupEnv("CHATRIPPER_" + name)
		if !ok || err != nil {
			return
		}
		n, parseErr := strconv.Atoi(v)
		if parseErr != nil {
			err = fmt.Errorf("CHATRIPPER_%s: %w", name, parseErr)
			return
		}
		*dst = n
	}

	envBool("POLICY_STRICT", &cfg.Policy.Strict)
	envFloat("POLICY_COVERAGE_THRESHOLD", &cfg.Policy.CoverageThreshold)
	envFloat("PRIVACY_EPSILON", &cfg.Privacy.Epsilon)
	envFloat("PRIVACY_MAX_EPSILON", &cfg.Privacy.MaxEpsilon)
	envBool("REMOTE_AUTHORIZED", &cfg.Remote.Authorized)
	envFloat("REMOTE_RATE_LIMIT", &cfg.Remote.RateLimit)
	envString("LLM_LOCAL_MODEL", &cfg.LLM.Local.Model)
	envString("LLM_LOCAL_BASE_URL", &cfg.LLM.Local.BaseURL)
	envString("LLM_REMOTE_PROVIDER", &cfg.LLM.Remote.Provider)
	envString("LLM_REMOTE_MODEL", &cfg.LLM.Remote.Model)
	envBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	envInt("CONCURRENCY_LOCAL_WORKERS", &cfg.Concurrency.LocalWorkers)
	envInt("CONCURRENCY_REMOTE_WORKERS", &cfg.Concurrency.RemoteWorkers)
	envString("SALT_PATH", &cfg.Salt.Path)
	envBool("OUTPUT_VERBOSE", &cfg.Output.Verbose)

	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
