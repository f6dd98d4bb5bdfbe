package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Generation Generation `yaml:"generation"`
	Storage    Storage    `yaml:"storage"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Sources struct {
	Domains     []string          `yaml:"domains"`
	Reddit      RedditConfig      `yaml:"reddit"`
	ArXiv       ArXivConfig       `yaml:"arxiv"`
	GitHub      GitHubConfig      `yaml:"github"`
	ProductHunt ProductHuntConfig `yaml:"producthunt"`
}

type RedditConfig struct {
	Enabled    bool                `yaml:"enabled"`
	MaxPosts   int                 `yaml:"max_posts"`
	Subreddits map[string][]string `yaml:"subreddits"`
}

type ArXivConfig struct {
	Enabled    bool                `yaml:"enabled"`
	MaxResults int                 `yaml:"max_results"`
	Queries    map[string][]string `yaml:"queries"`
}

type GitHubConfig struct {
	Enabled   bool `yaml:"enabled"`
	PerDomain int  `yaml:"per_domain"`
}

type ProductHuntConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Generation struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	OllamaURL   string  `yaml:"ollama_url"`
	OpenAIModel string  `yaml:"openai_model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Storage struct {
	DataDir     string `yaml:"data_dir"`
	ProblemFile string `yaml:"problem_file"`
	StoryFile   string `yaml:"story_file"`
	SeedFile    string `yaml:"seed_file"`
	CacheFile   string `yaml:"cache_file"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storyforge.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storyforge")
}

// DataDir returns the XDG data directory for storyforge.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storyforge")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storyforge/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storyforge init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			Domains:     []string{"healthcare", "climate"},
			Reddit:      RedditConfig{Enabled: true, MaxPosts: 10},
			ArXiv:       ArXivConfig{Enabled: true, MaxResults: 5},
			GitHub:      GitHubConfig{Enabled: true, PerDomain: 5},
			ProductHunt: ProductHuntConfig{Enabled: true},
		},
		Generation: Generation{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   600,
			Temperature: 0.7,
		},
		Storage: Storage{
			ProblemFile: "problem_database.json",
			StoryFile:   "generated_stories.json",
			SeedFile:    "seed_stories.json",
			CacheFile:   "enriched_stories.json",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// ProblemPath returns the path of the problem database snapshot.
func (c *Config) ProblemPath() string {
	return filepath.Join(c.GetDataDir(), c.Storage.ProblemFile)
}

// StoryPath returns the path of the generated story file.
func (c *Config) StoryPath() string {
	return filepath.Join(c.GetDataDir(), c.Storage.StoryFile)
}

// SeedPath returns the path of the curated seed story file.
func (c *Config) SeedPath() string {
	return filepath.Join(c.GetDataDir(), c.Storage.SeedFile)
}

// CachePath returns the path of the enrichment cache blob.
func (c *Config) CachePath() string {
	return filepath.Join(c.GetDataDir(), c.Storage.CacheFile)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
