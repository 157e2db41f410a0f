// Package config provides configuration loading and path management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// Defaults applied when no source sets a value.
const (
	DefaultModel          = "openai/gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultConnectTimeout = 30 // seconds
	DefaultCacheTTLHours  = 24
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/toolscout/)
//  2. Project config (toolscout.json[c] in the working directory)
//  3. TOOLSCOUT_CONFIG file
//  4. TOOLSCOUT_CONFIG_CONTENT inline JSON
//  5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "toolscout.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "toolscout.jsonc"), globalPath)

	// 2. Project config
	if directory != "" {
		loadOnce(filepath.Join(directory, "toolscout.json"), directory)
		loadOnce(filepath.Join(directory, "toolscout.jsonc"), directory)
	}

	// 3. TOOLSCOUT_CONFIG file override
	if configPath := os.Getenv("TOOLSCOUT_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 4. TOOLSCOUT_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("TOOLSCOUT_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.RecommenderModel != "" {
		target.RecommenderModel = source.RecommenderModel
	}
	if source.EmbeddingModel != "" {
		target.EmbeddingModel = source.EmbeddingModel
	}
	if source.CatalogPath != "" {
		target.CatalogPath = source.CatalogPath
	}
	if source.IndexPath != "" {
		target.IndexPath = source.IndexPath
	}
	if source.ConnectTimeoutSeconds != 0 {
		target.ConnectTimeoutSeconds = source.ConnectTimeoutSeconds
	}
	if source.CacheTTLHours != 0 {
		target.CacheTTLHours = source.CacheTTLHours
	}
	if source.NPMDiscovery {
		target.NPMDiscovery = true
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}
}

// applyEnvOverrides applies TOOLSCOUT_* environment variables.
func applyEnvOverrides(config *types.Config) {
	if v := os.Getenv("TOOLSCOUT_MODEL"); v != "" {
		config.Model = v
	}
	if v := os.Getenv("TOOLSCOUT_RECOMMENDER_MODEL"); v != "" {
		config.RecommenderModel = v
	}
	if v := os.Getenv("TOOLSCOUT_EMBEDDING_MODEL"); v != "" {
		config.EmbeddingModel = v
	}
	if v := os.Getenv("TOOLSCOUT_CATALOG"); v != "" {
		config.CatalogPath = v
	}
	if v := os.Getenv("TOOLSCOUT_INDEX"); v != "" {
		config.IndexPath = v
	}
	if v := os.Getenv("TOOLSCOUT_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("TOOLSCOUT_CONNECT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ConnectTimeoutSeconds = n
		}
	}
	if v := os.Getenv("TOOLSCOUT_NPM_DISCOVERY"); v != "" {
		config.NPMDiscovery = v == "1" || strings.EqualFold(v, "true")
	}
}

// applyDefaults fills unset fields with defaults.
func applyDefaults(config *types.Config) {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.RecommenderModel == "" {
		config.RecommenderModel = config.Model
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = DefaultEmbeddingModel
	}
	if config.ConnectTimeoutSeconds == 0 {
		config.ConnectTimeoutSeconds = DefaultConnectTimeout
	}
	if config.CacheTTLHours == 0 {
		config.CacheTTLHours = DefaultCacheTTLHours
	}
	if config.IndexPath == "" {
		config.IndexPath = filepath.Join(GetPaths().Data, "index.db")
	}
}
