package types

// Config represents the toolscout configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Model used for the chat agent, "provider/model"
	// (e.g. "openai/gpt-4o-mini" or "anthropic/claude-3-5-haiku-20241022").
	Model string `json:"model,omitempty"`

	// RecommenderModel is the model used by the ranking oracle. Falls back
	// to Model when empty.
	RecommenderModel string `json:"recommenderModel,omitempty"`

	// EmbeddingModel is the embedding model for the similarity index.
	EmbeddingModel string `json:"embeddingModel,omitempty"`

	// CatalogPath points at a YAML file with additional server entries.
	CatalogPath string `json:"catalogPath,omitempty"`

	// IndexPath is the SQLite file backing the similarity index.
	IndexPath string `json:"indexPath,omitempty"`

	// ConnectTimeoutSeconds bounds a single connection attempt.
	ConnectTimeoutSeconds int `json:"connectTimeoutSeconds,omitempty"`

	// CacheTTLHours is the catalog snapshot lifetime.
	CacheTTLHours int `json:"cacheTTLHours,omitempty"`

	// NPMDiscovery enables merging npm registry lookups into the catalog.
	NPMDiscovery bool `json:"npmDiscovery,omitempty"`

	// Provider configs keyed by provider ID ("openai", "anthropic").
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// LogLevel (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
}

// ProviderConfig holds configuration for a specific LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
	Disable bool   `json:"disable,omitempty"`
}
