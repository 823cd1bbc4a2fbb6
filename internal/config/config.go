package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	AutoCreateQueues bool   `json:"autoCreateQueues"`
	QueueNameRegex   string `json:"queueNameRegex"`
	QueueNameMaxLen  int    `json:"queueNameMaxLen"`
	Limits           Limits `json:"limits"`
}

// Limits captures transport-level policy bounds applied before any storage
// call.
type Limits struct {
	MaxQueuesPerPage      int `json:"maxQueuesPerPage"`
	MaxMessagesPerPage    int `json:"maxMessagesPerPage"`
	MaxQueueMetadataBytes int `json:"maxQueueMetadataBytes"`
	MaxMessageSizeBytes   int `json:"maxMessageSizeBytes"`
	MaxMessagesPerPost    int `json:"maxMessagesPerPost"`
	MaxMessagesPerClaim   int `json:"maxMessagesPerClaim"`
	MaxPopLimit           int `json:"maxPopLimit"`
	DefaultMessageTTL     int `json:"defaultMessageTtlSeconds"`
	MinMessageTTL         int `json:"minMessageTtlSeconds"`
	MaxMessageTTL         int `json:"maxMessageTtlSeconds"`
	MinClaimTTL           int `json:"minClaimTtlSeconds"`
	MaxClaimTTL           int `json:"maxClaimTtlSeconds"`
	MaxClaimGrace         int `json:"maxClaimGraceSeconds"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		AutoCreateQueues: true,
		QueueNameRegex:   `^[a-zA-Z0-9_-]+$`,
		QueueNameMaxLen:  64,
		Limits: Limits{
			MaxQueuesPerPage:      20,
			MaxMessagesPerPage:    20,
			MaxQueueMetadataBytes: 64 << 10,  // 64 KiB
			MaxMessageSizeBytes:   256 << 10, // 256 KiB
			MaxMessagesPerPost:    20,
			MaxMessagesPerClaim:   20,
			MaxPopLimit:           20,
			DefaultMessageTTL:     300,
			MinMessageTTL:         60,
			MaxMessageTTL:         1209600, // 14 days
			MinClaimTTL:           60,
			MaxClaimTTL:           43200, // 12 hours
			MaxClaimGrace:         43200,
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
