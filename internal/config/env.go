package config

import (
	"os"
	"strconv"
)

// FromEnv overlays ZAQAR_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("ZAQAR_AUTO_CREATE_QUEUES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoCreateQueues = b
		}
	}
	if v := os.Getenv("ZAQAR_QUEUE_NAME_REGEX"); v != "" {
		cfg.QueueNameRegex = v
	}
	envInt("ZAQAR_QUEUE_NAME_MAX_LEN", &cfg.QueueNameMaxLen)
	envInt("ZAQAR_MAX_QUEUES_PER_PAGE", &cfg.Limits.MaxQueuesPerPage)
	envInt("ZAQAR_MAX_MESSAGES_PER_PAGE", &cfg.Limits.MaxMessagesPerPage)
	envInt("ZAQAR_MAX_QUEUE_METADATA_BYTES", &cfg.Limits.MaxQueueMetadataBytes)
	envInt("ZAQAR_MAX_MESSAGE_SIZE_BYTES", &cfg.Limits.MaxMessageSizeBytes)
	envInt("ZAQAR_MAX_MESSAGES_PER_POST", &cfg.Limits.MaxMessagesPerPost)
	envInt("ZAQAR_MAX_MESSAGES_PER_CLAIM", &cfg.Limits.MaxMessagesPerClaim)
	envInt("ZAQAR_MAX_POP_LIMIT", &cfg.Limits.MaxPopLimit)
	envInt("ZAQAR_DEFAULT_MESSAGE_TTL", &cfg.Limits.DefaultMessageTTL)
	envInt("ZAQAR_MIN_MESSAGE_TTL", &cfg.Limits.MinMessageTTL)
	envInt("ZAQAR_MAX_MESSAGE_TTL", &cfg.Limits.MaxMessageTTL)
	envInt("ZAQAR_MIN_CLAIM_TTL", &cfg.Limits.MinClaimTTL)
	envInt("ZAQAR_MAX_CLAIM_TTL", &cfg.Limits.MaxClaimTTL)
	envInt("ZAQAR_MAX_CLAIM_GRACE", &cfg.Limits.MaxClaimGrace)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
