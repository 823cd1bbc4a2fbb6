package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.AutoCreateQueues {
		t.Fatalf("default auto create should be true")
	}
	if cfg.Limits.DefaultMessageTTL != 300 {
		t.Fatalf("default message ttl")
	}
	if cfg.Limits.MaxMessagesPerPage != 20 {
		t.Fatalf("messages per page default")
	}
	if cfg.QueueNameMaxLen != 64 {
		t.Fatalf("queue name max len default")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "zaqar.json")
	data := []byte(`{"autoCreateQueues":false,"queueNameMaxLen":32,"limits":{"maxMessagesPerPage":50,"defaultMessageTtlSeconds":120}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AutoCreateQueues {
		t.Fatalf("expected false")
	}
	if cfg.QueueNameMaxLen != 32 {
		t.Fatalf("expected 32")
	}
	if cfg.Limits.MaxMessagesPerPage != 50 {
		t.Fatalf("expected 50")
	}
	if cfg.Limits.DefaultMessageTTL != 120 {
		t.Fatalf("expected 120")
	}
	// untouched fields keep defaults
	if cfg.Limits.MaxMessageSizeBytes != 256<<10 {
		t.Fatalf("expected default message size")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Limits.MaxQueuesPerPage != Default().Limits.MaxQueuesPerPage {
		t.Fatalf("expected defaults")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("ZAQAR_AUTO_CREATE_QUEUES", "false")
	os.Setenv("ZAQAR_MAX_MESSAGES_PER_PAGE", "7")
	os.Setenv("ZAQAR_DEFAULT_MESSAGE_TTL", "600")
	t.Cleanup(func() {
		os.Unsetenv("ZAQAR_AUTO_CREATE_QUEUES")
		os.Unsetenv("ZAQAR_MAX_MESSAGES_PER_PAGE")
		os.Unsetenv("ZAQAR_DEFAULT_MESSAGE_TTL")
	})
	FromEnv(&cfg)
	if cfg.AutoCreateQueues {
		t.Fatalf("env override bool")
	}
	if cfg.Limits.MaxMessagesPerPage != 7 {
		t.Fatalf("env override page limit")
	}
	if cfg.Limits.DefaultMessageTTL != 600 {
		t.Fatalf("env override ttl")
	}
}
