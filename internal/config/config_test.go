package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "MAX_COMMENT_DEPTH", "THREAD_REPLY_CAP", "THREAD_CACHE_TTL", "THREAD_CACHE_SIZE"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != "postgres" {
		t.Errorf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.MaxCommentDepth != 10 {
		t.Errorf("MaxCommentDepth = %d, want 10", cfg.MaxCommentDepth)
	}
	if cfg.ThreadReplyCap != 100 {
		t.Errorf("ThreadReplyCap = %d, want 100", cfg.ThreadReplyCap)
	}
	if cfg.ThreadCacheSize != 500 {
		t.Errorf("ThreadCacheSize = %d, want 500", cfg.ThreadCacheSize)
	}
	if cfg.ThreadCacheTTL != 30*time.Second {
		t.Errorf("ThreadCacheTTL = %v, want 30s", cfg.ThreadCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_COMMENT_DEPTH", "3")
	t.Setenv("THREAD_CACHE_TTL", "0s")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("THREAD_REPLY_CAP", "not-a-number")

	cfg := Load()
	if cfg.MaxCommentDepth != 3 {
		t.Errorf("MaxCommentDepth = %d, want 3", cfg.MaxCommentDepth)
	}
	if cfg.ThreadCacheTTL != 0 {
		t.Errorf("ThreadCacheTTL = %v, want 0", cfg.ThreadCacheTTL)
	}
	if cfg.AutoMigrate {
		t.Error("AutoMigrate should be false")
	}
	if cfg.ThreadReplyCap != 100 {
		t.Errorf("invalid THREAD_REPLY_CAP should fall back to 100, got %d", cfg.ThreadReplyCap)
	}
}
