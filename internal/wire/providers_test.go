package wire

import (
	"context"
	"testing"
	"time"

	"screenplay-wizard/internal/config"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/infrastructure/backend"
	"screenplay-wizard/internal/infrastructure/persistence/memory"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = "http://localhost:3000"
	cfg.Backend.Username = "guest"
	cfg.Generation.DefaultModel = "m1"
	cfg.Generation.UnitCosts = config.UnitCostsConfig{Structure: 5, PlotPoints: 3, Scenes: 2, Dialogue: 1}
	cfg.Generation.AutosaveDebounce = time.Second
	cfg.Mirror.Driver = "memory"
	cfg.Mirror.TTL = time.Hour
	return cfg
}

func TestProvideWizardConfigMapsUnitCosts(t *testing.T) {
	wc := ProvideWizardConfig(testConfig())
	if wc.Username != "guest" || wc.DefaultModel != "m1" {
		t.Fatalf("unexpected config: %+v", wc)
	}
	if wc.UnitCosts[entity.LevelStructure] != 5 || wc.UnitCosts[entity.LevelDialogue] != 1 {
		t.Fatalf("unexpected unit costs: %v", wc.UnitCosts)
	}
}

func TestProvideStorageDefaults(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	pg, cleanup, err := ProvidePostgresClient(ctx, cfg)
	if err != nil || pg != nil {
		t.Fatalf("expected no postgres client for http driver, got %v %v", pg, err)
	}
	cleanup()

	rc, cleanupRedis, err := ProvideRedisClient(cfg)
	if err != nil || rc != nil {
		t.Fatalf("expected no redis client for memory mirror, got %v %v", rc, err)
	}
	cleanupRedis()

	if _, ok := ProvideMirror(cfg, nil).(*memory.Mirror); !ok {
		t.Fatalf("expected memory mirror")
	}

	client, err := ProvideBackendClient(cfg)
	if err != nil {
		t.Fatalf("ProvideBackendClient: %v", err)
	}
	store, err := ProvideProjectStore(ctx, cfg, client, nil)
	if err != nil {
		t.Fatalf("ProvideProjectStore: %v", err)
	}
	if _, ok := store.(*backend.ProjectClient); !ok {
		t.Fatalf("expected backend project client, got %T", store)
	}

	cfg.Persistence.Driver = "sqlite"
	if _, err := ProvideProjectStore(ctx, cfg, client, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestProvideJournalNeedsRedis(t *testing.T) {
	cfg := testConfig()
	hub := ProvideEventHub(cfg)
	if j := ProvideJournal(context.Background(), cfg, hub, nil); j != nil {
		t.Fatalf("expected nil journal when disabled")
	}
	cfg.Events.Journal.Enabled = true
	if j := ProvideJournal(context.Background(), cfg, hub, nil); j != nil {
		t.Fatalf("expected nil journal without redis")
	}
}
