// Package dedup implements the multi-key deduplication ledger. A webhook
// source may redeliver the same event, and one real-world action can surface
// as several slightly different event shapes, so no single key reliably
// identifies "the same trigger". The ledger derives several independent keys
// per (event, rule) and blocks a dispatch while any of them is inside its
// cooldown window.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"autoreply/config"
	"autoreply/kvstore"
	"autoreply/models"
)

const keyPrefix = "dedup:"

// ledgerEntry is the stored value behind each dedup key
type ledgerEntry struct {
	Timestamp time.Time `json:"timestamp"`
	HitCount  int       `json:"hit_count"`
}

type DedupService struct {
	store kvstore.Store
	cfg   config.DedupConfig
	now   func() time.Time
}

func NewDedupService(store kvstore.Store, cfg config.DedupConfig) *DedupService {
	return NewDedupServiceWithClock(store, cfg, time.Now)
}

func NewDedupServiceWithClock(store kvstore.Store, cfg config.DedupConfig, now func() time.Time) *DedupService {
	if cfg.ShortCooldown <= 0 {
		cfg.ShortCooldown = 60 * time.Second
	}
	if cfg.GlobalCooldown <= 0 {
		cfg.GlobalCooldown = 30 * time.Second
	}
	return &DedupService{store: store, cfg: cfg, now: now}
}

// KeysFor derives the dedup key set for one (event, rule) pair:
// exact trigger id, owner+rule pair, owner+content prefix, and a global
// trigger+actor composite. The content key uses the rule's configured reply
// text because the generated text is not known at gate time.
func KeysFor(event *models.InboundEvent, rule *models.AutomationRule) []string {
	content := rule.ConfiguredReplyText()
	if runes := []rune(content); len(runes) > 50 {
		content = string(runes[:50])
	}

	return []string{
		fmt.Sprintf("comment:%s", event.TriggerID),
		fmt.Sprintf("owner+rule:%s-%s", rule.OwnerID, rule.ID),
		fmt.Sprintf("owner+content:%s-%s", rule.OwnerID, content),
		fmt.Sprintf("global:%s-%s", event.TriggerID, event.ActorID),
	}
}

// cooldownFor maps a key to its tier's cooldown. The global composite tier
// has its own window; all fingerprint tiers share the short cooldown.
func (s *DedupService) cooldownFor(key string) time.Duration {
	if len(key) >= 7 && key[:7] == "global:" {
		return s.cfg.GlobalCooldown
	}
	return s.cfg.ShortCooldown
}

// MayProceed returns false if any key is inside its cooldown window. A
// blocked key's hit count is incremented without extending its window.
//
// Note: MayProceed and MarkDone are a read-then-write pair, not an atomic
// check-and-set. Two workers racing on the same trigger can both pass the
// gate; this design assumes a single worker instance unless the backing
// store provides compare-and-swap.
func (s *DedupService) MayProceed(ctx context.Context, keys []string) (bool, error) {
	if s.cfg.Disabled {
		log.Printf("🚨 DEDUP DISABLED - allowing dispatch without duplicate check. Never run this in production.")
		return true, nil
	}

	for _, key := range keys {
		maybeValue, err := s.store.Get(ctx, keyPrefix+key)
		if err != nil {
			return false, fmt.Errorf("failed to read dedup key %s: %w", key, err)
		}
		if !maybeValue.IsPresent() {
			continue
		}

		entry := ledgerEntry{}
		if err := json.Unmarshal([]byte(maybeValue.MustGet()), &entry); err != nil {
			// Unreadable entries are treated as blocking; failing open
			// here would risk a duplicate reply.
			log.Printf("⚠️ Corrupt dedup entry for key %s, treating as blocking: %v", key, err)
			return false, nil
		}

		elapsed := s.now().Sub(entry.Timestamp)
		cooldown := s.cooldownFor(key)
		if elapsed < cooldown {
			entry.HitCount++
			remaining := cooldown - elapsed
			if value, err := json.Marshal(entry); err == nil {
				// Keep the original timestamp so repeated hits never
				// extend the blocking window
				if err := s.store.Set(ctx, keyPrefix+key, string(value), remaining); err != nil {
					log.Printf("⚠️ Failed to bump hit count for dedup key %s: %v", key, err)
				}
			}
			log.Printf("🛑 Duplicate suppressed by dedup key %s (hit %d, %s left in cooldown)", key, entry.HitCount, remaining.Round(time.Second))
			return false, nil
		}
	}

	return true, nil
}

// MarkDone stamps every key with the same timestamp so all tiers start their
// cooldown together
func (s *DedupService) MarkDone(ctx context.Context, keys []string) error {
	if s.cfg.Disabled {
		return nil
	}

	stamp := ledgerEntry{Timestamp: s.now(), HitCount: 0}
	value, err := json.Marshal(stamp)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	for _, key := range keys {
		if err := s.store.Set(ctx, keyPrefix+key, string(value), s.cooldownFor(key)); err != nil {
			return fmt.Errorf("failed to mark dedup key %s: %w", key, err)
		}
	}

	return nil
}

func (s *DedupService) Stats(ctx context.Context) (*models.DedupStats, error) {
	size, err := s.store.Len(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to count dedup entries: %w", err)
	}

	return &models.DedupStats{
		Size:           size,
		ShortCooldown:  s.cfg.ShortCooldown,
		GlobalCooldown: s.cfg.GlobalCooldown,
		Disabled:       s.cfg.Disabled,
	}, nil
}

func (s *DedupService) Clear(ctx context.Context) (int, error) {
	removed, err := s.store.Clear(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to clear dedup ledger: %w", err)
	}

	log.Printf("🧹 Dedup ledger cleared (%d entries removed)", removed)
	return removed, nil
}

func (s *DedupService) Sweep(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep dedup ledger: %w", err)
	}

	if removed > 0 {
		log.Printf("🧹 Dedup sweep removed %d expired entries", removed)
	}
	return removed, nil
}
