package models

import (
	"time"
)

// DedupStats is the operational snapshot exposed by the admin endpoint
type DedupStats struct {
	Size           int           `json:"size"`
	ShortCooldown  time.Duration `json:"short_cooldown"`
	GlobalCooldown time.Duration `json:"global_cooldown"`
	Disabled       bool          `json:"disabled"`
}

// QueueStats counts events waiting on the primary and failed lists
type QueueStats struct {
	Queued int `json:"queued"`
	Failed int `json:"failed"`
}
