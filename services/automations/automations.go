package automations

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/samber/mo"

	"autoreply/db"
	"autoreply/models"
	"autoreply/utils"
)

type AutomationsService struct {
	automationsRepo *db.PostgresAutomationsRepository
}

func NewAutomationsService(repo *db.PostgresAutomationsRepository) *AutomationsService {
	return &AutomationsService{
		automationsRepo: repo,
	}
}

func (s *AutomationsService) ListActiveRules(ctx context.Context, ownerID string) ([]*models.AutomationRule, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner_id cannot be empty")
	}

	rules, err := s.automationsRepo.GetActiveRulesByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	return rules, nil
}

// SelectRule runs the filtering pipeline over the candidates and picks the
// best match for the event:
//  1. active rules whose trigger type matches
//  2. resource scope (empty scope matches any resource)
//  3. case-insensitive keyword substring match against the trigger text
//  4. tie-break: most recently updated rule wins
//
// The tie-break is a deliberate, documented policy rather than fetch order -
// overlapping rules are legal in the data model and selection must be
// deterministic. Returning None is a normal outcome, not an error.
func (s *AutomationsService) SelectRule(event *models.InboundEvent, rules []*models.AutomationRule) mo.Option[*models.AutomationRule] {
	var candidates []*models.AutomationRule

	for _, rule := range rules {
		if !rule.Active || rule.TriggerType != event.TriggerType {
			continue
		}
		if event.TargetResourceID != "" && !rule.AppliesToResource(event.TargetResourceID) {
			continue
		}
		// Follow triggers carry no text, so the keyword step is skipped
		// for them
		if event.TriggerType != models.TriggerTypeFollow && !matchesAnyKeyword(event.TriggerText, rule.Keywords) {
			continue
		}
		candidates = append(candidates, rule)
	}

	if len(candidates) == 0 {
		return mo.None[*models.AutomationRule]()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})

	selected := candidates[0]
	if len(candidates) > 1 {
		log.Printf("📋 %d rules matched event %s, tie-break selected most recently updated rule %s", len(candidates), event.RequestID, selected.ID)
	}
	return mo.Some(selected)
}

// matchesAnyKeyword reports whether text contains at least one keyword. Rules
// without keywords never match; a rule that should fire on everything still
// needs an explicit keyword.
func matchesAnyKeyword(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if utils.ContainsKeyword(text, keyword) {
			return true
		}
	}
	return false
}
