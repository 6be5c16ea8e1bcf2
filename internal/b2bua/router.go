package b2bua

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/redfire/gateway/internal/config"
	"github.com/redfire/gateway/internal/gwerrors"
)

// RoutingRule is re-exported for convenience so callers of Router needn't
// import internal/config directly.
type RoutingRule = config.RoutingRule

// Router resolves a called number to a target via the active config
// snapshot's routing table, trying rules in priority order (highest
// Priority value first) and returning the first match, per spec.md §4.F.
type Router struct {
	store *config.Store
}

// NewRouter builds a Router reading the given config store; routing table
// updates the host installs via Store.Swap are picked up on the next
// Resolve call with no Router-side synchronization needed (spec.md §5's
// copy-on-write guarantee).
func NewRouter(store *config.Store) *Router {
	return &Router{store: store}
}

// Resolution is the outcome of a successful route lookup.
type Resolution struct {
	Rule           *RoutingRule
	TranslatedNumber string
}

// Resolve finds the highest-priority rule matching calledNumber, applying
// its NumberTranslation if present. Returns gwerrors.ErrNotFound (mapped
// by the caller to SIP 404) if no rule matches.
func (r *Router) Resolve(calledNumber string) (*Resolution, error) {
	snap := r.store.Load()
	rules := make([]RoutingRule, len(snap.Routing.Rules))
	copy(rules, snap.Routing.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	for i := range rules {
		rule := rules[i]
		if !rule.Matches(calledNumber) {
			continue
		}
		translated := calledNumber
		if rule.Translation != nil {
			translated = applyTranslation(calledNumber, *rule.Translation)
		}
		return &Resolution{Rule: &rule, TranslatedNumber: translated}, nil
	}
	return nil, fmt.Errorf("b2bua: resolve %q: %w", calledNumber, gwerrors.ErrNotFound)
}

func applyTranslation(number string, t config.NumberTranslation) string {
	re, err := regexp.Compile(t.Match)
	if err != nil {
		return number
	}
	return re.ReplaceAllString(number, t.Replacement)
}
