package workflow

import (
	"bytes"
	"encoding/json"

	"github.com/apporte/workflow/internal/models"
)

// TransitionRule is one entry of a column's rule document: the (from,to)
// pair it permits and, optionally, the roles required for that specific
// transition. Transition roles are independent of the column-level
// move-in/move-out role sets.
type TransitionRule struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	AllowedRoles []string `json:"allowedRoles,omitempty"`
}

// transitionRuleSet is the wire shape of the rule document stored on a
// column: {"transitions": [{"from": ..., "to": ..., "allowedRoles": [...]}]}
type transitionRuleSet struct {
	Transitions []TransitionRule `json:"transitions"`
}

// ParseTransitionRules decodes a column's rule document into typed rule
// entries. An absent or empty document yields no rules (no configured
// restriction). A document that is not the expected shape - transitions
// not a list, roles not strings - is rejected as an invalid-format
// error rather than a generic failure, so data corruption is
// distinguishable from an authorization denial.
func ParseTransitionRules(doc json.RawMessage) ([]TransitionRule, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}
	var set transitionRuleSet
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return nil, WrapError(KindInvalidTransition, err, "invalid transition rules format")
	}
	return set.Transitions, nil
}

// ValidateTransition checks a requested (fromKey,toKey) move against a
// rule document. The design is fail-closed: once any rules exist, only
// explicitly listed pairs are reachable. Matching is exact - no
// wildcards, no reachability through intermediate columns.
func ValidateTransition(fromKey, toKey string, actor models.Actor, doc json.RawMessage) error {
	rules, err := ParseTransitionRules(doc)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	var match *TransitionRule
	for i := range rules {
		if rules[i].From == fromKey && rules[i].To == toKey {
			match = &rules[i]
			break
		}
	}
	if match == nil {
		return errorf(KindInvalidTransition,
			"transition from %q to %q is not configured", fromKey, toKey)
	}

	if len(match.AllowedRoles) > 0 && !actor.HasAnyRole(match.AllowedRoles...) {
		return errorf(KindInvalidTransition,
			"actor does not have permission for transition %q -> %q (required roles: %v)",
			fromKey, toKey, match.AllowedRoles)
	}
	return nil
}
