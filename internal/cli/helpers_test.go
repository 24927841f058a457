package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/apporte/workflow/internal/workflow"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"invalid input", workflow.NewError(workflow.KindInvalidInput, "bad"), ExitValidation},
		{"unauthorized", workflow.NewError(workflow.KindUnauthorized, "no"), ExitUnauthorized},
		{"invalid transition", workflow.NewError(workflow.KindInvalidTransition, "no rule"), ExitValidation},
		{"invalid entity type", workflow.NewError(workflow.KindInvalidEntityType, "wrong type"), ExitValidation},
		{"no history", workflow.NewError(workflow.KindNoHistory, "empty"), ExitValidation},
		{"conflict", workflow.NewError(workflow.KindConflict, "raced"), ExitError},
		{"unexpected", errors.New("disk on fire"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitCodeForMalformedRuleDocument(t *testing.T) {
	_, parseErr := workflow.ParseTransitionRules(json.RawMessage(`{"transitions": 5}`))
	if parseErr == nil {
		t.Fatal("expected parse error")
	}
	if got := ExitCodeFor(parseErr); got != ExitDataErr {
		t.Errorf("malformed document should map to data error, got %d", got)
	}
}

func TestParseRoleList(t *testing.T) {
	roles := ParseRoleList("admin, member ,,viewer")
	if len(roles) != 3 || roles[0] != "admin" || roles[1] != "member" || roles[2] != "viewer" {
		t.Errorf("unexpected roles: %v", roles)
	}
	if ParseRoleList("") != nil {
		t.Error("empty input should yield nil")
	}
}

func TestErrorCodeFor(t *testing.T) {
	if got := ErrorCodeFor(workflow.NewError(workflow.KindUnauthorized, "no")); got != "UNAUTHORIZED" {
		t.Errorf("ErrorCodeFor() = %s, want UNAUTHORIZED", got)
	}
	if got := ErrorCodeFor(errors.New("boom")); got != "ERROR" {
		t.Errorf("ErrorCodeFor() = %s, want ERROR", got)
	}
}
