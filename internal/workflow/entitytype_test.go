package workflow

import (
	"strings"
	"testing"
)

func TestCheckEntityTypeUnrestricted(t *testing.T) {
	if err := CheckEntityType("project", nil); err != nil {
		t.Errorf("expected nil error for nil allowed set, got %v", err)
	}
	if err := CheckEntityType("project", []string{}); err != nil {
		t.Errorf("expected nil error for empty allowed set, got %v", err)
	}
}

func TestCheckEntityTypeMember(t *testing.T) {
	if err := CheckEntityType("project", []string{"proposal", "project"}); err != nil {
		t.Errorf("expected member type to be accepted, got %v", err)
	}
}

func TestCheckEntityTypeRejection(t *testing.T) {
	err := CheckEntityType("project", []string{"proposal"})
	if err == nil {
		t.Fatal("expected rejection for non-member type")
	}
	if KindOf(err) != KindInvalidEntityType {
		t.Errorf("expected KindInvalidEntityType, got %v", KindOf(err))
	}

	// The message must name the offending type and the full allowed set
	msg := err.Error()
	if !strings.Contains(msg, "project") {
		t.Errorf("rejection message should name the offending type: %s", msg)
	}
	if !strings.Contains(msg, "proposal") {
		t.Errorf("rejection message should name the allowed set: %s", msg)
	}
}
