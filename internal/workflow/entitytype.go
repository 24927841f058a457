package workflow

import "slices"

// CheckEntityType verifies that a card's entity type is acceptable in a
// destination column. An empty allowed set means the column is
// unrestricted. The rejection names both the offending type and the full
// allowed set so a misconfigured column is diagnosable from the message
// alone.
func CheckEntityType(entityType string, allowedTypes []string) error {
	if len(allowedTypes) == 0 {
		return nil
	}
	if slices.Contains(allowedTypes, entityType) {
		return nil
	}
	return errorf(KindInvalidEntityType,
		"entity type %q not allowed in this column (allowed types: %v)",
		entityType, allowedTypes)
}
