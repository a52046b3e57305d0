package validation

import (
	"fmt"
	"strings"
)

// ValidateDescription проверяет описание задачи (после trim)
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("must be provided")
	}
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("must not exceed %d characters", MaxDescriptionLen)
	}
	return nil
}
