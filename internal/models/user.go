package models

import (
	"fmt"
	"strings"
)

// reservedUserChars cannot appear in a user name: '@' prefixes internal
// cache owners, ':' separates cache key segments and the rest are Redis
// glob metacharacters.
const reservedUserChars = `@:*?[]\`

// ValidateUserName checks that name can be used as a pool user
func ValidateUserName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("user name is empty")
	}
	if i := strings.IndexAny(name, reservedUserChars); i >= 0 {
		return fmt.Errorf("user name %q contains reserved character %q", name, name[i])
	}
	return nil
}
