package domain

import (
	"fmt"
	"regexp"
)

var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)

// ValidateAccountID checks the ledger's account naming rules.
func ValidateAccountID(id string) error {
	if len(id) < 2 || len(id) > 64 || !accountIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return nil
}
