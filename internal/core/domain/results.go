package domain

import (
	"fmt"
	"sort"
)

type Results struct {
	PollID   string           `json:"poll_id"`
	Variants map[string]int64 `json:"variants"`
	Voted    map[string]int   `json:"voted"`
}

// Count returns the number of votes for optionID, zero when none were cast.
func (r Results) Count(optionID string) int64 {
	return r.Variants[optionID]
}

// Voters returns the accounts that already voted, sorted.
func (r Results) Voters() []string {
	voters := make([]string, 0, len(r.Voted))
	for account := range r.Voted {
		voters = append(voters, account)
	}
	sort.Strings(voters)
	return voters
}

// FormatVariant renders a result line as "label -> count".
func FormatVariant(v Variant, r Results) string {
	return fmt.Sprintf("%s -> %d", v.Message, r.Count(v.OptionID))
}
