package domain

// VoteSubmission maps every rendered option id to 1 (checked) or 0.
type VoteSubmission map[string]int

// BuildVoteSubmission covers each rendered option exactly once. Checked ids
// that were not rendered are ignored.
func BuildVoteSubmission(rendered []string, checked []string) VoteSubmission {
	ticked := make(map[string]struct{}, len(checked))
	for _, id := range checked {
		ticked[id] = struct{}{}
	}

	votes := make(VoteSubmission, len(rendered))
	for _, id := range rendered {
		if _, ok := ticked[id]; ok {
			votes[id] = 1
			continue
		}
		votes[id] = 0
	}
	return votes
}

// VoteStatus is the message shown after the contract acknowledged a vote.
func VoteStatus(counted bool) string {
	if counted {
		return "Your voice is counted"
	}
	return "Your voice is NOT counted"
}
