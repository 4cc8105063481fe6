package domain

// VoteState is the per page load client state: which poll is active and who
// is looking at it. It cannot be changed once built.
type VoteState struct {
	pollID    string
	voteOwner string
}

func NewVoteState(pollID, accountID string) VoteState {
	return VoteState{pollID: pollID, voteOwner: accountID}
}

func (s VoteState) PollID() string {
	return s.pollID
}

func (s VoteState) AccountID() string {
	return s.voteOwner
}

func (s VoteState) HasPoll() bool {
	return s.pollID != ""
}

func (s VoteState) SignedIn() bool {
	return s.voteOwner != ""
}
