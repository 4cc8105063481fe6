package domain

// SentinelPollID is the poll id the contract answers with when asked for a
// poll it does not know.
const SentinelPollID = "000000000000"

type Poll struct {
	ID       string    `json:"poll_id"`
	Creator  string    `json:"creator"`
	Question string    `json:"question"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	OptionID string `json:"option_id"`
	Message  string `json:"message"`
}

// PollSummary is one entry of the show_options listing.
type PollSummary struct {
	ID       string `json:"poll_id"`
	Question string `json:"question"`
}

// IsSentinel reports whether p is the placeholder returned for unknown polls.
func (p Poll) IsSentinel() bool {
	return p.ID == SentinelPollID
}

// OptionIDs returns the variant ids in display order.
func (p Poll) OptionIDs() []string {
	ids := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		ids = append(ids, v.OptionID)
	}
	return ids
}
