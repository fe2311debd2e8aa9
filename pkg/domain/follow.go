package domain

type FollowedVenue struct {
	Name  string `json:"name"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// FollowState is a snapshot of the caller's followed artists and venues,
// taken once per recomputation so the pipeline stays a pure function of
// its arguments.
type FollowState struct {
	Artists []string        `json:"artists,omitempty"`
	Venues  []FollowedVenue `json:"venues,omitempty"`
}
