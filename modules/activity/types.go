package activity

// ListActivityRequest asks for the recent activity of one owner.
type ListActivityRequest struct {
	OwnerID string `json:"owner_id"`
	Limit   int    `json:"limit,omitempty"`
}

// ListActivityResponse holds the owner's entries, newest first.
type ListActivityResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}
