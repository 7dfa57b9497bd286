package core

// PlayerFilterAll is the sentinel meaning "no player filter".
// An empty filter means the same thing.
const PlayerFilterAll = "__all__"

// AuthContext carries the requester's role and game mode at the moment of a
// query. It is evaluated per request and never cached.
type AuthContext struct {
	RoleCode string `json:"roleCode"`
	GameMode string `json:"gameMode"`
}

// QueryRequest asks for position history. An empty Date means "list available
// dates only". An empty or sentinel PlayerFilter means "all players".
type QueryRequest struct {
	Date         string `json:"date"`
	PlayerFilter string `json:"playerFilter"`
}

// WantsAllPlayers reports whether the request carries no effective player filter.
func (r QueryRequest) WantsAllPlayers() bool {
	return r.PlayerFilter == "" || r.PlayerFilter == PlayerFilterAll
}

// QueryResponse is the answer to a granted query.
type QueryResponse struct {
	AvailableDates []string          `json:"availableDates"`
	Records        []PositionRecord  `json:"records"`
	PlayerNames    map[string]string `json:"playerNames"`
}
