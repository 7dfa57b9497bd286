// Package gate enforces the authorization policy in front of the position
// store and produces an audited response for every granted query.
package gate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pptracker/recorder/internal/audit"
	"github.com/pptracker/recorder/internal/config"
	"github.com/pptracker/recorder/internal/directory"
	"github.com/pptracker/recorder/internal/notify"
	"github.com/pptracker/recorder/internal/store"
	"github.com/pptracker/recorder/pkg/core"
)

// ErrUnauthorized is the expected, non-exceptional outcome for a requester
// that fails the policy. The caller gets no payload and nothing else happens.
var ErrUnauthorized = errors.New("requester not authorized for position queries")

// Policy decides whether a role/game-mode pair may query position history.
// Stricter policies can be substituted without touching the gate's control flow.
type Policy func(roleCode, gameMode string) bool

// DefaultPolicy grants access iff the requester holds the admin role while in
// creative mode. Both values come from configuration.
func DefaultPolicy(cfg config.AuthConfig) Policy {
	return func(roleCode, gameMode string) bool {
		return roleCode == cfg.AdminRole && gameMode == cfg.CreativeMode
	}
}

// Dependencies holds all collaborators of the query gate.
type Dependencies struct {
	Store     *store.PositionStore
	Directory directory.Directory
	Audit     audit.Sink
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Service answers authorized, audited position-history queries.
type Service struct {
	deps   Dependencies
	policy Policy
}

// NewService creates a query gate with the given policy.
func NewService(deps Dependencies, policy Policy) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Service{deps: deps, policy: policy}
}

// Handle authorizes and answers one query. The authorization context is
// evaluated fresh on every call; there is no session state.
//
// An empty request date means "list available dates only". An empty or
// sentinel player filter means "all players". Malformed request fields are
// treated leniently; only authorization is strict.
func (s *Service) Handle(requesterUID, requesterName string, auth core.AuthContext, req core.QueryRequest) (*core.QueryResponse, error) {
	if !s.policy(auth.RoleCode, auth.GameMode) {
		s.deps.Logger.Warn("Unauthorized position data request",
			"requester", requesterName, "uid", requesterUID,
			"role", auth.RoleCode, "gameMode", auth.GameMode)
		return nil, ErrUnauthorized
	}

	dates := s.deps.Store.AvailableDates()

	var records []core.PositionRecord
	if req.Date != "" {
		records = s.deps.Store.Records(req.Date)
		if !req.WantsAllPlayers() {
			filtered := records[:0]
			for _, r := range records {
				if r.PlayerUID == req.PlayerFilter {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}
	}
	if records == nil {
		records = []core.PositionRecord{}
	}

	playerNames := make(map[string]string)
	for _, r := range records {
		if _, seen := playerNames[r.PlayerUID]; seen {
			continue
		}
		playerNames[r.PlayerUID] = s.resolveName(r.PlayerUID)
	}

	line := s.auditLine(requesterName, req)
	s.deps.Audit.Append(line)
	s.deps.Notifier.Send(line)

	return &core.QueryResponse{
		AvailableDates: dates,
		Records:        records,
		PlayerNames:    playerNames,
	}, nil
}

// resolveName returns the last-known display name, or the uid verbatim when
// the directory has never seen the player.
func (s *Service) resolveName(uid string) string {
	if name, ok := s.deps.Directory.LookupName(uid); ok {
		return name
	}
	return uid
}

// auditLine builds the human-readable summary of a granted query.
func (s *Service) auditLine(requesterName string, req core.QueryRequest) string {
	dateInfo := "available dates"
	if req.Date != "" {
		dateInfo = "date " + req.Date
	}

	filterInfo := "all players"
	if !req.WantsAllPlayers() {
		filterInfo = "player " + s.resolveName(req.PlayerFilter)
	}

	return fmt.Sprintf("%s requested %s for %s", requesterName, dateInfo, filterInfo)
}
