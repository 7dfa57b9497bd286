package streaming

import (
	"encoding/json"

	"github.com/pptracker/recorder/pkg/core"
)

// Message type constants for the host channel.
const (
	TypeHello       = "hello"
	TypePresence    = "presence"
	TypePlayerLeft  = "player_left"
	TypeQuery       = "query"
	TypeQueryResult = "query_result"
	TypeSave        = "save"
	TypeAck         = "ack"
)

// Envelope wraps all messages exchanged with the host plugin.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage acknowledges a received message.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload identifies the connecting host.
type HelloPayload struct {
	ServerName string `json:"serverName"`
	WorldID    string `json:"worldId"`
}

// PresencePayload carries the current online-player state. The recorder's own
// sampling timer decides when this state is turned into position records.
type PresencePayload struct {
	Players []core.PlayerSnapshot `json:"players"`
}

// PlayerLeftPayload removes a player from the presence registry.
type PlayerLeftPayload struct {
	UID string `json:"uid"`
}

// QueryPayload carries a position-history query together with the requester's
// identity and authorization context.
type QueryPayload struct {
	RequesterUID  string            `json:"requesterUid"`
	RequesterName string            `json:"requesterName"`
	Auth          core.AuthContext  `json:"auth"`
	Request       core.QueryRequest `json:"request"`
}

// QueryResultPayload is sent back to the requesting connection only.
type QueryResultPayload struct {
	Response core.QueryResponse `json:"response"`
}
