// Package protocol defines the JSON frames exchanged with the game host
// bridge. Every inbound frame is checked against its embedded schema before
// it is decoded.
package protocol

import (
	"encoding/json"
	"errors"
)

const Version = "1.0"

// Message types.
const (
	TypeHello     = "HELLO"
	TypeWelcome   = "WELCOME"
	TypeObs       = "OBS"
	TypeAct       = "ACT"
	TypeChat      = "CHAT"
	TypeTerritory = "TERRITORY"
	TypeError     = "ERROR"
)

var ErrUnknownType = errors.New("unknown message type")

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsSupportedVersion(v string) bool {
	return v == Version
}
