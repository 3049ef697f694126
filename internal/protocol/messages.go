package protocol

// HELLO (bot -> host)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
}

// WELCOME (host -> bot)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
}

// CHAT (host -> bot): one system log line, verbatim.
type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// TERRITORY (host -> bot): the player finished loading into a new zone.
type TerritoryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Territory       uint16 `json:"territory"`
}

// ERROR (host -> bot): a rejected ACT.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewHello(clientName string) HelloMsg {
	return HelloMsg{Type: TypeHello, ProtocolVersion: Version, ClientName: clientName}
}
