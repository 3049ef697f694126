package protocol

const (
	// Frame failed validation on the host.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer.
	ErrBadAction  = "E_BAD_ACTION"
	ErrNotReady   = "E_NOT_READY"
	ErrNoResource = "E_NO_RESOURCE"
	ErrQueueFull  = "E_QUEUE_FULL"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadAction:       {},
	ErrNotReady:        {},
	ErrNoResource:      {},
	ErrQueueFull:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
