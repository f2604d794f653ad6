package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the wire shape every message takes: an integer message kind
// and a payload whose shape depends on that kind (spec.md §4.5: "Each
// message is a JSON object with two top-level fields: type ... and
// message ...").
type Envelope struct {
	Type    Kind            `json:"type"`
	Message json.RawMessage `json:"message"`
}

// ErrUnknownKind is returned when decoding an envelope whose Type does not
// match any of the kinds in spec.md §4.5's table.
var ErrUnknownKind = errors.New("protocol: unknown message kind")

// Encode builds an Envelope for kind carrying payload as its message.
func Encode(kind Kind, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: encoding %s payload: %w", kind, err)
	}
	return Envelope{Type: kind, Message: data}, nil
}

// MarshalLine encodes kind/payload as a single newline-terminated JSON line,
// the framing spec.md §4.5 requires the implementer to pick and document
// (grounded on sdk/protocol.go's Message/NewMessage envelope, adapted from
// a WebSocket frame to a line over a raw net.Conn).
func MarshalLine(kind Kind, payload any) ([]byte, error) {
	env, err := Encode(kind, payload)
	if err != nil {
		return nil, err
	}
	line, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding envelope: %w", err)
	}
	return append(line, '\n'), nil
}

// Decode unmarshals an envelope's Message field into v. Callers switch on
// env.Type first to know which concrete payload type to pass.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Message, v)
}

// ReadEnvelope reads and decodes one newline-delimited JSON envelope from r.
func ReadEnvelope(r *bufio.Reader) (Envelope, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Envelope{}, err
	}
	var env Envelope
	if jsonErr := json.Unmarshal(line, &env); jsonErr != nil {
		return Envelope{}, fmt.Errorf("protocol: decoding envelope: %w", jsonErr)
	}
	return env, err
}

// payloadFor reports the zero value of the payload type matching kind, for
// callers that want to decode without a type switch of their own.
func payloadFor(kind Kind) (any, error) {
	switch kind {
	case KindConnect:
		return &ConnectPayload{}, nil
	case KindGameStart:
		return &GameStartPayload{}, nil
	case KindRoundStart:
		return &RoundStartPayload{}, nil
	case KindRequestPlayerAction:
		return &RequestPlayerActionPayload{}, nil
	case KindPlayerAction:
		return &PlayerActionPayload{}, nil
	case KindRoundEnd:
		return &RoundEndPayload{}, nil
	case KindGameEnd:
		return &GameEndPayload{}, nil
	case KindGameState:
		return &GameStatePayload{}, nil
	case KindMessage:
		return &MessagePayload{}, nil
	default:
		return nil, ErrUnknownKind
	}
}

// DecodeAny decodes an envelope into the payload struct matching its Type,
// returning it as the any it was allocated as.
func (e Envelope) DecodeAny() (any, error) {
	v, err := payloadFor(e.Type)
	if err != nil {
		return nil, err
	}
	if err := e.Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}
