package store

import (
	"fmt"

	"github.com/roach88/convoy/internal/canon"
	"github.com/roach88/convoy/internal/message"
)

// marshalBody converts a payload to JSON TEXT for storage.
func marshalBody(p message.Payload) (string, error) {
	data, err := message.EncodeBody(p)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody decodes a stored body for its kind. Unknown fields are
// rejected so schema drift surfaces instead of silently losing data.
func unmarshalBody(kind, body string) (message.Payload, error) {
	p, err := message.DecodeBody(message.Kind(kind), []byte(body))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s body: %w", kind, err)
	}
	return p, nil
}

// snapshotHash is the content hash of an envelope's canonical snapshot.
func snapshotHash(env message.Envelope) (string, error) {
	snap, err := message.Snapshot(env)
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	h, err := canon.Key(canon.DomainSnapshot, snap)
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return h, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
