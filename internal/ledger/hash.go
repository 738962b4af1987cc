package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// requestHash digests the logically significant fields of a command into a
// stable hex string. The shape is marshaled and then canonicalized per
// RFC 8785 so that field order and whitespace never change the hash; a key
// reused with a different payload is detected by comparing stored hashes.
func requestHash(shape any) (string, error) {
	raw, err := json.Marshal(shape)
	if err != nil {
		return "", fmt.Errorf("marshal request shape: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize request shape: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON returns the RFC 8785 form of v, used for stored idempotency
// response bodies so replays compare byte-for-byte.
func canonicalJSON(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(canonical), nil
}
