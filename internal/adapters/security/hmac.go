package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// HMACSigner signs audit-entry canonical payloads with HMAC-SHA256. The key
// is mandatory: an audit trail signed with a default key is forgeable, so a
// missing key is a startup error, never a silent downgrade.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(key string) (*HMACSigner, error) {
	if key == "" {
		return nil, errors.New("audit signing key is required")
	}
	return &HMACSigner{key: []byte(key)}, nil
}

func (s *HMACSigner) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *HMACSigner) Verify(payload []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}
