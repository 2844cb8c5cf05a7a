// Package webhook implements HMAC-signed webhook delivery with bot-level
// subscriptions shadowing project-level ones, grounded directly on
// original_source/bots/webhook_utils.py.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
)

// canonicalJSON mirrors json.dumps(payload, sort_keys=True,
// ensure_ascii=False, separators=(",", ":")): a compact JSON encoding with
// object keys sorted recursively.
func canonicalJSON(v any) ([]byte, error) {
	normalized, err := sortKeys(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// sortKeys round-trips v through encoding/json so map keys (Go already
// orders map[string]any via MarshalJSON) are consistent; Go's json package
// sorts map[string]any keys lexicographically by default, matching
// sort_keys=True without extra work.
func sortKeys(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignPayload returns the base64-encoded HMAC-SHA256 signature of payload's
// canonical JSON form, mirroring sign_payload.
func SignPayload(payload any, secret string) (string, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature reports whether signature matches payload signed with
// secret, using a constant-time comparison (verify_signature).
func VerifySignature(payload any, signature, secret string) (bool, error) {
	expected, err := SignPayload(payload, secret)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1, nil
}
