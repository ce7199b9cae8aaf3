package gateway

import (
	"bytes"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"
)

// Signer computes and checks keyed hashes over either a raw payload or an
// ordered list of named fields. Every provider's callback check goes
// through it.
type Signer struct {
	Hash      func() hash.Hash
	Key       []byte
	Fields    []string
	Separator string
}

// Message joins the configured fields of values in order.
func (s Signer) Message(values map[string]string) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = values[f]
	}
	return strings.Join(parts, s.Separator)
}

// SignBytes returns the lowercase hex HMAC of payload.
func (s Signer) SignBytes(payload []byte) string {
	mac := hmac.New(s.Hash, s.Key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns the lowercase hex HMAC of the joined fields.
func (s Signer) Sign(values map[string]string) string {
	return s.SignBytes([]byte(s.Message(values)))
}

// VerifyBytes compares signature against the HMAC of payload in constant time.
func (s Signer) VerifyBytes(payload []byte, signature string) bool {
	if signature == "" || len(s.Key) == 0 {
		return false
	}
	expected := s.SignBytes(payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Verify compares signature against the HMAC of the joined fields.
func (s Signer) Verify(values map[string]string, signature string) bool {
	return s.VerifyBytes([]byte(s.Message(values)), signature)
}

// Flatten decodes a JSON object into dotted paths with string values.
// Numbers keep their literal form and booleans render as true/false.
func Flatten(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root map[string]interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid json payload: %w", err)
	}
	out := make(map[string]string)
	flatten("", root, out)
	return out, nil
}

// FlattenObject flattens an already decoded object such as one nested
// under a payload envelope.
func FlattenObject(obj map[string]interface{}) map[string]string {
	out := make(map[string]string)
	flatten("", obj, out)
	return out
}

func flatten(prefix string, v interface{}, out map[string]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case []interface{}:
		// Lists are not part of any signed field set.
	case bool:
		if val {
			out[prefix] = "true"
		} else {
			out[prefix] = "false"
		}
	case json.Number:
		out[prefix] = val.String()
	case string:
		out[prefix] = val
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(val)
	}
}
