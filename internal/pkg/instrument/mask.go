package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const maskedValue = "***"

// DefaultMaskFields are redacted in every log record regardless of configuration.
var DefaultMaskFields = []string{
	"password", "current_password", "secret", "code", "otp",
	"token", "access_token", "challenge_token", "authorization",
}

// Masker redacts values whose key matches one of its fields, case-insensitively.
// It descends into slog groups, maps, slices and JSON encoded strings or bytes.
type Masker struct {
	keys map[string]struct{}
}

// NewMasker returns a Masker for DefaultMaskFields plus extra.
func NewMasker(extra ...string) *Masker {
	m := &Masker{keys: make(map[string]struct{}, len(DefaultMaskFields)+len(extra))}
	for _, group := range [][]string{DefaultMaskFields, extra} {
		for _, f := range group {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				m.keys[f] = struct{}{}
			}
		}
	}
	return m
}

// Has reports whether values stored under key are redacted.
func (m *Masker) Has(key string) bool {
	_, ok := m.keys[strings.ToLower(key)]
	return ok
}

// Attr returns attr with sensitive content replaced.
func (m *Masker) Attr(attr slog.Attr) slog.Attr {
	if m.Has(attr.Key) {
		return slog.String(attr.Key, maskedValue)
	}

	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.Attr(ga)
		}
		attr.Value = slog.GroupValue(out...)
	case slog.KindString:
		if s, ok := m.json([]byte(attr.Value.String())); ok {
			attr.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := attr.Value.Any().(type) {
		case map[string]any, []any:
			attr.Value = slog.AnyValue(m.Value(v))
		case map[string]string:
			conv := make(map[string]any, len(v))
			for k, s := range v {
				conv[k] = s
			}
			attr.Value = slog.AnyValue(m.Value(conv))
		case []byte:
			if s, ok := m.json(v); ok {
				attr.Value = slog.StringValue(s)
			}
		}
	}

	return attr
}

// Value masks a decoded JSON-like value.
func (m *Masker) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.Has(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.Value(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = m.Value(inner)
		}
		return out
	default:
		return v
	}
}

// json masks payload when it holds a JSON object or array.
func (m *Masker) json(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.Value(decoded))
	if err != nil {
		return "", false
	}
	return string(out), true
}
