package syncer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	syncerrors "github.com/magicorntech/gcp-secret-manager/internal/errors"
)

// Entry is a single key/value pair from the source payload, in source order.
type Entry struct {
	Key   string
	Value string
}

// Payload is the decoded source secret: a flat JSON object of string values
// with its original key order preserved. It lives only within one sync cycle.
type Payload struct {
	entries []Entry
}

// Entries returns the payload pairs in source order.
func (p *Payload) Entries() []Entry {
	return p.entries
}

// Len returns the number of pairs in the payload.
func (p *Payload) Len() int {
	return len(p.entries)
}

// ParsePayload decodes raw bytes as a flat JSON object of string values.
// A non-object top level, nested objects or arrays, and non-string values are
// all parse errors; nothing is silently stringified. Key order is preserved
// by decoding token by token instead of into a map.
func ParsePayload(data []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &syncerrors.ParseError{Reason: "malformed JSON: " + err.Error()}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &syncerrors.ParseError{Reason: "top level is not a JSON object"}
	}

	payload := &Payload{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &syncerrors.ParseError{Reason: "malformed JSON: " + err.Error()}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &syncerrors.ParseError{Reason: "malformed JSON: object key is not a string"}
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, &syncerrors.ParseError{Reason: "malformed JSON: " + err.Error(), Key: key}
		}
		switch v := valTok.(type) {
		case string:
			payload.entries = append(payload.entries, Entry{Key: key, Value: v})
		case json.Delim:
			return nil, &syncerrors.ParseError{Reason: "nested objects and arrays are not supported", Key: key}
		default:
			return nil, &syncerrors.ParseError{Reason: "value is not a JSON string", Key: key}
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, &syncerrors.ParseError{Reason: "malformed JSON: " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &syncerrors.ParseError{Reason: "trailing data after top-level object"}
	}

	return payload, nil
}

// NormalizeStats summarizes what normalization changed.
type NormalizeStats struct {
	Renamed    int
	Collisions int
	Skipped    int
}

// Normalize maps every key through NormalizeKey and builds the map handed to
// the sink. Collisions keep the later entry per source order and are logged;
// keys that normalize to empty are skipped so the applied map always satisfies
// the sink's key syntax. Values never reach the log.
func (p *Payload) Normalize(logger *zap.Logger) (map[string]string, NormalizeStats) {
	var stats NormalizeStats
	normalized := make(map[string]string, len(p.entries))
	origin := make(map[string]string, len(p.entries))

	for _, entry := range p.entries {
		key := NormalizeKey(entry.Key)

		if key == "" {
			stats.Skipped++
			logger.Warn("dropping key that normalizes to empty",
				zap.String("original_key", entry.Key))
			continue
		}

		if key != entry.Key {
			stats.Renamed++
			logger.Warn("secret key normalized",
				zap.String("original_key", entry.Key),
				zap.String("normalized_key", key))
		}

		if prev, exists := origin[key]; exists {
			stats.Collisions++
			logger.Warn("key collision after normalization, later value wins",
				zap.String("normalized_key", key),
				zap.String("previous_key", prev),
				zap.String("winning_key", entry.Key))
		}

		normalized[key] = entry.Value
		origin[key] = entry.Key
	}

	return normalized, stats
}
