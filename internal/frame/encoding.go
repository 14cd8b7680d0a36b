package frame

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodingSchemaVersion tags persisted encoding maps.
const EncodingSchemaVersion = "autoviz.encoding/v1"

// EncodingMap maps a label-encoded column to its code → original value table.
// Codes are contiguous from 0.
type EncodingMap map[string]map[int]string

// Decode returns the original value for a code of column col.
func (m EncodingMap) Decode(col string, code float64) (string, bool) {
	table, ok := m[col]
	if !ok {
		return "", false
	}
	v, ok := table[int(code)]
	return v, ok
}

// Inverse returns the original value → code table for column col.
func (m EncodingMap) Inverse(col string) map[string]int {
	table := m[col]
	inv := make(map[string]int, len(table))
	for code, v := range table {
		inv[v] = code
	}
	return inv
}

type encodingEnvelope struct {
	SchemaVersion string                    `json:"schema_version"`
	Columns       map[string]map[int]string `json:"columns"`
}

// MarshalEncoding serializes the map inside a versioned envelope.
func MarshalEncoding(m EncodingMap) ([]byte, error) {
	if m == nil {
		m = EncodingMap{}
	}
	return json.Marshal(encodingEnvelope{SchemaVersion: EncodingSchemaVersion, Columns: m})
}

// UnmarshalEncoding reads a persisted encoding map. Unversioned payloads
// (a bare column map) are accepted as legacy data.
func UnmarshalEncoding(data []byte) (EncodingMap, error) {
	if len(data) == 0 {
		return EncodingMap{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode encoding map: %w", err)
	}
	raw, versioned := fields["schema_version"]
	if !versioned {
		var legacy map[string]map[string]string
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy encoding map: %w", err)
		}
		return fromStringKeys(legacy)
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return nil, fmt.Errorf("decode encoding schema version: %w", err)
	}
	if version != EncodingSchemaVersion {
		return nil, fmt.Errorf("unsupported encoding schema version %q", version)
	}
	var env encodingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode encoding map: %w", err)
	}
	if env.Columns == nil {
		env.Columns = EncodingMap{}
	}
	return env.Columns, nil
}

func fromStringKeys(in map[string]map[string]string) (EncodingMap, error) {
	out := make(EncodingMap, len(in))
	for col, table := range in {
		t := make(map[int]string, len(table))
		for k, v := range table {
			code, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("column %q: code %q is not an integer", col, k)
			}
			t[code] = v
		}
		out[col] = t
	}
	return out, nil
}
