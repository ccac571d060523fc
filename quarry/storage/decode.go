package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quarrydb/quarry/quarry/schema"
)

// sqliteTimeLayouts covers the textual forms SQLite stores timestamps
// in. Postgres hands back time.Time directly, so its decoder carries no
// layouts.
var sqliteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ScalarDecoder decodes raw driver values against declared field types.
// A nil raw value decodes to nil for every type: nullability is the
// schema system's concern, not the decoder's.
type ScalarDecoder struct {
	TimeLayouts []string
}

// NewScalarDecoder returns a decoder with the given textual time
// layouts. Backends whose drivers return time.Time natively may pass
// none.
func NewScalarDecoder(layouts ...string) *ScalarDecoder {
	return &ScalarDecoder{TimeLayouts: layouts}
}

// SQLiteDecoder returns a decoder configured for SQLite's textual
// timestamp storage.
func SQLiteDecoder() *ScalarDecoder {
	return NewScalarDecoder(sqliteTimeLayouts...)
}

// Decode implements Decoder.
func (d *ScalarDecoder) Decode(t schema.FieldType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch t {
	case schema.TypeAny:
		return raw, nil
	case schema.TypeID, schema.TypeInt:
		return decodeInt(t, raw)
	case schema.TypeString:
		return decodeString(t, raw)
	case schema.TypeFloat:
		return decodeFloat(raw)
	case schema.TypeBool:
		return decodeBool(raw)
	case schema.TypeTime:
		return d.decodeTime(raw)
	case schema.TypeBinary:
		return decodeBinary(raw)
	case schema.TypeJSON:
		return decodeJSON(raw)
	case schema.TypeUUID:
		return decodeUUID(raw)
	default:
		return nil, decodeError(t, raw)
	}
}

func decodeError(t schema.FieldType, raw any) error {
	return fmt.Errorf("cannot decode %v (%T) as %s", raw, raw, t)
}

func decodeInt(t schema.FieldType, raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, decodeError(t, raw)
		}
		return int64(v), nil
	case []byte:
		return parseInt(t, string(v))
	case string:
		return parseInt(t, v)
	default:
		return nil, decodeError(t, raw)
	}
}

func parseInt(t schema.FieldType, s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, decodeError(t, s)
	}
	return n, nil
}

func decodeString(t schema.FieldType, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, decodeError(t, raw)
	}
}

func decodeFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case []byte:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	default:
		return nil, decodeError(schema.TypeFloat, raw)
	}
}

func parseFloat(s string) (any, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, decodeError(schema.TypeFloat, s)
	}
	return f, nil
}

func decodeBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case int:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return nil, decodeError(schema.TypeBool, raw)
}

func (d *ScalarDecoder) decodeTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return d.parseTime(string(v))
	case string:
		return d.parseTime(v)
	default:
		return nil, decodeError(schema.TypeTime, raw)
	}
}

func (d *ScalarDecoder) parseTime(s string) (any, error) {
	for _, layout := range d.TimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return nil, decodeError(schema.TypeTime, s)
}

func decodeBinary(raw any) (any, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, decodeError(schema.TypeBinary, raw)
	}
}

func decodeJSON(raw any) (any, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case map[string]any, []any:
		// Already unmarshaled upstream (e.g. a driver-level JSON codec).
		return raw, nil
	default:
		return nil, decodeError(schema.TypeJSON, raw)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, decodeError(schema.TypeJSON, raw)
	}
	return out, nil
}

func decodeUUID(raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		id, err := uuid.Parse(string(v))
		if err != nil {
			return nil, decodeError(schema.TypeUUID, raw)
		}
		return id, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, decodeError(schema.TypeUUID, raw)
		}
		return id, nil
	default:
		return nil, decodeError(schema.TypeUUID, raw)
	}
}
