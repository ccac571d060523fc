package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/quarry/schema"
)

func TestScalarDecoder_NilPassesThrough(t *testing.T) {
	d := NewScalarDecoder()
	for _, ft := range []schema.FieldType{
		schema.TypeID, schema.TypeString, schema.TypeInt, schema.TypeFloat,
		schema.TypeBool, schema.TypeTime, schema.TypeBinary, schema.TypeJSON,
		schema.TypeUUID, schema.TypeAny,
	} {
		v, err := d.Decode(ft, nil)
		require.NoError(t, err, "type %s", ft)
		assert.Nil(t, v, "type %s", ft)
	}
}

func TestScalarDecoder_Ints(t *testing.T) {
	d := NewScalarDecoder()

	v, err := d.Decode(schema.TypeInt, int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	// Drivers that report integers as float64 are accepted when exact.
	v, err = d.Decode(schema.TypeID, float64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = d.Decode(schema.TypeInt, float64(1.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode")

	v, err = d.Decode(schema.TypeInt, []byte("-3"))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)
}

func TestScalarDecoder_BoolFromIntegers(t *testing.T) {
	d := NewScalarDecoder()

	v, err := d.Decode(schema.TypeBool, int64(1))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = d.Decode(schema.TypeBool, int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, v)

	_, err = d.Decode(schema.TypeBool, int64(2))
	require.Error(t, err)
}

func TestSQLiteDecoder_TimeLayouts(t *testing.T) {
	d := SQLiteDecoder()

	for _, raw := range []string{
		"2026-03-01T12:30:00Z",
		"2026-03-01 12:30:00",
		"2026-03-01",
	} {
		v, err := d.Decode(schema.TypeTime, raw)
		require.NoError(t, err, "layout %q", raw)
		ts, ok := v.(time.Time)
		require.True(t, ok)
		assert.Equal(t, 2026, ts.Year())
	}

	_, err := d.Decode(schema.TypeTime, "March 1st")
	require.Error(t, err)
}

func TestScalarDecoder_TimeWithoutLayoutsRejectsText(t *testing.T) {
	d := NewScalarDecoder()

	now := time.Now()
	v, err := d.Decode(schema.TypeTime, now)
	require.NoError(t, err)
	assert.Equal(t, now, v)

	_, err = d.Decode(schema.TypeTime, "2026-03-01T12:30:00Z")
	require.Error(t, err)
}

func TestScalarDecoder_JSON(t *testing.T) {
	d := NewScalarDecoder()

	v, err := d.Decode(schema.TypeJSON, `{"a": [1, 2]}`)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{float64(1), float64(2)}, m["a"])

	pre := map[string]any{"b": true}
	v, err = d.Decode(schema.TypeJSON, pre)
	require.NoError(t, err)
	assert.Equal(t, pre, v)

	_, err = d.Decode(schema.TypeJSON, "{not json")
	require.Error(t, err)
}

func TestScalarDecoder_UUIDForms(t *testing.T) {
	d := NewScalarDecoder()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	v, err := d.Decode(schema.TypeUUID, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, v)

	v, err = d.Decode(schema.TypeUUID, id[:])
	require.NoError(t, err)
	assert.Equal(t, id, v)

	v, err = d.Decode(schema.TypeUUID, []byte(id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, v)

	_, err = d.Decode(schema.TypeUUID, "not-a-uuid")
	require.Error(t, err)
}

func TestScalarDecoder_AnyAndBinary(t *testing.T) {
	d := NewScalarDecoder()

	v, err := d.Decode(schema.TypeAny, int64(99))
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)

	v, err = d.Decode(schema.TypeBinary, "blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), v)
}
