package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingValue_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		typ   SettingType
		value any
	}{
		{"boolean true", SettingBoolean, true},
		{"boolean false", SettingBoolean, false},
		{"number integer", SettingNumber, float64(42)},
		{"number fraction", SettingNumber, 0.25},
		{"string", SettingString, "us-east-1"},
		{"json object", SettingJSON, map[string]any{"enabled": true, "limit": float64(5)}},
		{"json array", SettingJSON, []any{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeSettingValue(tt.typ, tt.value)
			require.NoError(t, err)

			got, err := DecodeSettingValue(tt.typ, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestEncodeSettingValue_TypeMismatch(t *testing.T) {
	_, err := EncodeSettingValue(SettingBoolean, "yes")
	assert.Error(t, err)

	_, err = EncodeSettingValue(SettingNumber, "12")
	assert.Error(t, err)

	_, err = EncodeSettingValue(SettingString, 12)
	assert.Error(t, err)
}

func TestDecodeSettingValue_Malformed(t *testing.T) {
	_, err := DecodeSettingValue(SettingBoolean, "maybe")
	assert.Error(t, err)

	_, err = DecodeSettingValue(SettingNumber, "lots")
	assert.Error(t, err)

	_, err = DecodeSettingValue(SettingJSON, "{")
	assert.Error(t, err)
}

func TestUpsertSettingRequest_Validate(t *testing.T) {
	valid := UpsertSettingRequest{Category: "general", Key: "site_name", Type: SettingString, Value: "crmbridge"}
	require.NoError(t, valid.Validate())

	assert.Error(t, (&UpsertSettingRequest{Key: "k", Type: SettingString}).Validate())
	assert.Error(t, (&UpsertSettingRequest{Category: "c", Type: SettingString}).Validate())
	assert.Error(t, (&UpsertSettingRequest{Category: "c", Key: "k", Type: "uuid"}).Validate())
}
