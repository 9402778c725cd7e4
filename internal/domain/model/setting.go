package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettingType declares how a setting value is serialized in storage.
type SettingType string

const (
	SettingBoolean SettingType = "boolean"
	SettingNumber  SettingType = "number"
	SettingJSON    SettingType = "json"
	SettingString  SettingType = "string"
)

// Valid returns true if the SettingType is one of the declared types.
func (t SettingType) Valid() bool {
	return t == SettingBoolean || t == SettingNumber || t == SettingJSON || t == SettingString
}

// SystemSetting is a typed configuration value keyed by a unique
// (category, key) pair.
type SystemSetting struct {
	ID        string      `json:"id"         db:"id"`
	Category  string      `json:"category"   db:"category"`
	Key       string      `json:"key"        db:"key"`
	Type      SettingType `json:"type"       db:"type"`
	RawValue  string      `json:"raw_value"  db:"raw_value"`
	UpdatedBy string      `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Value decodes the stored raw value according to the declared type:
// boolean → bool, number → float64, json → any, string → string.
func (s *SystemSetting) Value() (any, error) {
	return DecodeSettingValue(s.Type, s.RawValue)
}

// EncodeSettingValue serializes a value for storage and returns the raw form.
// The value must match the declared type.
func EncodeSettingValue(t SettingType, value any) (string, error) {
	switch t {
	case SettingBoolean:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("setting type boolean requires bool, got %T", value)
		}
		return strconv.FormatBool(b), nil
	case SettingNumber:
		switch n := value.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		default:
			return "", fmt.Errorf("setting type number requires numeric value, got %T", value)
		}
	case SettingJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("marshal json setting: %w", err)
		}
		return string(raw), nil
	case SettingString:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("setting type string requires string, got %T", value)
		}
		return s, nil
	default:
		return "", fmt.Errorf("unknown setting type: %q", t)
	}
}

// DecodeSettingValue deserializes a stored raw value according to its type.
func DecodeSettingValue(t SettingType, raw string) (any, error) {
	switch t {
	case SettingBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse boolean setting: %w", err)
		}
		return b, nil
	case SettingNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parse number setting: %w", err)
		}
		return n, nil
	case SettingJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("parse json setting: %w", err)
		}
		return v, nil
	case SettingString:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown setting type: %q", t)
	}
}

// UpsertSettingRequest describes a setting write.
type UpsertSettingRequest struct {
	Category string      `json:"category"`
	Key      string      `json:"key"`
	Type     SettingType `json:"type"`
	Value    any         `json:"value"`
}

// Validate validates the UpsertSettingRequest fields.
func (r *UpsertSettingRequest) Validate() error {
	if r.Category == "" {
		return errors.New("category is required")
	}
	if r.Key == "" {
		return errors.New("key is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid setting type: %q", r.Type)
	}
	return nil
}
