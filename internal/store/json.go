package store

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is a generic jsonb-backed column, used for Bot.Settings,
// BotEvent.Metadata, Recording transcription summaries, and
// Utterance.Transcription/FailureData. gorm has no built-in portable jsonb
// type across Postgres/sqlite, so — following the same "small
// Scanner/Valuer wrapper" shape gorm's own docs recommend — this is the one
// hand-rolled piece of the store package; everything else rides on gorm's
// struct tags directly.
type JSON json.RawMessage

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("null")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = JSON(bytes.Clone(v))
		return nil
	case string:
		*j = JSON(v)
		return nil
	default:
		return errors.New("store: JSON.Scan: unsupported type")
	}
}

// MarshalJSON makes JSON behave transparently when the struct it's embedded
// in is itself marshaled (e.g. for webhook payloads).
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(bytes.Clone(data))
	return nil
}

// Map decodes the JSON column into a string-keyed map.
func (j JSON) Map() map[string]interface{} {
	if len(j) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(j, &m); err != nil {
		return nil
	}
	return m
}

// NewJSONMap encodes a map into a JSON column value.
func NewJSONMap(m map[string]interface{}) JSON {
	if m == nil {
		m = map[string]interface{}{}
	}
	b, _ := json.Marshal(m)
	return JSON(b)
}
