package store

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NewObjectID generates the object_id used to key Recording's storage
// layout (spec.md §6.6: "{recording.object_id}.{format_ext}").
func NewObjectID() string {
	return uuid.NewString()
}

// NewIdempotencyKey generates a webhook delivery idempotency key.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

func jsonUnmarshalSlice(j JSON, out *[]string) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, out)
}
