package response_test

import (
	"encoding/json"
	"testing"
	"time"

	"repo-sync-automation/pkg/response"
)

func TestDateTimeMarshalJSON(t *testing.T) {
	t.Run("Renders UTC", func(t *testing.T) {
		loc := time.FixedZone("ICT", 7*3600)
		tm := time.Date(2024, 5, 1, 22, 30, 0, 0, loc)

		b, err := json.Marshal(response.DateTime(tm))
		if err != nil {
			t.Fatalf("unexpected error marshaling DateTime: %v", err)
		}
		if string(b) != `"2024-05-01T15:30:00Z"` {
			t.Errorf("unexpected encoding %s", b)
		}
	})

	t.Run("Zero Is Null", func(t *testing.T) {
		b, err := json.Marshal(response.DateTime(time.Time{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != "null" {
			t.Errorf("expected null, got %s", b)
		}
	})
}
