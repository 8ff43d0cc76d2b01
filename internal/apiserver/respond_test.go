package apiserver

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 201, map[string]int{"file_id": 7})

	if rec.Code != 201 {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body["file_id"] != 7 {
		t.Fatalf("body[file_id] = %d, want 7", body["file_id"])
	}
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeMessage(rec, 404, "Unknown file")

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body["message"] != "Unknown file" {
		t.Fatalf("body[message] = %q, want %q", body["message"], "Unknown file")
	}
}

func TestUsernamePattern(t *testing.T) {
	cases := []struct {
		name     string
		username string
		want     bool
	}{
		{"valid alphanumeric", "alice_1", true},
		{"minimum length", "abc", true},
		{"too short", "ab", false},
		{"contains space", "alice bob", false},
		{"contains dash", "alice-bob", false},
		{"empty", "", false},
		{"exactly fifty chars", "012345678901234567890123456789012345678901234567xy", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := usernamePattern.MatchString(tc.username); got != tc.want {
				t.Errorf("usernamePattern.MatchString(%q) = %v, want %v", tc.username, got, tc.want)
			}
		})
	}
}
