package store

import (
	"encoding/json"
	"testing"
)

func TestSanitizeBlobStripsNullsAtDepth(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"device": {"id": "abc", "build": null},
		"tokens": [null, {"value": "t1", "expiry": null}, "keep"],
		"count": 0,
		"label": "",
		"flag": false,
		"gone": null
	}`)

	clean, err := SanitizeBlob(raw)
	if err != nil {
		t.Fatalf("SanitizeBlob failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(clean, &got); err != nil {
		t.Fatalf("failed to decode sanitized blob: %v", err)
	}

	if _, exists := got["gone"]; exists {
		t.Error("expected top-level null field to be removed")
	}

	device, ok := got["device"].(map[string]any)
	if !ok {
		t.Fatalf("expected device object, got %T", got["device"])
	}
	if _, exists := device["build"]; exists {
		t.Error("expected nested null field to be removed")
	}
	if device["id"] != "abc" {
		t.Errorf("expected device.id to survive, got %v", device["id"])
	}

	tokens, ok := got["tokens"].([]any)
	if !ok {
		t.Fatalf("expected tokens array, got %T", got["tokens"])
	}
	if len(tokens) != 2 {
		t.Fatalf("expected null array element to be dropped, got %d elements", len(tokens))
	}
	entry, ok := tokens[0].(map[string]any)
	if !ok {
		t.Fatalf("expected object element, got %T", tokens[0])
	}
	if _, exists := entry["expiry"]; exists {
		t.Error("expected null field inside array element to be removed")
	}

	// Defined falsy values must be preserved.
	if got["count"] != float64(0) {
		t.Errorf("expected count=0 preserved, got %v", got["count"])
	}
	if got["label"] != "" {
		t.Errorf("expected empty label preserved, got %v", got["label"])
	}
	if got["flag"] != false {
		t.Errorf("expected flag=false preserved, got %v", got["flag"])
	}
}

func TestSanitizeBlobPassesEmptyThrough(t *testing.T) {
	t.Parallel()

	clean, err := SanitizeBlob(nil)
	if err != nil {
		t.Fatalf("SanitizeBlob(nil) failed: %v", err)
	}
	if clean != nil {
		t.Errorf("expected nil passthrough, got %q", clean)
	}
}

func TestSanitizeBlobRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := SanitizeBlob([]byte(`{"broken":`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
