package cmd

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestKeygenProducesValidKey(t *testing.T) {
	cmd := newKeygenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("keygen error = %v", err)
	}

	encoded := strings.TrimSpace(out.String())
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
}

func TestKeygenKeysAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 3 {
		cmd := newKeygenCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		if err := cmd.RunE(cmd, nil); err != nil {
			t.Fatalf("keygen error = %v", err)
		}
		key := strings.TrimSpace(out.String())
		if seen[key] {
			t.Fatal("keygen produced a duplicate key")
		}
		seen[key] = true
	}
}
