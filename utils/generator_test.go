package utils

import "testing"

func TestGenerateID_Format(t *testing.T) {
	gen := NewIDGenerator()

	id, err := gen.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 8 {
		t.Errorf("expected 8-character ID, got %q (%d chars)", id, len(id))
	}
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z':
			if r == 'O' || r == 'I' {
				t.Errorf("ID %q contains ambiguous character %q", id, r)
			}
		case r >= '2' && r <= '9':
		default:
			t.Errorf("ID %q contains unexpected character %q", id, r)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	gen := NewIDGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := gen.GenerateID()
		if err != nil {
			t.Fatalf("unexpected error on iteration %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestCleanupOldIDs(t *testing.T) {
	gen := NewIDGenerator()

	for i := 0; i < 50; i++ {
		if _, err := gen.GenerateID(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	gen.CleanupOldIDs(10)
	if len(gen.usedIDs) != 0 {
		t.Errorf("expected tracking map to be reset, has %d entries", len(gen.usedIDs))
	}

	gen.CleanupOldIDs(100)
	if _, err := gen.GenerateID(); err != nil {
		t.Errorf("generation after cleanup failed: %v", err)
	}
}
