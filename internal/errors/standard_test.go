package errors

import (
	"strings"
	"testing"
)

func TestStandardErrorFormatting(t *testing.T) {
	err := InvalidSize(129, "Alloc")

	if err.Category != CategoryMisuse {
		t.Errorf("Category = %s, want %s", err.Category, CategoryMisuse)
	}

	msg := err.Error()
	if !strings.Contains(msg, "MISUSE") || !strings.Contains(msg, "129") {
		t.Errorf("Error() = %q, missing category or size", msg)
	}
}

func TestOutOfMemoryCategory(t *testing.T) {
	err := OutOfMemory(960)
	if err.Category != CategoryOOM {
		t.Errorf("Category = %s, want %s", err.Category, CategoryOOM)
	}

	if err.Context["requested"] != uintptr(960) {
		t.Errorf("Context[requested] = %v, want 960", err.Context["requested"])
	}
}

func TestWrongReleaseSizeCategory(t *testing.T) {
	err := WrongReleaseSize(0)
	if err.Category != CategoryMisuse {
		t.Errorf("Category = %s, want %s", err.Category, CategoryMisuse)
	}
}
