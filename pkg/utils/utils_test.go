package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewID_UniqueAndUUIDShaped(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("NewID returned a non-UUID value %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("NewID returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestEncodeDecodeTime_RoundTrip(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	original := time.Date(2025, 1, 10, 9, 30, 15, 123456789, loc)

	decoded := DecodeTime(EncodeTime(original))

	if !decoded.Equal(NormalizeTime(original)) {
		t.Errorf("Round trip mismatch: got %s, want %s", decoded, NormalizeTime(original))
	}
	if decoded.Location() != time.UTC {
		t.Errorf("Expected decoded time in UTC, got %s", decoded.Location())
	}
	// Millisecond precision must survive.
	if decoded.Nanosecond()/int(time.Millisecond) != 123 {
		t.Errorf("Expected millisecond component 123, got %d", decoded.Nanosecond()/int(time.Millisecond))
	}
	if decoded.Nanosecond() != 123456000 {
		t.Errorf("Expected microsecond precision, got %d ns", decoded.Nanosecond())
	}
}

func TestNormalizeTime_Zero(t *testing.T) {
	if !NormalizeTime(time.Time{}).IsZero() {
		t.Errorf("Expected zero time to stay zero")
	}
}

func TestNextAfter(t *testing.T) {
	prev := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	later := prev.Add(time.Second)
	if got := NextAfter(prev, later); !got.Equal(later) {
		t.Errorf("Expected %s, got %s", later, got)
	}

	for _, now := range []time.Time{prev, prev.Add(-time.Hour), prev.Add(500 * time.Nanosecond)} {
		got := NextAfter(prev, now)
		if !got.After(prev) {
			t.Errorf("NextAfter(%s, %s) = %s, which is not after prev", prev, now, got)
		}
		if got.Sub(prev) != TimestampPrecision {
			t.Errorf("Expected a single precision step, got %s", got.Sub(prev))
		}
	}
}

func TestResolveAndEnsureDBPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path, err := ResolveAndEnsureDBPath(filepath.Join(dir, "nikki.db"))
	if err != nil {
		t.Fatalf("ResolveAndEnsureDBPath failed: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("Expected an absolute path, got %s", path)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Expected parent directory %s to be created: %v", dir, err)
	}

	mem, err := ResolveAndEnsureDBPath(":memory:")
	if err != nil || mem != ":memory:" {
		t.Errorf("Expected :memory: to pass through, got %q, %v", mem, err)
	}
}
