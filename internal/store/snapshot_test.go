package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	s.Set("counter", NewInt(42), 0)
	s.Set("greeting", NewStr("hello world"), 4102444800000) // 2100-01-01T00:00:00Z
	s.Set("mylist", NewList(NewInt(1), NewStr("two"), NewInt(3)), 0)

	path := filepath.Join(t.TempDir(), "snapshot.rdb")
	if _, err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := New()
	if _, err := restored.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, key := range []string{"counter", "greeting", "mylist"} {
		want, ok := s.Get(key)
		if !ok {
			t.Fatalf("original missing %q", key)
		}
		got, ok := restored.Get(key)
		if !ok {
			t.Fatalf("restored missing %q", key)
		}
		if !valuesEqual(got, want) {
			t.Fatalf("restored[%q] = %+v, want %+v", key, got, want)
		}
	}

	restored.mu.RLock()
	gotExp := restored.expireAt["greeting"]
	restored.mu.RUnlock()
	if gotExp != 4102444800000 {
		t.Fatalf("restored expiration for greeting = %d, want 4102444800000", gotExp)
	}
}

func TestSaveRejectsNestedLists(t *testing.T) {
	s := New()
	s.Set("bad", NewList(NewList(NewInt(1))), 0)

	path := filepath.Join(t.TempDir(), "snapshot.rdb")
	if _, err := s.Save(path); err != ErrNestedList {
		t.Fatalf("Save err = %v, want ErrNestedList", err)
	}
}

func TestLoadMalformedFDLineIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.rdb")
	bad := dashLine + "\r\n" +
		"REDIS\r\n" +
		"0001\r\n" +
		dashLine + "\r\n" +
		"2024-01-01T00:00:00Z\r\n" +
		dashLine + "\r\n" +
		"KEYS-VALUES\r\n" +
		dashLine + "\r\n" +
		"NOTFD garbage\r\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := New()
	if _, err := s.Load(path); err == nil {
		t.Fatal("Load should fail on malformed FD line")
	}
}

func valuesEqual(a, b StoredValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindStr:
		return a.Str == b.Str
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !valuesEqual(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}
