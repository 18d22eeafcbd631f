package id

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	id := NewGenerator().GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{SessionPrefix, RequestPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		got, _, err := Split(id)
		if err != nil {
			t.Fatalf("Split(%s): %v", id, err)
		}
		if got != prefix {
			t.Errorf("expected prefix %s, got %s", prefix, got)
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	if s := NewSessionID().String(); !strings.HasPrefix(s, "sess_") {
		t.Errorf("SessionID should start with 'sess_', got: %s", s)
	}
	if s := NewRequestID().String(); !strings.HasPrefix(s, "req_") {
		t.Errorf("RequestID should start with 'req_', got: %s", s)
	}
}

func TestSplitRejectsBareValue(t *testing.T) {
	if _, _, err := Split(NewGenerator().GenerateString()); err == nil {
		t.Error("expected error for ID without prefix")
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(NewGenerator().GenerateString()) {
		t.Error("generated ULID should be valid")
	}
	if IsValid("not-a-ulid") {
		t.Error("garbage should not be valid")
	}
}

func TestTimestamp(t *testing.T) {
	gen := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64)))
	fixed := time.UnixMilli(1700000000123)
	gen.now = func() time.Time { return fixed }

	ts, err := Timestamp(gen.GenerateWithPrefix(SessionPrefix))
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if !ts.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, ts)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.GenerateString()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
