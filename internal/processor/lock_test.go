package processor_test

import (
	"errors"
	"os"
	"testing"

	"mediacache/internal/processor"
)

func TestFlockLockerRefusesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first := processor.NewFlockLocker(dir)
	second := processor.NewFlockLocker(dir)

	unlock, err := first.TryLock()
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if _, err := os.Stat(first.Path()); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}
	if _, err := second.TryLock(); !errors.Is(err, processor.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := unlock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	again, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	_ = again.Unlock()
}

func TestMemoryLocker(t *testing.T) {
	var locker processor.MemoryLocker
	unlock, err := locker.TryLock()
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if _, err := locker.TryLock(); !errors.Is(err, processor.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := unlock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if locker.Held() {
		t.Fatal("expected lock released")
	}
	if err := unlock.Unlock(); err == nil {
		t.Fatal("expected error on double unlock")
	}
}
