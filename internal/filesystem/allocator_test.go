package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFreeReportsSpace(t *testing.T) {
	a := NewAllocator()
	free, err := a.Free(t.TempDir())
	if err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if free == 0 {
		t.Error("expected non-zero free space on temp volume")
	}
}

func TestFreeWalksUpForMissingDirs(t *testing.T) {
	a := NewAllocator()
	missing := filepath.Join(t.TempDir(), "not", "created", "yet")
	free, err := a.Free(missing)
	if err != nil {
		t.Fatalf("Free on missing dir failed: %v", err)
	}
	if free == 0 {
		t.Error("expected measurement from the nearest existing parent")
	}
}

func TestReserveSizesFile(t *testing.T) {
	a := NewAllocator()
	path := filepath.Join(t.TempDir(), "target.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := a.Reserve(f, 4096); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 4096 {
		t.Errorf("expected 4096 bytes, got %d", info.Size())
	}
}

func TestReserveZeroIsNoop(t *testing.T) {
	a := NewAllocator()
	path := filepath.Join(t.TempDir(), "empty.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := a.Reserve(f, 0); err != nil {
		t.Fatalf("Reserve(0) failed: %v", err)
	}
}
