package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "airdrop.csv")

	if err := os.WriteFile(path, []byte("Address,Airdrop_Amount\n0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa,10\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewFileStore(path)
	recs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got=%d", len(recs))
	}

	recs[0].MarkSuccess("https://scan.example/tx/0x01")
	if err := s.Save(ctx, recs); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Address,Airdrop_Amount,Explorer_Link,Status\n" +
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa,10,https://scan.example/tx/0x01,success\n"
	if string(got) != want {
		t.Fatalf("unexpected file:\n%s", got)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode preserved, got=%v", st.Mode().Perm())
	}

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the ledger file, got=%d entries", len(entries))
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.csv"))
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing ledger")
	}
}

func TestFileStore_SaveUnwritableDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope", "airdrop.csv"))
	err := s.Save(context.Background(), []Record{{Recipient: "a", Amount: "1", Status: StatusPending}})
	if err == nil {
		t.Fatal("expected error when directory does not exist")
	}
}

func TestFileStore_SaveCreatesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "new.csv"))

	recs := []Record{{Recipient: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Amount: "1", Status: StatusPending}}
	for i := 0; i < 2; i++ {
		if err := s.Save(ctx, recs); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Recipient != recs[0].Recipient || got[0].Status != StatusPending {
		t.Fatalf("unexpected records: %+v", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "new.csv" {
		t.Fatalf("expected only new.csv, got=%v", entries)
	}
}

func TestFileStore_SaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "airdrop.csv")
	if err := NewFileStore(path).Save(ctx, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file written, stat err=%v", err)
	}
}

func TestSyncDir(t *testing.T) {
	if err := syncDir(t.TempDir()); err != nil {
		t.Fatalf("sync dir: %v", err)
	}
	if err := syncDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
