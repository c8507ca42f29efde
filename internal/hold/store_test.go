package hold

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mailwarden/mailwarden/internal/email"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "hold.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)

	msg := &email.Email{
		From:    "agent@localhost",
		To:      []string{"x@example.com"},
		Cc:      []string{"y@example.com"},
		Subject: "quarterly report",
		Raw:     []byte("From: agent@localhost\r\n\r\nbody"),
	}

	id, err := store.Put(msg, "1 HIGH severity")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == "" {
		t.Fatal("Put returned empty ID")
	}

	entry, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.From != msg.From {
		t.Errorf("From: got %q, want %q", entry.From, msg.From)
	}
	if len(entry.To) != 2 {
		t.Errorf("To: got %v, want to+cc", entry.To)
	}
	if entry.Subject != msg.Subject {
		t.Errorf("Subject: got %q, want %q", entry.Subject, msg.Subject)
	}
	if entry.Summary != "1 HIGH severity" {
		t.Errorf("Summary: got %q", entry.Summary)
	}
	if string(entry.Raw) != string(msg.Raw) {
		t.Errorf("Raw: got %q, want %q", entry.Raw, msg.Raw)
	}
	if entry.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Get("no-such-id"); err == nil {
		t.Error("expected error for missing entry, got nil")
	}
}

func TestStore_ListOldestFirst(t *testing.T) {
	store := openTestStore(t)

	subjects := []string{"first", "second", "third"}
	for _, subj := range subjects {
		if _, err := store.Put(&email.Email{Subject: subj}, ""); err != nil {
			t.Fatalf("Put(%s): %v", subj, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List: got %d entries, want 3", len(entries))
	}
	for i, subj := range subjects {
		if entries[i].Subject != subj {
			t.Errorf("entries[%d].Subject: got %q, want %q", i, entries[i].Subject, subj)
		}
	}
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Put(&email.Email{Subject: "doomed"}, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(id); err == nil {
		t.Error("entry still present after Delete")
	}

	// Deleting a missing key is not an error in bbolt.
	if err := store.Delete(id); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestStore_EmptyList(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List: got %d entries, want 0", len(entries))
	}
}
