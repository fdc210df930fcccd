package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type event struct {
	org  string
	path string
}

type recordingHandler struct {
	mu      sync.Mutex
	ready   []event
	removed []event
}

func (h *recordingHandler) FileReady(_ context.Context, inbox Inbox, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = append(h.ready, event{inbox.OrganizationID, path})
}

func (h *recordingHandler) FileRemoved(_ context.Context, inbox Inbox, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, event{inbox.OrganizationID, path})
}

func (h *recordingHandler) snapshot() (ready, removed []event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event(nil), h.ready...), append([]event(nil), h.removed...)
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func contains(events []event, org, path string) bool {
	for _, e := range events {
		if e.org == org && e.path == path {
			return true
		}
	}
	return false
}

func TestNew_requiresOrganization(t *testing.T) {
	if _, err := New([]Inbox{{Path: t.TempDir()}}, nil, &recordingHandler{}); err == nil {
		t.Error("expected error for inbox without organization")
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	w, err := New([]Inbox{{Path: dir, OrganizationID: "org-a"}}, []string{".txt"}, h, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	txt := filepath.Join(dir, "f.txt")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(txt, []byte("hello"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "f.md"), []byte("skip"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		ready, _ := h.snapshot()
		return contains(ready, "org-a", txt)
	})
	time.Sleep(150 * time.Millisecond)
	ready, _ := h.snapshot()
	if len(ready) != 1 {
		t.Errorf("expected one debounced event, got %v", ready)
	}
}

func TestWatcher_RemovedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	h := &recordingHandler{}
	w, err := New([]Inbox{{Path: dir, OrganizationID: "org-a"}}, nil, h)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, removed := h.snapshot()
		return contains(removed, "org-a", path)
	})
}

func TestWatcher_RunSyncsExistingFilesPerInbox(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	b := filepath.Join(base, "b")
	for _, d := range []string{a, b} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(a, "w2.pdf"), []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(b, "invoice.pdf"), []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	h := &recordingHandler{}
	w, err := New([]Inbox{
		{Path: a, OrganizationID: "org-a"},
		{Path: b, OrganizationID: "org-b"},
	}, []string{"pdf"}, h)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	waitFor(t, func() bool {
		ready, _ := h.snapshot()
		return contains(ready, "org-a", filepath.Join(a, "w2.pdf")) &&
			contains(ready, "org-b", filepath.Join(b, "invoice.pdf"))
	})
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestWatcher_Start_createsMissingInbox(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "org-a")
	w, err := New([]Inbox{{Path: root, OrganizationID: "org-a"}}, nil, &recordingHandler{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("inbox should exist after Start: %v", err)
	}
}

func TestWatcher_NewFolderInRecursiveInbox(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	w, err := New([]Inbox{{Path: dir, OrganizationID: "org-a"}}, []string{".txt"}, h,
		WithRecursive(true), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Build the folder elsewhere and move it in, the way a copy tool would.
	staging := filepath.Join(t.TempDir(), "batch")
	if err := os.MkdirAll(staging, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staging, "receipt.txt"), []byte("total 5"), 0644); err != nil {
		t.Fatal(err)
	}
	moved := filepath.Join(dir, "batch")
	if err := os.Rename(staging, moved); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		ready, _ := h.snapshot()
		return contains(ready, "org-a", filepath.Join(moved, "receipt.txt"))
	})
}

func TestInboxFor_deepestWins(t *testing.T) {
	w, err := New([]Inbox{
		{Path: "/srv/inbox", OrganizationID: "org-a"},
		{Path: "/srv/inbox/client-1", OrganizationID: "org-a", ClientID: "client-1"},
	}, nil, &recordingHandler{})
	if err != nil {
		t.Fatal(err)
	}
	in, ok := w.inboxFor("/srv/inbox/client-1/w2.pdf")
	if !ok || in.ClientID != "client-1" {
		t.Errorf("got %+v, %v", in, ok)
	}
	in, ok = w.inboxFor("/srv/inbox/other.pdf")
	if !ok || in.ClientID != "" {
		t.Errorf("got %+v, %v", in, ok)
	}
	if _, ok := w.inboxFor("/srv/elsewhere/x.pdf"); ok {
		t.Error("path outside inboxes should not resolve")
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.pdf", []string{".pdf"}, true},
		{"/a/b.PDF", []string{"pdf"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
