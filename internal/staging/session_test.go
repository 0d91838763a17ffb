package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/grouping"
	"bindery/internal/logging"
	"bindery/internal/metadata"
	"bindery/internal/staging"
	"bindery/internal/testsupport"
)

func TestAcquireReleaseRemovesSession(t *testing.T) {
	root := t.TempDir()

	sess, err := staging.Acquire(root, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	dir := sess.Dir()
	if !strings.HasPrefix(filepath.Base(dir), "session-") {
		t.Fatalf("unexpected session dir name: %s", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("session dir missing: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "leftover"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	sess.Release()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("session dir should be removed, stat err: %v", err)
	}

	// Release is idempotent.
	sess.Release()
}

func TestAcquireRejectsSecondRun(t *testing.T) {
	root := t.TempDir()

	first, err := staging.Acquire(root, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	if _, err := staging.Acquire(root, logging.NewNop()); err == nil {
		t.Fatal("expected second acquire to fail while lock is held")
	}

	first.Release()
	second, err := staging.Acquire(root, logging.NewNop())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	second.Release()
}

func TestAcquireEmptyRoot(t *testing.T) {
	if _, err := staging.Acquire("  ", logging.NewNop()); err == nil {
		t.Fatal("expected error for empty staging root")
	}
}

func TestStageGroupsExtractsInOrder(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	testsupport.WriteCBZ(t, filepath.Join(input, "Frieren_Ch1_v1.cbz"), "a.jpg", "b.jpg")
	testsupport.WriteCBZ(t, filepath.Join(input, "Frieren_Ch2_v1.cbz"), "c.jpg")

	groups := grouping.Group([]string{
		filepath.Join(input, "Frieren_Ch1_v1.cbz"),
		filepath.Join(input, "Frieren_Ch2_v1.cbz"),
	}, metadata.Options{})

	sess, err := staging.Acquire(filepath.Join(dir, "staging"), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Release()

	staged, skipped, err := staging.StageGroups(context.Background(), sess, groups, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skips, got %d", skipped)
	}
	if len(staged) != 1 {
		t.Fatalf("expected 1 staged group, got %d", len(staged))
	}

	sg := staged[0]
	if sg.Sources != 2 || sg.Entries != 3 {
		t.Fatalf("unexpected staged counts: %+v", sg)
	}
	if filepath.Base(sg.Dir) != "Frieren_Volume_1" {
		t.Fatalf("unexpected group dir: %s", sg.Dir)
	}

	// One subdirectory per source, prefixed with the chapter-order index.
	entries, err := os.ReadDir(sg.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 source subdirs, got %d", len(entries))
	}
	if entries[0].Name() != "001_frieren_ch1_v1" || entries[1].Name() != "002_frieren_ch2_v1" {
		t.Fatalf("unexpected subdir names: %s, %s", entries[0].Name(), entries[1].Name())
	}
}

func TestStageGroupsTokenizesSourceNames(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	src := filepath.Join(input, "Frieren Ch.1 (Digital)!.cbz")
	testsupport.WriteCBZ(t, src, "a.jpg")

	groups := grouping.Group([]string{src}, metadata.Options{})

	sess, err := staging.Acquire(filepath.Join(dir, "staging"), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Release()

	staged, _, err := staging.StageGroups(context.Background(), sess, groups, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(staged[0].Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 source subdir, got %d", len(entries))
	}
	// Lowercased stem with everything outside [a-z0-9_-] squashed to
	// underscores and edge underscores trimmed.
	if entries[0].Name() != "001_frieren_ch_1__digital" {
		t.Fatalf("unexpected subdir name: %s", entries[0].Name())
	}
}

func TestStageGroupsSkipsUnreadableArchive(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	good := filepath.Join(input, "Title_Ch1_v1.cbz")
	bad := filepath.Join(input, "Title_Ch2_v1.cbz")
	testsupport.WriteCBZ(t, good, "a.jpg")
	if err := os.MkdirAll(filepath.Dir(bad), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	groups := grouping.Group([]string{good, bad}, metadata.Options{})

	sess, err := staging.Acquire(filepath.Join(dir, "staging"), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Release()

	staged, skipped, err := staging.StageGroups(context.Background(), sess, groups, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped source, got %d", skipped)
	}
	if staged[0].Sources != 1 || staged[0].Entries != 1 {
		t.Fatalf("unexpected staged counts: %+v", staged[0])
	}
}

func TestStageGroupsHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteCBZ(t, filepath.Join(dir, "A_v1.cbz"), "a.jpg")
	groups := grouping.Group([]string{filepath.Join(dir, "A_v1.cbz")}, metadata.Options{})

	sess, err := staging.Acquire(filepath.Join(dir, "staging"), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := staging.StageGroups(ctx, sess, groups, logging.NewNop()); err == nil {
		t.Fatal("expected context error")
	}
}
