package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/pipeline"
	"bindery/internal/testsupport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(t.TempDir(), "staging")
	cfg.Paths.LibraryDir = ""
	return &cfg
}

func writeFrierenInput(t *testing.T, input string) {
	t.Helper()
	testsupport.WriteCBZ(t, filepath.Join(input, "Frieren_Ch1_v1.cbz"), "a.jpg", "b.jpg", "c.jpg")
	testsupport.WriteCBZ(t, filepath.Join(input, "Frieren_Ch2_v1.cbz"), "d.jpg", "e.jpg")
	testsupport.WriteCBZ(t, filepath.Join(input, "Frieren_Ch1_v2.cbz"), "f.jpg", "g.jpg", "h.jpg", "i.jpg")
}

func TestRunPerVolume(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")
	writeFrierenInput(t, input)

	cfg := testConfig(t)
	p := pipeline.New(cfg, nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{InputDir: input, OutputDir: output})
	if err != nil {
		t.Fatal(err)
	}
	if result.Discovered != 3 || result.Groups != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Outputs) != 2 || result.Pages != 9 {
		t.Fatalf("unexpected outputs: %+v", result)
	}

	v1 := filepath.Join(output, "Frieren_Volume_1.cbz")
	v2 := filepath.Join(output, "Frieren_Volume_2.cbz")

	names := testsupport.EntryNames(t, v1)
	want := []string{"0001.jpg", "0002.jpg", "0003.jpg", "0004.jpg", "0005.jpg"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("volume 1 entries: got %v want %v", names, want)
	}
	// Chapter 1 pages come before chapter 2 pages.
	if got := testsupport.EntryContent(t, v1, "0001.jpg"); got != "page:a.jpg" {
		t.Fatalf("unexpected first page: %q", got)
	}
	if got := testsupport.EntryContent(t, v1, "0004.jpg"); got != "page:d.jpg" {
		t.Fatalf("unexpected fourth page: %q", got)
	}

	if got := len(testsupport.EntryNames(t, v2)); got != 4 {
		t.Fatalf("volume 2 should have 4 entries, got %d", got)
	}

	// Staging session is gone after the run.
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "session-") {
			t.Fatalf("staging session left behind: %s", entry.Name())
		}
	}
}

func TestRunCombined(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")
	writeFrierenInput(t, input)

	p := pipeline.New(testConfig(t), nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{
		InputDir:  input,
		OutputDir: output,
		Combined:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 1 {
		t.Fatalf("expected a single combined archive, got %+v", result.Outputs)
	}

	combined := filepath.Join(output, "Frieren.cbz")
	if result.Outputs[0].Path != combined {
		t.Fatalf("unexpected combined path: %s", result.Outputs[0].Path)
	}
	if got := len(testsupport.EntryNames(t, combined)); got != 9 {
		t.Fatalf("combined archive should have 9 entries, got %d", got)
	}
}

func TestRunEmptyInputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}

	p := pipeline.New(testConfig(t), nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{InputDir: input, OutputDir: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("empty input must not fail: %v", err)
	}
	if result.Discovered != 0 || len(result.Outputs) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Fatal("no output directory should be created for an empty run")
	}
}

func TestRunMissingInputDirFails(t *testing.T) {
	p := pipeline.New(testConfig(t), nil, logging.NewNop())
	if _, err := p.Run(context.Background(), pipeline.Options{InputDir: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

func TestRunManualTitle(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")
	testsupport.WriteCBZ(t, filepath.Join(input, "A_v1.cbz"), "a.jpg")
	testsupport.WriteCBZ(t, filepath.Join(input, "B_v1.cbz"), "b.jpg")

	p := pipeline.New(testConfig(t), nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{
		InputDir:    input,
		OutputDir:   output,
		ManualTitle: "Custom Name",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Groups != 1 || len(result.Outputs) != 1 {
		t.Fatalf("expected a single merged group, got %+v", result)
	}
	archive := filepath.Join(output, "Custom Name_Volume_1.cbz")
	if got := len(testsupport.EntryNames(t, archive)); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestRunSkipsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")
	testsupport.WriteCBZ(t, filepath.Join(input, "Title_Ch1_v1.cbz"), "a.jpg")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(input, "Title_Ch2_v1.cbz"), []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := pipeline.New(testConfig(t), nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{InputDir: input, OutputDir: output})
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped source, got %d", result.Skipped)
	}
	archive := filepath.Join(output, "Title_Volume_1.cbz")
	if got := len(testsupport.EntryNames(t, archive)); got != 1 {
		t.Fatalf("expected archive built from readable sources, got %d entries", got)
	}
}

func TestRunOutputDefaultsToInputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	testsupport.WriteCBZ(t, filepath.Join(input, "Solo_v1.cbz"), "a.jpg")

	p := pipeline.New(testConfig(t), nil, logging.NewNop())

	result, err := p.Run(context.Background(), pipeline.Options{InputDir: input})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 1 {
		t.Fatalf("expected one archive, got %+v", result)
	}
	if filepath.Dir(result.Outputs[0].Path) != input {
		t.Fatalf("archive should land in the input dir, got %s", result.Outputs[0].Path)
	}
}

func TestRunRecordsCatalog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out")
	writeFrierenInput(t, input)

	store, err := catalog.Open(ctx, filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	p := pipeline.New(testConfig(t), store, logging.NewNop())
	if _, err := p.Run(ctx, pipeline.Options{InputDir: input, OutputDir: output}); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 catalog run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != catalog.StatusCompleted || run.Archives != 2 || run.Pages != 9 {
		t.Fatalf("unexpected run record: %+v", run)
	}

	archives, err := store.ArchivesForRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 2 {
		t.Fatalf("expected 2 archive records, got %d", len(archives))
	}
}

func TestPlanDoesNotTouchFilesystem(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	writeFrierenInput(t, input)

	cfg := testConfig(t)
	p := pipeline.New(cfg, nil, logging.NewNop())

	groups, err := p.Plan(pipeline.Options{InputDir: input})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if _, err := os.Stat(cfg.Paths.StagingDir); !os.IsNotExist(err) {
		t.Fatal("plan must not create the staging area")
	}
}
