package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bindery/internal/catalog"
	"bindery/internal/cbz"
	"bindery/internal/config"
	"bindery/internal/grouping"
	"bindery/internal/logging"
	"bindery/internal/merge"
	"bindery/internal/metadata"
	"bindery/internal/services"
	"bindery/internal/staging"
	"bindery/internal/textutil"
)

// Run modes recorded in the catalog.
const (
	ModePerVolume = "per-volume"
	ModeCombined  = "combined"
)

// Options describe one reorganizer run.
type Options struct {
	// InputDir is scanned (non-recursively) for .cbz files.
	InputDir string
	// OutputDir receives the produced archives. Empty falls back to the
	// configured library dir, then to InputDir.
	OutputDir string
	// ManualTitle overrides title inference for every file.
	ManualTitle string
	// Combined produces one archive merging all volumes instead of one
	// archive per volume.
	Combined bool
}

// OutputArchive describes one produced archive.
type OutputArchive struct {
	Path    string
	Title   string
	Volume  int
	Pages   int
	Sources int
}

// Result summarizes a completed run.
type Result struct {
	Discovered int
	Groups     int
	Skipped    int
	Pages      int
	Outputs    []OutputArchive
}

// Pipeline wires discovery, grouping, staging, and building into one run.
type Pipeline struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs a pipeline. The catalog store is optional; a nil store
// disables run history.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Discover lists the .cbz files directly inside inputDir, sorted by path.
// A missing or unreadable directory is a fatal configuration error.
func Discover(inputDir string) ([]string, error) {
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "discovery", "resolve input path", inputDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "discovery", "inspect input path", abs, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "discovery", "inspect input path", abs+" is not a directory", nil)
	}

	matches, err := filepath.Glob(filepath.Join(abs, "*"+cbz.Extension))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "scan input path", abs, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Plan discovers and groups the input without staging or writing anything.
func (p *Pipeline) Plan(opts Options) ([]grouping.VolumeGroup, error) {
	files, err := Discover(opts.InputDir)
	if err != nil {
		return nil, err
	}
	return grouping.Group(files, p.extractOptions(opts)), nil
}

// Run executes the full pipeline. The staging session is released on every
// exit path. It returns a nil error with an empty Result when the input
// directory holds no archives.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	files, err := Discover(opts.InputDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Discovered: len(files)}
	if len(files) == 0 {
		p.logger.Info("no CBZ files found", logging.String("input", opts.InputDir))
		return result, nil
	}

	groups := grouping.Group(files, p.extractOptions(opts))
	result.Groups = len(groups)
	p.logger.Info("grouped source archives",
		logging.Int("files", len(files)),
		logging.Int("groups", len(groups)),
	)

	outputDir, err := p.resolveOutputDir(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "building", "create output directory", outputDir, err)
	}

	mode := ModePerVolume
	if opts.Combined {
		mode = ModeCombined
	}
	run := p.beginRun(ctx, mode, opts.InputDir, outputDir)

	staleAge := time.Duration(p.cfg.Staging.StaleAfterHours) * time.Hour
	if staleAge > 0 {
		staging.CleanStale(p.cfg.Paths.StagingDir, staleAge, p.logger)
	}

	sess, err := staging.Acquire(p.cfg.Paths.StagingDir, p.logger)
	if err != nil {
		p.finishRun(ctx, run, result, catalog.StatusFailed)
		return nil, services.Wrap(services.ErrTransient, "staging", "acquire staging area", "", err)
	}
	defer sess.Release()

	staged, skipped, err := staging.StageGroups(ctx, sess, groups, p.logger)
	result.Skipped = skipped
	if err != nil {
		p.finishRun(ctx, run, result, catalog.StatusFailed)
		return nil, err
	}

	var buildErr error
	if opts.Combined {
		buildErr = p.buildCombined(ctx, sess, staged, outputDir, run, result)
	} else {
		buildErr = p.buildPerVolume(ctx, staged, outputDir, run, result)
	}

	status := catalog.StatusCompleted
	if buildErr != nil {
		status = catalog.StatusFailed
	}
	p.finishRun(ctx, run, result, status)
	if buildErr != nil {
		return result, buildErr
	}

	p.logger.Info("run completed",
		logging.Int("discovered", result.Discovered),
		logging.Int("groups", result.Groups),
		logging.Int("archives", len(result.Outputs)),
		logging.Int("pages", result.Pages),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (p *Pipeline) buildPerVolume(ctx context.Context, staged []staging.StagedGroup, outputDir string, run *catalog.Run, result *Result) error {
	var errs []error
	for _, sg := range staged {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if sg.Sources == 0 {
			continue
		}

		outPath := filepath.Join(outputDir, VolumeArchiveName(sg.Group.Title, sg.Group.Volume))
		pages, err := cbz.Build(outPath, sg.Dir)
		if err != nil {
			// One broken output must not stop the remaining volumes.
			p.logger.Error("failed to build archive",
				logging.String("output", outPath),
				logging.Error(err),
			)
			errs = append(errs, services.Wrap(services.ErrArchive, "building", "write archive", outPath, err))
			continue
		}

		out := OutputArchive{
			Path:    outPath,
			Title:   sg.Group.Title,
			Volume:  sg.Group.Volume,
			Pages:   pages,
			Sources: sg.Sources,
		}
		result.Outputs = append(result.Outputs, out)
		result.Pages += pages
		p.recordArchive(ctx, run, out)
		p.logger.Info("wrote volume archive",
			logging.String("output", filepath.Base(outPath)),
			logging.Int("pages", pages),
		)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) buildCombined(ctx context.Context, sess *staging.Session, staged []staging.StagedGroup, outputDir string, run *catalog.Run, result *Result) error {
	combinedDir := filepath.Join(sess.Dir(), "combined")
	if err := merge.Combine(combinedDir, staged, p.logger); err != nil {
		return services.Wrap(services.ErrTransient, "combining", "merge staged volumes", "", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	outPath := filepath.Join(outputDir, CombinedArchiveName(staged))
	pages, err := cbz.Build(outPath, combinedDir)
	if err != nil {
		return services.Wrap(services.ErrArchive, "building", "write combined archive", outPath, err)
	}

	sources := 0
	title := ""
	for _, sg := range staged {
		sources += sg.Sources
		if title == "" {
			title = sg.Group.Title
		}
	}
	out := OutputArchive{Path: outPath, Title: title, Pages: pages, Sources: sources}
	result.Outputs = append(result.Outputs, out)
	result.Pages += pages
	p.recordArchive(ctx, run, out)
	p.logger.Info("wrote combined archive",
		logging.String("output", filepath.Base(outPath)),
		logging.Int("pages", pages),
	)
	return nil
}

func (p *Pipeline) extractOptions(opts Options) metadata.Options {
	return metadata.Options{
		ManualTitle: opts.ManualTitle,
		TitleCase:   p.cfg.Library.TitleCase,
	}
}

func (p *Pipeline) resolveOutputDir(opts Options) (string, error) {
	dir := opts.OutputDir
	if dir == "" {
		dir = p.cfg.Paths.LibraryDir
	}
	if dir == "" {
		dir = opts.InputDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "building", "resolve output path", dir, err)
	}
	return abs, nil
}

// VolumeArchiveName derives the output filename for one volume group.
func VolumeArchiveName(title string, volume int) string {
	name := textutil.SafeName(fmt.Sprintf("%s_Volume_%d", title, volume))
	return name + cbz.Extension
}

// CombinedArchiveName derives the output filename for combined mode: the
// first group's title, falling back to "combined" when no title is usable.
func CombinedArchiveName(staged []staging.StagedGroup) string {
	for _, sg := range staged {
		if name := textutil.SafeName(sg.Group.Title); name != "" {
			return name + cbz.Extension
		}
	}
	return "combined" + cbz.Extension
}

func (p *Pipeline) beginRun(ctx context.Context, mode, inputDir, outputDir string) *catalog.Run {
	if p.store == nil {
		return nil
	}
	run, err := p.store.BeginRun(ctx, mode, inputDir, outputDir)
	if err != nil {
		p.logger.Warn("failed to record run in catalog", logging.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *catalog.Run, result *Result, status string) {
	if p.store == nil || run == nil {
		return
	}
	run.Discovered = result.Discovered
	run.Groups = result.Groups
	run.Archives = len(result.Outputs)
	run.Pages = result.Pages
	run.Skipped = result.Skipped
	run.Status = status
	if err := p.store.FinishRun(ctx, run); err != nil {
		p.logger.Warn("failed to finish run in catalog", logging.Error(err))
	}
}

func (p *Pipeline) recordArchive(ctx context.Context, run *catalog.Run, out OutputArchive) {
	if p.store == nil || run == nil {
		return
	}
	archive := catalog.Archive{
		Path:    out.Path,
		Title:   out.Title,
		Volume:  out.Volume,
		Pages:   out.Pages,
		Sources: out.Sources,
	}
	if err := p.store.RecordArchive(ctx, run.ID, archive); err != nil {
		p.logger.Warn("failed to record archive in catalog", logging.Error(err))
	}
}
