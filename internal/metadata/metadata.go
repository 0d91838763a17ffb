package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Info is the parsed identity of a source archive. Chapter and Volume default
// to 0 when the filename carries no recognizable number.
type Info struct {
	Title   string
	Chapter int
	Volume  int
}

// Options adjust extraction behavior.
type Options struct {
	// ManualTitle overrides title inference when non-empty.
	ManualTitle string
	// TitleCase normalizes derived titles to title case. Manual titles are
	// used verbatim.
	TitleCase bool
}

var (
	volumePattern  = regexp.MustCompile(`(?i)(?:vol(?:ume)?\.?\s*|v\.?\s*)(\d+)`)
	chapterPattern = regexp.MustCompile(`(?i)ch(?:apter)?\.?\s*(\d+)`)
	// tokenPattern marks where the title ends: the first volume or chapter
	// marker in the stem.
	tokenPattern = regexp.MustCompile(`(?i)(?:vol(?:ume)?\.?\s*|v\.?\s*)\d+|ch(?:apter)?\.?\s*\d+`)

	titleCaser = cases.Title(language.Und)
)

// Extract parses title, chapter, and volume out of an archive path. It never
// fails: filenames without recognizable markers yield chapter 0, volume 0,
// and the whole stem as the title, so every input remains groupable.
func Extract(path string, opts Options) Info {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	info := Info{
		Volume:  matchNumber(volumePattern, stem),
		Chapter: matchNumber(chapterPattern, stem),
	}

	if opts.ManualTitle != "" {
		info.Title = opts.ManualTitle
		return info
	}

	titlePart := stem
	if loc := tokenPattern.FindStringIndex(stem); loc != nil {
		titlePart = stem[:loc[0]]
	}
	info.Title = normalizeTitle(titlePart)
	if info.Title == "" {
		// A stem like "v1" leaves nothing before the marker.
		info.Title = normalizeTitle(stem)
	}
	if opts.TitleCase {
		info.Title = titleCaser.String(info.Title)
	}
	return info
}

func matchNumber(pattern *regexp.Regexp, stem string) int {
	m := pattern.FindStringSubmatch(stem)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digit runs longer than an int; treat as unnumbered.
		return 0
	}
	return n
}

// normalizeTitle converts separator characters to spaces and collapses runs
// of whitespace.
func normalizeTitle(raw string) string {
	raw = strings.Trim(raw, "_ ")
	raw = strings.ReplaceAll(raw, "_", " ")
	raw = strings.ReplaceAll(raw, ".", " ")
	return strings.Join(strings.Fields(raw), " ")
}
