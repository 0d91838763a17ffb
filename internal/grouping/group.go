package grouping

import (
	"cmp"
	"slices"

	"bindery/internal/metadata"
)

// File pairs a source archive path with its parsed metadata.
type File struct {
	Path string
	Info metadata.Info
}

// VolumeGroup collects the source archives that contribute to one output
// volume, keyed by (title, volume). Files are ordered by ascending chapter.
type VolumeGroup struct {
	Title  string
	Volume int
	Files  []File
}

// Group extracts metadata for every path and collapses files sharing
// (title, volume) into VolumeGroups. Groups and their member files follow the
// total order (title, volume, chapter); the source path is the final
// tie-break, so the result is independent of input order.
func Group(paths []string, opts metadata.Options) []VolumeGroup {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		files = append(files, File{Path: path, Info: metadata.Extract(path, opts)})
	}

	slices.SortFunc(files, func(a, b File) int {
		if c := cmp.Compare(a.Info.Title, b.Info.Title); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Info.Volume, b.Info.Volume); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Info.Chapter, b.Info.Chapter); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})

	var groups []VolumeGroup
	for _, file := range files {
		n := len(groups)
		if n == 0 || groups[n-1].Title != file.Info.Title || groups[n-1].Volume != file.Info.Volume {
			groups = append(groups, VolumeGroup{Title: file.Info.Title, Volume: file.Info.Volume})
			n++
		}
		groups[n-1].Files = append(groups[n-1].Files, file)
	}
	return groups
}
