package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bindery/internal/cbz"
	"bindery/internal/grouping"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/textutil"
)

// StagedGroup is a volume group whose contributing archives have been
// extracted under Dir, one subdirectory per source so entry names from
// different chapters cannot collide.
type StagedGroup struct {
	Group   grouping.VolumeGroup
	Dir     string
	Sources int
	Entries int
}

// StageGroups extracts every group's source archives into the session, in the
// established group and chapter order. Unreadable source archives are skipped
// and counted rather than failing the run; the returned count reports them.
func StageGroups(ctx context.Context, sess *Session, groups []grouping.VolumeGroup, logger *slog.Logger) ([]StagedGroup, int, error) {
	log := logging.NewComponentLogger(logger, "stager")

	seen := make(map[string]int, len(groups))
	staged := make([]StagedGroup, 0, len(groups))
	skipped := 0

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return staged, skipped, err
		}

		dir := filepath.Join(sess.Dir(), groupDirName(group, seen))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return staged, skipped, services.Wrap(services.ErrTransient, "staging", "create volume directory", dir, err)
		}

		sg := StagedGroup{Group: group, Dir: dir}
		for i, file := range group.Files {
			sub := filepath.Join(dir, sourceDirName(i, file.Path))
			entries, err := cbz.Unpack(file.Path, sub)
			if err != nil {
				log.Warn("skipping unreadable source archive",
					logging.String("source", filepath.Base(file.Path)),
					logging.Error(err),
				)
				_ = os.RemoveAll(sub)
				skipped++
				continue
			}
			sg.Sources++
			sg.Entries += entries
			log.Debug("staged source archive",
				logging.String("source", filepath.Base(file.Path)),
				logging.Int("entries", entries),
			)
		}

		if sg.Sources == 0 && len(group.Files) > 0 {
			log.Warn("volume has no readable sources",
				logging.String("title", group.Title),
				logging.Int("volume", group.Volume),
			)
		}
		staged = append(staged, sg)
	}

	return staged, skipped, nil
}

// groupDirName derives a collision-free directory name from the group key.
// Sanitizing distinct titles can map them to the same name, so a counter
// suffix keeps staging directories unique within the session.
func groupDirName(group grouping.VolumeGroup, seen map[string]int) string {
	base := textutil.SafeName(fmt.Sprintf("%s_Volume_%d", group.Title, group.Volume))
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s~%d", base, n)
	}
	return base
}

// sourceDirName prefixes the chapter-order index so staged sources sort in
// extraction order. The lowercased stem token is informational; the index
// alone keeps the name unique, so an unusable stem just drops off.
func sourceDirName(index int, path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if token := stemToken(stem); token != "" {
		return fmt.Sprintf("%03d_%s", index+1, token)
	}
	return fmt.Sprintf("%03d", index+1)
}

func stemToken(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_-")
}
