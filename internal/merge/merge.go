package merge

import (
	"fmt"
	"log/slog"
	"os"

	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/staging"
)

// Combine copies every staged group's tree into dest, in the order the groups
// were staged. Files overwrite same-named files from earlier groups and
// directories deep-merge, so the last group wins any collision and the result
// is deterministic for a given group order.
func Combine(dest string, staged []staging.StagedGroup, logger *slog.Logger) error {
	log := logging.NewComponentLogger(logger, "combiner")

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create combined directory: %w", err)
	}

	for _, sg := range staged {
		if sg.Sources == 0 {
			continue
		}
		if err := fileutil.CopyTree(sg.Dir, dest); err != nil {
			return fmt.Errorf("merge %s volume %d: %w", sg.Group.Title, sg.Group.Volume, err)
		}
		log.Debug("merged volume into combined tree",
			logging.String("title", sg.Group.Title),
			logging.Int("volume", sg.Group.Volume),
		)
	}
	return nil
}
