package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Latest scans dir for snapshot files and returns, per corpus, the path of
// the newest one. Files that do not follow the <corpus>_<nanos>.cdtm naming
// are skipped. A missing directory yields an empty map.
func Latest(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading snapshot dir %s: %w", dir, err)
	}

	newest := make(map[string]int64)
	paths := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cdtm") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".cdtm")
		sep := strings.LastIndex(base, "_")
		if sep <= 0 {
			continue
		}
		nanos, err := strconv.ParseInt(base[sep+1:], 10, 64)
		if err != nil {
			continue
		}
		corpusID := base[:sep]
		if nanos > newest[corpusID] {
			newest[corpusID] = nanos
			paths[corpusID] = filepath.Join(dir, entry.Name())
		}
	}
	return paths, nil
}
