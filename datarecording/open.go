package datarecording

import (
	"fmt"
	"os"
	"strings"
)

// Open creates a recorder for target. A clickhouse:// URL selects a ClickHouse
// server. Anything else names a SQLite file, with or without the .sqlite3
// extension, which must not exist yet.
func Open(target string) (DataRecorder, error) {
	if strings.HasPrefix(target, "clickhouse://") {
		opts, err := ParseClickHouseURL(target)
		if err != nil {
			return nil, err
		}

		return NewClickHouseRecorder(opts)
	}

	path := strings.TrimSuffix(target, ".sqlite3")

	if _, err := os.Stat(path + ".sqlite3"); err == nil {
		return nil, fmt.Errorf("file %s.sqlite3 already exists", path)
	}

	return NewDataRecorder(path), nil
}
