package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Schema identifies the embedded migration set. A database is usable by this build only when its
// bootstrap state records the same version and checksum.
type Schema struct {
	Version  uint
	Checksum string
}

func (s Schema) VersionString() string {
	return strconv.FormatUint(uint64(s.Version), 10)
}

// EmbeddedSchema reads the up migrations compiled into the binary.
func EmbeddedSchema() (Schema, error) {
	names, err := upMigrations()
	if err != nil {
		return Schema{}, err
	}

	var latest uint
	hasher := sha256.New()
	for _, name := range names {
		version, ok := parseMigrationVersion(name)
		if !ok {
			return Schema{}, fmt.Errorf("migration %s: name must start with a numeric version", name)
		}
		latest = max(latest, version)

		content, err := embeddedMigrations.ReadFile(path.Join(migrationsDir, name))
		if err != nil {
			return Schema{}, fmt.Errorf("read migration %s: %w", name, err)
		}
		_, _ = hasher.Write([]byte(name + "\x00"))
		_, _ = hasher.Write(content)
		_, _ = hasher.Write([]byte{0})
	}

	if latest == 0 {
		return Schema{}, errors.New("no embedded migrations found")
	}
	return Schema{Version: latest, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func upMigrations() ([]string, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func parseMigrationVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, false
	}
	v, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}
