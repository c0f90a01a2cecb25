package sqlite

import (
	"errors"
	"io/fs"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

// walSuffixes are the sidecar files SQLite keeps next to a WAL-mode database.
var walSuffixes = []string{"-shm", "-wal"}

// dbPathFromDSN returns the file behind dsn: a bare path or a file: URI.
// In-memory and unparseable DSNs yield "".
func dbPathFromDSN(dsn string) string {
	path := dsn
	if rest, ok := strings.CutPrefix(dsn, "file:"); ok {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path = u.Path
		if path == "" {
			path, _, _ = strings.Cut(rest, "?")
		}
	}
	if path == ":memory:" {
		return ""
	}
	return path
}

// isRecoverableWALError matches the open errors a killed writer leaves behind.
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []string{"disk I/O error", "database is locked"} {
		if strings.Contains(err.Error(), marker) {
			return true
		}
	}
	return false
}

// isWALStale reports whether dbPath has sidecar files that no process holds
// open. It needs lsof; without it nothing is considered stale.
func isWALStale(dbPath string) bool {
	args := []string{"-t", dbPath}
	found := false
	for _, suffix := range walSuffixes {
		if _, err := os.Stat(dbPath + suffix); err == nil {
			found = true
		}
		args = append(args, dbPath+suffix)
	}
	if !found {
		return false
	}

	lsof, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}
	out, err := exec.Command(lsof, args...).Output()
	if err != nil {
		return true // lsof exits 1 when no process has the files open
	}
	return len(strings.TrimSpace(string(out))) == 0
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range walSuffixes {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("sqlite: failed to remove stale %s%s: %v", dbPath, suffix, err)
		}
	}
}
