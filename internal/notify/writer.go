// Package notify hands configuration payloads from one process to another
// through files in a shared directory: a PayloadWriter drops payload files
// and a PayloadWatcher applies them as they appear.
package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const payloadExt = ".json"

// PayloadWriter writes payload files to a shared directory.
type PayloadWriter struct {
	dir string
}

// NewPayloadWriter creates a writer that emits payloads to {dataPath}/payloads/.
func NewPayloadWriter(dataPath string) *PayloadWriter {
	return &PayloadWriter{dir: filepath.Join(dataPath, "payloads")}
}

// Write stores data as a new payload file labelled label and returns its
// path. The file appears atomically: watchers never see partial content.
func (w *PayloadWriter) Write(label string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return "", fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeLabel(label))

	tmp := filepath.Join(w.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("notify: write %s: %w", tmp, err)
	}
	path := filepath.Join(w.dir, name+payloadExt)
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("notify: publish %s: %w", path, err)
	}
	return path, nil
}

// sanitizeLabel replaces characters unsafe for filenames.
func sanitizeLabel(label string) string {
	if label == "" {
		return "payload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
}
