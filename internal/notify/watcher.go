package notify

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// PayloadWatcher watches the payloads directory and passes every new payload
// file to a callback. Files are removed once read.
type PayloadWatcher struct {
	dir      string
	callback func(name string, data []byte)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewPayloadWatcher creates a watcher for {dataPath}/payloads/.
func NewPayloadWatcher(dataPath string, callback func(name string, data []byte)) *PayloadWatcher {
	return &PayloadWatcher{
		dir:      filepath.Join(dataPath, "payloads"),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Dir returns the watched directory.
func (pw *PayloadWatcher) Dir() string { return pw.dir }

// Start begins watching. Payload files already present are processed first,
// oldest first. Call Stop() to clean up.
func (pw *PayloadWatcher) Start() error {
	if err := os.MkdirAll(pw.dir, 0o700); err != nil {
		return err
	}

	pw.drainExisting()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(pw.dir); err != nil {
		_ = w.Close()
		return err
	}
	pw.watcher = w

	go pw.loop()
	log.Printf("notify: watching %s for payloads", pw.dir)
	return nil
}

// Stop shuts down the watcher.
func (pw *PayloadWatcher) Stop() {
	if pw.watcher == nil {
		return
	}
	_ = pw.watcher.Close()
	<-pw.done
}

func (pw *PayloadWatcher) loop() {
	defer close(pw.done)
	for {
		select {
		case evt, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isPayloadFile(evt.Name) {
				pw.processFile(evt.Name)
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

func isPayloadFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, payloadExt) && !strings.HasPrefix(base, ".")
}

func (pw *PayloadWatcher) drainExisting() {
	entries, err := os.ReadDir(pw.dir)
	if err != nil {
		return
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && isPayloadFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	// Names start with a nanosecond timestamp.
	sort.Strings(names)
	for _, name := range names {
		pw.processFile(filepath.Join(pw.dir, name))
	}
}

func (pw *PayloadWatcher) processFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // file already consumed by another process
	}
	_ = os.Remove(path)

	if pw.callback != nil {
		pw.callback(filepath.Base(path), data)
	}
}
