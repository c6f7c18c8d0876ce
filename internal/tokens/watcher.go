package tokens

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const pollInterval = 60 * time.Second

// FileSecret reads the HMAC key from a file and keeps it current. A change
// on disk is picked up via fsnotify, with a slow polling loop as fallback so
// a missed event never strands a stale key.
type FileSecret struct {
	path string

	mu      sync.RWMutex
	secret  []byte
	modTime time.Time
}

func NewFileSecret(path string) (*FileSecret, error) {
	f := &FileSecret{path: path}
	if err := f.reload(); err != nil {
		return nil, fmt.Errorf("load token secret: %w", err)
	}
	return f, nil
}

func (f *FileSecret) Secret() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.secret
}

func (f *FileSecret) reload() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	secret := []byte(strings.TrimSpace(string(data)))
	if len(secret) == 0 {
		return fmt.Errorf("token secret file %s is empty", f.path)
	}

	f.mu.Lock()
	f.secret = secret
	f.modTime = info.ModTime()
	f.mu.Unlock()
	return nil
}

func (f *FileSecret) reloadIfChanged() {
	info, err := os.Stat(f.path)
	if err != nil {
		return
	}
	f.mu.RLock()
	seen := f.modTime
	f.mu.RUnlock()
	if !info.ModTime().After(seen) {
		return
	}
	if err := f.reload(); err != nil {
		log.Printf("[SECRET] reload failed: %v", err)
	}
}

// Watch monitors the secret file until ctx is done.
func (f *FileSecret) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("[SECRET] fsnotify unavailable (%v), falling back to polling", err)
		usePolling = true
	} else if err := watcher.Add(f.path); err != nil {
		log.Printf("[SECRET] cannot watch %s (%v), falling back to polling", f.path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
						// Debounce editors that write in multiple ops.
						time.Sleep(100 * time.Millisecond)
						if err := f.reload(); err != nil {
							log.Printf("[SECRET] reload failed: %v", err)
						} else {
							log.Printf("[SECRET] token secret reloaded from %s", f.path)
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("[SECRET] watcher error: %v", err)
				}
			}
		}()
	}

	// Polling safety net runs regardless; reload is mtime-gated so the
	// steady state is a single Stat per interval.
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.reloadIfChanged()
			}
		}
	}()
}
