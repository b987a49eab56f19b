// file: internal/ratelimit/exempt.go
// version: 1.0.0
// guid: a92e5c10-4f6d-4b83-97a1-8e0b3d6c21f5

package ratelimit

import (
	"bufio"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
)

// Exemptions is a set of trusted client IPs that bypass rate limiting.
// The set is loaded from a plain text file (one IP per line, '#' comments)
// and hot-reloaded when the file changes.
type Exemptions struct {
	mu      sync.RWMutex
	ips     map[string]struct{}
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadExemptions reads the trusted-IP file at path. An empty path yields an
// empty, file-less set.
func LoadExemptions(path string) (*Exemptions, error) {
	e := &Exemptions{ips: make(map[string]struct{}), path: path}
	if path == "" {
		return e, nil
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload re-reads the trusted-IP file and swaps in the new set.
func (e *Exemptions) Reload() error {
	f, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer f.Close()

	ips := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ips[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	e.ips = ips
	e.mu.Unlock()
	return nil
}

// Contains reports whether ip is trusted.
func (e *Exemptions) Contains(ip string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.ips[ip]
	return ok
}

// Len reports the number of trusted IPs.
func (e *Exemptions) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ips)
}

// Watch reloads the set whenever the backing file is rewritten. No-op when
// the set was created without a file.
func (e *Exemptions) Watch() error {
	if e.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(e.path); err != nil {
		watcher.Close()
		return err
	}
	e.watcher = watcher
	e.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := e.Reload(); err != nil {
						log.Printf("[WARN] failed to reload trusted IPs from %s: %v", e.path, err)
					} else {
						log.Printf("[INFO] reloaded trusted IPs from %s (%d entries)", e.path, e.Len())
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[WARN] trusted IP watcher error: %v", err)
			case <-e.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher if one is running.
func (e *Exemptions) Close() error {
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	if e.watcher != nil {
		err := e.watcher.Close()
		e.watcher = nil
		return err
	}
	return nil
}

// TrustedContext builds the bypass predicate for account-tier rules: the
// rule is skipped when IP rate limiting is disabled outright or the client
// IP is in the trusted set.
func TrustedContext(exemptions *Exemptions, disabled bool) ExemptFunc {
	return func(c *gin.Context) bool {
		if disabled {
			return true
		}
		return exemptions != nil && exemptions.Contains(c.ClientIP())
	}
}
