package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Overrides is the hot-reloadable subset of the configuration: the decision
// thresholds an operator may tune without restarting the editor backend.
type Overrides struct {
	UpdateThreshold float64       `yaml:"updateThreshold"`
	CacheThreshold  float64       `yaml:"cacheThreshold"`
	DebounceWindow  time.Duration `yaml:"debounceWindow"`
}

// LoadOverrides parses the YAML overrides file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides YAML: %w", err)
	}
	return &o, nil
}

// WatchOverrides watches the overrides file and invokes apply with each
// successfully parsed revision. Returns the watcher so the caller can close
// it on shutdown; parse failures keep the previous values.
func WatchOverrides(path string, apply func(*Overrides)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch overrides file: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				overrides, err := LoadOverrides(path)
				if err != nil {
					log.Printf("⚠️  Failed to reload overrides: %v (keeping previous values)", err)
					continue
				}
				log.Printf("🔄 Overrides file changed, applying new thresholds")
				apply(overrides)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  Overrides watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}
