package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pokedex/internal/quota"
)

// DefaultQuota applies to any route class without an explicit budget.
var DefaultQuota = quota.Limit{Requests: 100, Window: 60 * time.Second}

// quotaFile is the on-disk shape. Windows are duration strings ("60s",
// "1m") so the file stays readable.
type quotaFile struct {
	RouteClasses map[string]struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	} `yaml:"route_classes"`
}

// QuotaManager holds the per-route-class budgets behind a RWMutex so the
// tracker can read them on every request while a reload swaps them out.
// It implements quota.LimitProvider.
type QuotaManager struct {
	mu      sync.RWMutex
	classes map[string]quota.Limit
	def     quota.Limit
}

func NewQuotaManager() *QuotaManager {
	return &QuotaManager{
		classes: make(map[string]quota.Limit),
		def:     DefaultQuota,
	}
}

func (m *QuotaManager) Limit(routeClass string) quota.Limit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.classes[routeClass]; ok {
		return l
	}
	return m.def
}

// Update replaces the budget for one route class.
func (m *QuotaManager) Update(routeClass string, l quota.Limit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[routeClass] = l
}

// LoadFile parses the YAML quota file and swaps in the budgets it defines.
// Classes absent from the file fall back to the default; a malformed file
// leaves the current budgets untouched.
func (m *QuotaManager) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read quota file: %w", err)
	}

	var f quotaFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse quota file: %w", err)
	}

	classes := make(map[string]quota.Limit, len(f.RouteClasses))
	for name, c := range f.RouteClasses {
		window, err := time.ParseDuration(c.Window)
		if err != nil {
			return fmt.Errorf("quota class %q: bad window %q: %w", name, c.Window, err)
		}
		if c.Requests < 0 || window < 0 {
			return fmt.Errorf("quota class %q: negative budget", name)
		}
		classes[name] = quota.Limit{Requests: c.Requests, Window: window}
	}

	m.mu.Lock()
	m.classes = classes
	m.mu.Unlock()
	return nil
}

// Watch reloads the quota file whenever it changes on disk. It blocks until
// stop is closed; run it in its own goroutine. Reload failures are logged
// and the previous budgets stay in force.
func (m *QuotaManager) Watch(path string, log *zap.Logger, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save,
	// which would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.LoadFile(path); err != nil {
				log.Warn("quota reload failed, keeping previous budgets",
					zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("quota budgets reloaded", zap.String("path", path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("quota watcher error", zap.Error(err))
		}
	}
}
