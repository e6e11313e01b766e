package policy

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader reads policies from .rego files and YAML bundles.
type Loader struct {
	logger  zerolog.Logger
	cache   map[string][]Policy
	mu      sync.RWMutex
	watcher *fsnotify.Watcher
}

// NewLoader creates a new policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		cache:  make(map[string][]Policy),
	}
}

func isPolicyFile(path string) bool {
	switch filepath.Ext(path) {
	case ".rego", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFromPaths loads policies from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var all []Policy

	for _, path := range paths {
		policies, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		all = append(all, policies...)
	}

	l.logger.Debug().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return all, nil
}

func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}
	return l.loadFromFile(ctx, path)
}

// loadFromDirectory loads all policy files below a directory. Broken files are
// logged and skipped.
func (l *Loader) loadFromDirectory(ctx context.Context, dir string) ([]Policy, error) {
	var policies []Policy

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(path) {
			return nil
		}

		loaded, err := l.loadFromFile(ctx, path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load policy file")
			return nil
		}
		policies = append(policies, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return policies, nil
}

func (l *Loader) loadFromFile(_ context.Context, path string) ([]Policy, error) {
	l.mu.RLock()
	if cached, exists := l.cache[path]; exists {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var policies []Policy
	switch filepath.Ext(path) {
	case ".rego":
		policies = []Policy{parseRegoFile(path, data)}
	case ".yaml", ".yml":
		bundle, err := parseBundle(path, data)
		if err != nil {
			return nil, err
		}
		policies = bundle.Policies
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	l.mu.Lock()
	l.cache[path] = policies
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", path).
		Int("policies", len(policies)).
		Msg("Policies loaded from file")

	return policies, nil
}

// parseRegoFile turns a .rego file into a warning-level policy named after the file.
func parseRegoFile(path string, data []byte) Policy {
	return Policy{
		Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
		Description: extractDescription(string(data)),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Source:      path,
	}
}

// parseBundle reads a YAML bundle. Policies without a severity default to warning
// and policies are enabled unless the bundle says otherwise.
func parseBundle(path string, data []byte) (*Bundle, error) {
	var raw struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
		Policies    []struct {
			Name        string   `yaml:"name"`
			Description string   `yaml:"description"`
			Rego        string   `yaml:"rego"`
			Severity    Severity `yaml:"severity"`
			Enabled     *bool    `yaml:"enabled"`
			Tags        []string `yaml:"tags"`
		} `yaml:"policies"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse policy bundle: %w", err)
	}

	bundle := &Bundle{Name: raw.Name, Version: raw.Version, Description: raw.Description}
	for i, p := range raw.Policies {
		policy := Policy{
			Name:        p.Name,
			Description: p.Description,
			Rego:        p.Rego,
			Severity:    p.Severity,
			Tags:        p.Tags,
		}
		if policy.Name == "" {
			return nil, fmt.Errorf("policy %d in bundle %s has no name", i, path)
		}
		if policy.Severity == "" {
			policy.Severity = SeverityWarning
		}
		policy.Enabled = p.Enabled == nil || *p.Enabled
		policy.Source = path
		bundle.Policies = append(bundle.Policies, policy)
	}
	return bundle, nil
}

// extractDescription joins the leading comment block of a Rego file.
func extractDescription(content string) string {
	var description strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if trimmed != "" && description.Len() > 0 {
				break
			}
			continue
		}
		comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if comment == "" {
			continue
		}
		if description.Len() > 0 {
			description.WriteString(" ")
		}
		description.WriteString(comment)
	}

	return description.String()
}

// Watch watches paths and calls reload with the fresh policies after changes
// settle. Watching stops when ctx is done.
func (l *Loader) Watch(ctx context.Context, paths []string, reload func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to stat path for watching")
			continue
		}
		if info.IsDir() {
			err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil || !d.IsDir() {
					return err
				}
				return watcher.Add(p)
			})
		} else {
			err = watcher.Add(path)
		}
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go l.processEvents(ctx, paths, reload)
	return nil
}

func (l *Loader) processEvents(ctx context.Context, paths []string, reload func([]Policy) error) {
	var timer *time.Timer
	const delay = 300 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !isPolicyFile(event.Name) {
				continue
			}
			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Policy file changed")

			l.mu.Lock()
			delete(l.cache, event.Name)
			l.mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(delay, func() {
				policies, err := l.LoadFromPaths(ctx, paths)
				if err == nil {
					err = reload(policies)
				}
				if err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload policies")
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// ClearCache forgets every loaded file.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string][]Policy)
}
