package frontend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/defaults"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/merge"
	"github.com/openfroyo/modconf/pkg/reading"
	"github.com/openfroyo/modconf/pkg/refine"
	"github.com/openfroyo/modconf/pkg/schema"
	"github.com/openfroyo/modconf/pkg/telemetry"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Options configures a Frontend.
type Options struct {
	// CacheSize is the number of merged modules kept in memory; 0 disables the cache.
	CacheSize int `yaml:"cacheSize" validate:"gte=0"`

	// Concurrency limits parallel resolutions in ResolveAll; 0 means unlimited.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`

	// SkipConstraints disables the CUE constraint check of complete values.
	SkipConstraints bool `yaml:"skipConstraints"`
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		CacheSize:   64,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

var validate = validator.New()

// Frontend loads and resolves modules.
type Frontend struct {
	opts     Options
	registry *schema.Registry
	module   *schema.Object
	template *schema.Object
	minimal  *schema.Object
	cache    *lru.Cache[string, *Module]
	tel      *telemetry.Telemetry
}

// New creates a frontend using the built-in module schema. A nil tel discards all
// telemetry.
func New(opts Options, tel *telemetry.Telemetry) (*Frontend, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid frontend options: %w", err)
	}
	if tel == nil {
		tel = telemetry.Discard()
	}

	registry, err := schema.Builtin()
	if err != nil {
		return nil, NewInternalError("built-in schema does not load", err).WithCode(ErrCodeSchema)
	}

	f := &Frontend{
		opts:     opts,
		registry: registry,
		module:   schema.Module(),
		template: schema.Template(),
		minimal:  schema.MinimalModule(),
		tel:      tel,
	}
	if opts.CacheSize > 0 {
		f.cache, err = lru.New[string, *Module](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create module cache: %w", err)
		}
	}
	return f, nil
}

// Telemetry returns the telemetry the frontend reports to.
func (f *Frontend) Telemetry() *telemetry.Telemetry {
	return f.tel
}

// Selection builds the contexts selecting platforms, optionally in test code.
func Selection(platforms []string, test bool) contexts.Contexts {
	sel := contexts.Platforms(platforms...)
	if test {
		sel = sel.With(contexts.Test{})
	}
	return sel
}

// LoadModule reads a module file with its templates, injects defaults and merges
// them. Loaded modules are cached until one of their files changes.
func (f *Frontend) LoadModule(ctx context.Context, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, NewIOError("cannot resolve module path", err).WithModule(path)
	}

	if m, ok := f.cached(abs); ok {
		f.tel.Metrics.RecordCacheLookup(telemetry.CacheHit)
		telemetry.FromContext(ctx).WithModule(abs).Debug("Using cached module")
		return m, nil
	}
	f.tel.Metrics.RecordCacheLookup(telemetry.CacheMiss)

	stage := f.tel.StartStage(ctx, "load", telemetry.AttrModule.String(abs))
	m, err := f.load(stage.Ctx, abs)
	stage.End(err)
	if err != nil {
		f.tel.Metrics.RecordModuleLoaded("failed")
		return nil, err
	}
	f.tel.Metrics.RecordModuleLoaded("succeeded")

	if f.cache != nil {
		f.cache.Add(abs, m)
	}
	return m, nil
}

func (f *Frontend) cached(path string) (*Module, bool) {
	if f.cache == nil {
		return nil, false
	}
	m, ok := f.cache.Get(path)
	if !ok {
		return nil, false
	}
	if !m.fresh() {
		f.cache.Remove(path)
		return nil, false
	}
	return m, true
}

// Invalidate drops a module from the cache.
func (f *Frontend) Invalidate(path string) {
	if f.cache == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		f.cache.Remove(abs)
	}
}

// counting records every reported problem in the metrics.
func (f *Frontend) counting() diagnostics.Reporter {
	return diagnostics.ReporterFunc(func(p diagnostics.Problem) {
		f.tel.Metrics.RecordProblem(p.ID, p.Level.String())
	})
}

func (f *Frontend) load(ctx context.Context, path string) (*Module, error) {
	logger := telemetry.FromContext(ctx).WithModule(path)
	c := diagnostics.NewCollector()
	reporter := diagnostics.Tee(c, f.counting())

	// The minimal read only looks at the product, platform aliases and templates,
	// so the full read can validate modifiers and order the template files.
	minimal, err := reading.New(reading.Minimal()).Read(path, f.minimal)
	if err != nil {
		return nil, readError(path, err)
	}
	inh := contexts.Combine(contexts.NewPlatformInheritance(nil), contexts.NewPathInheritance(path))
	head := refine.New(inh).Refine(merge.Trees(minimal), contexts.Empty).Root()

	if !head.Has("product") {
		reporter.Report(diagnostics.New(diagnostics.ProductNotDefined, diagnostics.LevelFatal, head.Trace,
			"product is not defined in %s", filepath.Base(path)))
		return nil, NewUserError("product is not defined", nil).
			WithCode(ErrCodeProductNotDefined).
			WithModule(path).
			WithStage("load").
			WithProblems(c.Problems())
	}

	aliases := aliasesOf(head)
	templates := templatesOf(head)
	platforms := contexts.NewPlatformInheritance(aliases)
	reader := reading.New(reading.WithReporter(reporter), reading.WithPlatforms(platforms))

	stamps := make(map[string]time.Time, 1+len(templates))
	sources := make([]tree.Unmerged, 0, 1+len(templates))
	for i, file := range append([]string{path}, templates...) {
		decl := f.template
		if i == 0 {
			decl = f.module
		}
		u, err := reader.Read(file, decl)
		if err != nil {
			return nil, readError(file, err).WithModule(path)
		}
		info, err := os.Stat(file)
		if err != nil {
			return nil, NewIOError("cannot stat configuration file", err).WithModule(path)
		}
		stamps[file] = info.ModTime()
		sources = append(sources, defaults.Inject(u, decl))
	}

	logger.Debugf("Read module with %d templates and %d aliases", len(templates), len(aliases))

	return &Module{
		Path:        path,
		Templates:   templates,
		Aliases:     aliases,
		Merged:      merge.Trees(sources...),
		Problems:    c.Problems(),
		inheritance: contexts.Combine(platforms, contexts.NewPathInheritance(append(append([]string(nil), templates...), path)...)),
		stamps:      stamps,
		frontend:    f,
	}, nil
}

func readError(path string, err error) *ResolutionError {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return NewIOError("cannot read configuration file", err).WithModule(path)
	}
	return NewUserError("configuration file is not valid YAML", err).WithCode(ErrCodeParse).WithModule(path)
}

// aliasesOf collects the platform aliases declared by a module.
func aliasesOf(root *tree.Mapping) map[string][]string {
	kvs := root.Get("aliases")
	if len(kvs) == 0 {
		return nil
	}
	m, ok := kvs[0].Value.(*tree.Mapping)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(m.Children))
	for _, kv := range m.Children {
		out[kv.Key] = append(out[kv.Key], stringValues(kv.Value)...)
	}
	return out
}

// templatesOf lists the template files applied by a module, in order.
func templatesOf(root *tree.Mapping) []string {
	kvs := root.Get("apply")
	if len(kvs) == 0 {
		return nil
	}
	return stringValues(kvs[0].Value)
}

func stringValues(n tree.Node) []string {
	l, ok := n.(*tree.List)
	if !ok {
		return nil
	}
	var out []string
	for _, c := range l.Children {
		if s, ok := c.(*tree.Scalar); ok {
			if v, ok := s.Value.(string); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// ResolveAll loads and resolves modules concurrently. Results are in the order of
// paths; the first failure cancels the remaining work.
func (f *Frontend) ResolveAll(ctx context.Context, paths []string, selection contexts.Contexts) ([]*Resolution, error) {
	g, ctx := errgroup.WithContext(ctx)
	if f.opts.Concurrency > 0 {
		g.SetLimit(f.opts.Concurrency)
	}

	out := make([]*Resolution, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			m, err := f.LoadModule(ctx, path)
			if err != nil {
				return err
			}
			res, err := m.Resolve(ctx, selection)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
