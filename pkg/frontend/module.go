package frontend

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/modconf/pkg/complete"
	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/diagnostics"
	"github.com/openfroyo/modconf/pkg/refine"
	"github.com/openfroyo/modconf/pkg/resolve"
	"github.com/openfroyo/modconf/pkg/telemetry"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Module is a loaded module: its files merged into one tree, ready to be resolved
// for any selection. A Module is safe for concurrent use.
type Module struct {
	// Path is the absolute path of the module file.
	Path string

	// Templates are the applied template files, least specific first.
	Templates []string

	// Aliases maps user platform aliases to platforms.
	Aliases map[string][]string

	// Merged is the merged tree of the module and its templates, defaults included.
	Merged tree.Merged

	// Problems are the problems found while reading the files.
	Problems []diagnostics.Problem

	inheritance contexts.Inheritance
	stamps      map[string]time.Time
	frontend    *Frontend
}

func (m *Module) fresh() bool {
	for file, stamp := range m.stamps {
		info, err := os.Stat(file)
		if err != nil || !info.ModTime().Equal(stamp) {
			return false
		}
	}
	return true
}

// Resolution is the outcome of resolving a module for one selection.
type Resolution struct {
	// Module is the module file.
	Module string

	// RunID correlates logs and spans of this resolution.
	RunID string

	// Selection is the resolved selection.
	Selection contexts.Contexts

	// Refined is the refined tree before references were resolved.
	Refined tree.Refined

	// Resolved is the refined tree with references substituted.
	Resolved tree.Refined

	// Tree is the complete tree, nil when the module could not be completed.
	Tree *tree.CompleteObject

	// Value is the plain value of Tree.
	Value map[string]any

	// Problems are every problem found for this selection, sorted by location.
	Problems []diagnostics.Problem

	// Stats describes the reference resolution work.
	Stats resolve.Stats
}

// HasErrors reports whether a problem of error or fatal level was found.
func (r *Resolution) HasErrors() bool {
	for _, p := range r.Problems {
		if p.Level >= diagnostics.LevelError {
			return true
		}
	}
	return false
}

// OK reports whether the module resolved to a complete value without errors.
func (r *Resolution) OK() bool {
	return r.Tree != nil && !r.HasErrors()
}

// Resolve refines the module for selection, substitutes references and completes
// the result. User problems end up in the resolution; broken invariants between
// stages are returned as internal errors.
func (m *Module) Resolve(ctx context.Context, selection contexts.Contexts) (res *Resolution, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", m.Path, err)
	}

	f := m.frontend
	tel := f.tel
	runID := uuid.NewString()

	logger := telemetry.FromContext(ctx).WithRunID(runID).WithModule(m.Path)
	ctx = logger.WithContext(ctx)
	ctx, span := tel.Tracer.StartModuleSpan(ctx, runID, m.Path)
	span.SetAttributes(
		telemetry.AttrSelection.String(selection.String()),
		telemetry.AttrTemplates.Int(len(m.Templates)),
	)
	tel.Metrics.ResolutionStarted()

	c := diagnostics.NewCollector()
	for _, p := range m.Problems {
		c.Report(p)
	}
	reporter := diagnostics.Tee(c, f.counting())

	stage := "refine"
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*tree.IntegrityError)
			if !ok {
				panic(r)
			}
			res = nil
			err = NewInternalError("configuration tree invariant violated", ie).
				WithModule(m.Path).
				WithStage(stage).
				WithProblems(c.Problems())
		}

		status := "succeeded"
		switch {
		case err != nil:
			status = "failed"
			telemetry.RecordError(span, err)
			logger.WithError(err).Error("Resolution failed")
		case !res.OK():
			status = "invalid"
			span.SetAttributes(telemetry.AttrProblems.Int(len(res.Problems)))
			telemetry.RecordSuccess(span)
		default:
			telemetry.RecordSuccess(span)
		}
		tel.Metrics.RecordModuleResolved(status)
		span.End()
	}()

	st := tel.StartStage(ctx, stage)
	refined := refine.New(m.inheritance, refine.WithReporter(reporter)).Refine(m.Merged, selection)
	st.End(nil)

	stage = "resolve"
	st = tel.StartStage(ctx, stage)
	resolved, stats := resolve.New(resolve.WithReporter(reporter)).Refined(refined)
	tel.Metrics.RecordResolver(stats.Passes, stats.Substitutions)
	span.SetAttributes(telemetry.AttrPasses.Int(stats.Passes))
	reportLeftovers(reporter, resolved.Root())
	st.End(nil)

	stage = "complete"
	st = tel.StartStage(ctx, stage)
	completed := complete.New(complete.ReportingHandler(reporter), complete.WithReporter(reporter)).
		Complete(resolved, f.module)
	st.End(nil)

	res = &Resolution{
		Module:    m.Path,
		RunID:     runID,
		Selection: selection,
		Refined:   refined,
		Resolved:  resolved,
		Tree:      completed.Root(),
		Stats:     stats,
	}

	if res.Tree != nil {
		res.Value, _ = tree.Plain(res.Tree).(map[string]any)
		if !f.opts.SkipConstraints {
			stage = "validate"
			st = tel.StartStage(ctx, stage)
			err := f.registry.Validate("Module", res.Value)
			if err != nil {
				reporter.Report(diagnostics.New(diagnostics.ConstraintViolation, diagnostics.LevelError,
					res.Tree.Trace, "%v", err))
			}
			st.End(nil)
		}
	}

	res.Problems = c.Problems()
	logger.Debugf("Resolved for %s with %d problems in %d passes", selection, len(res.Problems), stats.Passes)
	return res, nil
}

// ResolveMerged substitutes the references of the merged tree without choosing a
// selection. Every candidate of a reference target becomes its own context-tagged
// sibling, so the result still holds the values of all platforms. The cached
// Merged tree is left untouched.
func (m *Module) ResolveMerged(ctx context.Context) (tree.Merged, resolve.Stats, error) {
	if err := ctx.Err(); err != nil {
		return tree.Merged{}, resolve.Stats{}, fmt.Errorf("resolve %s: %w", m.Path, err)
	}

	tel := m.frontend.tel
	st := tel.StartStage(ctx, "resolve-merged", telemetry.AttrModule.String(m.Path))
	merged, stats := resolve.New(resolve.WithReporter(m.frontend.counting())).Merged(m.Merged)
	tel.Metrics.RecordResolver(stats.Passes, stats.Substitutions)
	st.End(nil)

	st.Logger.Debugf("Resolved merged tree in %d passes with %d substitutions", stats.Passes, stats.Substitutions)
	return merged, stats, nil
}

// reportLeftovers reports references that resolution could not substitute. Each
// cycle is reported once; references outside cycles are reported individually.
func reportLeftovers(r diagnostics.Reporter, root *tree.Mapping) {
	leftovers := resolve.Unresolved(root)
	if len(leftovers) == 0 {
		return
	}

	byKey := make(map[string]resolve.Leftover, len(leftovers))
	for _, l := range leftovers {
		if _, ok := byKey[l.Key()]; !ok {
			byKey[l.Key()] = l
		}
	}

	onCycle := make(map[string]bool)
	for _, cycle := range resolve.FindCycles(leftovers) {
		for _, k := range cycle {
			onCycle[k] = true
		}
		r.Report(diagnostics.New(diagnostics.ReferenceCycle, diagnostics.LevelError, byKey[cycle[0]].Trace,
			"reference cycle: %s", resolve.FormatCycle(cycle)))
	}

	for _, l := range leftovers {
		if onCycle[l.Key()] {
			continue
		}
		r.Report(diagnostics.New(diagnostics.ReferenceUnresolved, diagnostics.LevelError, l.Trace,
			"cannot resolve reference '${%s}' at '%s'", l.Ref, l.Key()))
	}
}
