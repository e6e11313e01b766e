package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/policy"
)

func newWatchCommand() *cobra.Command {
	var (
		sel    selectionFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "watch <module.yaml>",
		Short: "Resolve a module again whenever its files change",
		Long: `Watch a module and its templates, printing the resolved settings after every
change. Configured policies are reloaded when their files change. Stop with Ctrl-C.`,
		Example: `  modconf watch app/module.yaml -p jvm`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := a.context(cmd.Context())
			defer a.close(ctx)

			eng, err := a.policies(ctx)
			if err != nil {
				return err
			}
			if len(a.cfg.Policies) > 0 {
				loader := policy.NewLoader(a.tel.Logger.Zerolog())
				err := loader.Watch(ctx, a.cfg.Policies, func(p []policy.Policy) error {
					return eng.Add(ctx, p...)
				})
				if err != nil {
					return err
				}
			}

			w := &watcher{app: a, engine: eng, path: args[0], selection: sel.selection(), format: format}
			return w.run(ctx)
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")

	return cmd
}

type watcher struct {
	*app
	engine    *policy.Engine
	path      string
	selection contexts.Contexts
	format    string

	fs    *fsnotify.Watcher
	files map[string]bool
}

const settleDelay = 200 * time.Millisecond

func (w *watcher) run(ctx context.Context) error {
	var err error
	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.fs.Close()

	w.resolve(ctx)

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(event.Name)] || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.tel.Logger.WithField("file", event.Name).Debug("Configuration file changed")
			timer = time.After(settleDelay)

		case <-timer:
			timer = nil
			w.frontend.Invalidate(w.path)
			w.resolve(ctx)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.tel.Logger.WithError(err).Warn("Watcher error")
		}
	}
}

// resolve loads and resolves the module, prints the result and watches the
// directories of every file that took part. Failures are logged; watching goes on.
func (w *watcher) resolve(ctx context.Context) {
	m, err := w.frontend.LoadModule(ctx, w.path)
	if err != nil {
		w.tel.Logger.WithError(err).Error("Module could not be loaded")
		if abs, absErr := filepath.Abs(w.path); absErr == nil {
			w.watch([]string{abs})
		}
		return
	}
	w.watch(append([]string{m.Path}, m.Templates...))

	res, err := m.Resolve(ctx, w.selection)
	if err != nil {
		w.tel.Logger.WithError(err).Error("Module could not be resolved")
		return
	}

	if res.Tree != nil && w.engine != nil {
		result, err := w.engine.Evaluate(ctx, policy.NewInput(m.Path, w.selection, res.Value))
		if err != nil {
			w.tel.Logger.WithError(err).Warn("Policies could not be evaluated")
		} else {
			result.Report(w.reporter, res.Tree.Trace)
		}
	}
	w.report(map[string]bool{}, res.Problems)

	if res.Tree == nil {
		w.tel.Logger.Warn("Module does not resolve to a complete value")
		return
	}
	if err := writeValue(w.out, w.format, res.Value); err != nil {
		w.tel.Logger.WithError(err).Error("Output failed")
	}
}

// watch watches the directories of files, so editors that replace files on save
// are noticed too.
func (w *watcher) watch(files []string) {
	w.files = make(map[string]bool, len(files))
	for _, f := range files {
		w.files[filepath.Clean(f)] = true
		if err := w.fs.Add(filepath.Dir(f)); err != nil {
			w.tel.Logger.WithError(err).WithField("file", f).Warn("Cannot watch file")
		}
	}
}
