package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch <input>",
		Short: "Re-export an input every time it changes on disk",
		Long: `Watch exports the input once and then again after every change to it.
For maps the ground file next to the world file is watched too. Export
errors are logged and watching continues; stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(a.cfg.Data, a.log)
			if err != nil {
				return err
			}
			defer m.Close()

			in, err := resolveInput(m, args[0])
			if err != nil {
				return err
			}
			files := watchedFiles(in)
			if len(files) == 0 {
				return fmt.Errorf("watch %s: input must be a file on disk", args[0])
			}
			out := output
			if out == "" {
				out = defaultOutput(in.Name)
			}

			w, err := watcher.New(
				watcher.WithDebounce(time.Duration(a.cfg.Watch.Debounce)),
				watcher.WithLogger(a.log),
			)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Add(files...); err != nil {
				return err
			}

			ctx := cmd.Context()
			var mu sync.Mutex
			rebuild := func(reason string) {
				mu.Lock()
				defer mu.Unlock()
				m.Invalidate()
				start := time.Now()
				if err := a.export(ctx, m, in, out); err != nil {
					if ctx.Err() == nil {
						a.log.Error("export failed", zap.String("input", in.Name), zap.Error(err))
					}
					return
				}
				a.log.Info("package updated",
					zap.String("output", out),
					zap.String("reason", reason),
					zap.Duration("elapsed", time.Since(start)))
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			}

			rebuild("start")
			a.log.Info("watching", zap.Strings("files", w.Files()))
			err = w.Run(ctx, func(path string) { rebuild(path) })
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input name with .3mf)")
	a.flags.AddExportFlags(cmd.Flags())
	a.flags.AddWatchFlags(cmd.Flags())
	return cmd
}
