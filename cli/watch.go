package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/ganadobravo/scanfusion/config"
	"github.com/ganadobravo/scanfusion/logging"
	"github.com/ganadobravo/scanfusion/scan"
	rutils "github.com/ganadobravo/scanfusion/utils"
)

// WatchAction fuses the captures already in the inbox and then every capture moved into it,
// until interrupted.
func WatchAction(c *cli.Context) error {
	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(c, conf)
	defer closeLog()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &inboxWatcher{
		dir:    c.String(watchFlagDir),
		outDir: c.String(watchFlagOutDir),
		ext:    c.String(watchFlagExt),
		conf:   conf,
		logger: logger,
		onResult: func(res scan.Result) {
			printf(c.App.Writer, "wrote %d points to %s", res.PointCount, res.Path)
		},
	}
	return w.run(ctx)
}

// inboxWatcher fuses capture files as they appear in dir. Captures must be moved into dir once
// complete; a file still being written there would be read short.
type inboxWatcher struct {
	dir      string
	outDir   string
	ext      string
	conf     *config.Config
	logger   logging.Logger
	onResult func(scan.Result)
	// ready, when set, is closed once the inbox is being watched.
	ready chan struct{}

	seen map[string]bool
}

func (w *inboxWatcher) run(ctx context.Context) error {
	if err := os.MkdirAll(w.outDir, 0o750); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(watcher.Close)
	if err := watcher.Add(w.dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.dir)
	}

	runner := scan.NewRunner(scan.OptionsFromConfig(w.conf, w.outDir), w.logger)
	defer runner.Close()
	w.seen = map[string]bool{}

	existing, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(existing))
	for _, entry := range existing {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.process(ctx, runner, filepath.Join(w.dir, name))
	}
	if w.ready != nil {
		close(w.ready)
	}
	w.logger.Infow("watching for captures", "dir", w.dir, "out_dir", w.outDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				w.process(ctx, runner, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("inbox watch error", "error", err)
		}
	}
}

func (w *inboxWatcher) process(ctx context.Context, runner *scan.Runner, path string) {
	if !strings.EqualFold(filepath.Ext(path), w.ext) || w.seen[path] {
		return
	}
	w.seen[path] = true

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath, err := rutils.SafeJoinDir(w.outDir, stem+"."+string(w.conf.WriteOptions().Format))
	if err != nil {
		w.logger.Warnw("skipping capture", "path", path, "error", err)
		return
	}
	res, err := fuseCapture(ctx, path, outPath, w.conf, runner, w.logger)
	if err != nil {
		w.logger.Errorw("failed to fuse capture", "path", path, "error", err)
		return
	}
	if w.onResult != nil {
		w.onResult(res)
	}
}
