package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"icsbuild/internal/build"
	appLog "icsbuild/internal/log"
	"icsbuild/internal/userconfig"
)

// Notifier reports file names changed since the previous call.
type Notifier interface {
	Changed() []string
}

// Configs gives access to the recipient configuration files.
type Configs interface {
	LoadAll() ([]userconfig.File, error)
	Load(filename string) (userconfig.File, error)
	Exists(filename string) bool
}

// Builder builds recipient artifacts.
type Builder interface {
	One(f userconfig.File) (build.Status, error)
	All(files []userconfig.File) ([]build.Status, error)
}

type Options struct {
	// Poll is the pause between two checks of the notifiers.
	Poll time.Duration
	// Grace is waited after event files changed so writers can finish.
	Grace time.Duration
	// RebuildCron optionally schedules full rebuilds, e.g. "0 3 * * *".
	RebuildCron string
}

// Runner drives builds from change notifications. All builds run on the
// goroutine calling Run.
type Runner struct {
	builder Builder
	configs Configs
	events  Notifier
	users   Notifier
	opts    Options

	rebuild chan struct{}
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(builder Builder, configs Configs, events, users Notifier, opts Options) *Runner {
	if opts.Poll <= 0 {
		opts.Poll = 5 * time.Second
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	return &Runner{
		builder: builder,
		configs: configs,
		events:  events,
		users:   users,
		opts:    opts,
		rebuild: make(chan struct{}, 1),
		sleep:   sleep,
	}
}

// BuildAll runs one full build and logs the summary for the given types.
func (r *Runner) BuildAll(show []build.ChangeType) ([]build.Status, error) {
	files, err := r.configs.LoadAll()
	if err != nil {
		return nil, err
	}
	statuses, err := r.builder.All(files)
	logSummary(statuses, show)
	return statuses, err
}

// Run performs an initial full build and then reacts to notifications until
// ctx is cancelled. A running build is always completed before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.RebuildCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(r.opts.RebuildCron, r.requestRebuild); err != nil {
			return fmt.Errorf("invalid rebuild schedule %q: %w", r.opts.RebuildCron, err)
		}
		c.Start()
		defer c.Stop()
		appLog.Info("scheduled full rebuilds", "cron", r.opts.RebuildCron)
	}

	if _, err := r.BuildAll(build.All); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	for {
		if err := r.sleep(ctx, r.opts.Poll); err != nil {
			appLog.Info("runner stopped")
			return nil
		}
		if err := r.tick(ctx); err != nil {
			appLog.Info("runner stopped")
			return nil
		}
	}
}

func (r *Runner) requestRebuild() {
	select {
	case r.rebuild <- struct{}{}:
	default:
	}
}

// tick handles one round of notifications. It only returns an error when ctx
// was cancelled while waiting.
func (r *Runner) tick(ctx context.Context) error {
	full := false

	if changed := r.events.Changed(); len(changed) > 0 {
		appLog.Info("event files changed", "files", strings.Join(changed, ", "))
		if err := r.sleep(ctx, r.opts.Grace); err != nil {
			return err
		}
		// Whatever changed during the grace period is covered by this build.
		r.events.Changed()
		full = true
	}

	select {
	case <-r.rebuild:
		appLog.Info("scheduled full rebuild")
		full = true
	default:
	}

	changedUsers := r.users.Changed()

	if !full {
		full = r.buildRecipients(changedUsers)
	}

	if full {
		if _, err := r.BuildAll(build.Interesting); err != nil {
			appLog.Error("full build failed", err)
		}
	}
	return nil
}

// buildRecipients rebuilds the recipients whose configuration files changed.
// It reports whether a full build is needed instead, which is the case once a
// configuration file was deleted and its artifact became an orphan.
func (r *Runner) buildRecipients(filenames []string) bool {
	var statuses []build.Status
	for _, filename := range filenames {
		if !strings.HasSuffix(filename, ".json") {
			continue
		}
		if !r.configs.Exists(filename) {
			appLog.Info("userconfig removed", "file", filename)
			return true
		}

		f, err := r.configs.Load(filename)
		if err != nil {
			appLog.Error("skip userconfig", err, "file", filename)
			continue
		}
		status, err := r.builder.One(f)
		if err != nil {
			appLog.Error("failed to build calendar", err, "file", filename)
			continue
		}
		statuses = append(statuses, status)
	}

	logSummary(statuses, build.Interesting)
	return false
}

func logSummary(statuses []build.Status, show []build.ChangeType) {
	summary := build.Summary(statuses, show)
	if summary == "" {
		appLog.Debug("no calendars changed", "statuses", len(statuses))
		return
	}
	for _, line := range strings.Split(summary, "\n") {
		appLog.Info(line)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
