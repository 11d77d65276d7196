package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/entrhq/quickapply/pkg/apply"
	"github.com/entrhq/quickapply/pkg/history"
)

func newApplyCmd(a *app) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "apply <job-url>...",
		Short: "Quick-apply to one or more job URLs",
		Long: `Quick-apply to each job URL in turn using the saved session.

Every URL gets its own fresh browser. Jobs without a quick-apply button are
skipped; the command exits non-zero if any application aborted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, args, !noHistory)
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record attempts in the history database")
	return cmd
}

func (a *app) runApply(cmd *cobra.Command, urls []string, record bool) error {
	for _, u := range urls {
		if err := validateJobURL(u); err != nil {
			return fmt.Errorf("%w: %w", errConfig, err)
		}
	}
	profile, err := a.profile()
	if err != nil {
		return err
	}

	var opts []apply.Option
	if record {
		store, err := history.Open(a.cfg.HistoryDBPath)
		if err != nil {
			a.logger.Warnf("History disabled: %v", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: history disabled: %v\n", err)
		} else {
			defer store.Close()
			opts = append(opts, apply.WithRecorder(store))
		}
	}

	states := a.stateStore()
	if !states.Exists() {
		a.logger.Warnf("No saved session at %s; proceeding without one", states.Path())
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: no saved session at %s; run `quickapply login` first or expect jobs to be skipped\n", states.Path())
	}

	l, err := a.launch()
	if err != nil {
		return err
	}
	defer a.shutdown(l)

	m := apply.NewMachine(profile, a.recorder(), a.logger.With("apply"), a.cfg.ApplyOptions(), opts...)
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	var (
		attempts []*apply.Attempt
		errs     []error
	)
	for i, jobURL := range urls {
		if ctx.Err() != nil {
			break
		}
		a.logger.Infof("[%d/%d] %s", i+1, len(urls), jobURL)
		attempt, err := a.applyOne(ctx, l, m, jobURL)
		if attempt != nil {
			attempts = append(attempts, attempt)
			printAttempt(out, attempt)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", jobURL, err))
		}
	}

	if len(urls) > 1 {
		printSummary(out, attempts)
	}

	aborted := 0
	for _, at := range attempts {
		if !at.Outcome.OK() {
			aborted++
		}
	}
	if aborted > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d", errAborted, aborted, len(urls)))
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// applyOne runs the apply flow for jobURL in a browser of its own, bounded
// by the configured invocation timeout.
func (a *app) applyOne(ctx context.Context, l launcher, m *apply.Machine, jobURL string) (*apply.Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Apply.InvocationTimeout)
	defer cancel()

	sess, err := l.Launch(ctx, "apply "+history.JobID(jobURL), a.stateStore())
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer a.closeSession(sess)

	return m.Run(ctx, sess, jobURL)
}

func validateJobURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid job URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid job URL %q: must be an http(s) URL", raw)
	}
	return nil
}
