// Package evidence captures screenshots at terminal and failure
// transitions so every non-success outcome can be audited later.
// Each screenshot is paired with a reduced DOM snapshot of the same page
// when the driver can serialise it.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/logging"
)

// TimestampFormat is the timestamp layout used in evidence file names.
const TimestampFormat = "20060102-150405"

// Recorder writes screenshots to <dir>/<flow>-<outcome>-<timestamp>.png
// and DOM snapshots beside them with an .html extension.
type Recorder struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	logger *logging.Logger
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

// WithLogger sets where snapshot failures are reported.
func WithLogger(l *logging.Logger) Option { return func(r *Recorder) { r.logger = l } }

// NewRecorder creates a recorder writing into dir on fs.
func NewRecorder(fs afero.Fs, dir string, opts ...Option) *Recorder {
	r := &Recorder{fs: fs, dir: dir, now: time.Now, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the output directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Capture screenshots page and returns the written path. Flow and outcome
// are slugged into the file name. When two captures land in the same
// second, later ones get a numeric suffix.
func (r *Recorder) Capture(ctx context.Context, page browser.Page, flow, outcome string) (string, error) {
	data, err := page.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("evidence: screenshot for %s/%s: %w", flow, outcome, err)
	}

	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("evidence: failed to create output directory: %w", err)
	}

	path, err := r.reserve(flow, outcome)
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(r.fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("evidence: failed to write %s: %w", path, err)
	}
	r.snapshot(ctx, page, SnapshotPath(path))
	return path, nil
}

// SnapshotPath returns the DOM snapshot path paired with a screenshot.
func SnapshotPath(screenshot string) string {
	return strings.TrimSuffix(screenshot, ".png") + ".html"
}

// snapshot writes the reduced DOM of page to path. The screenshot is the
// evidence of record, so a snapshot failure is logged and leaves no file.
func (r *Recorder) snapshot(ctx context.Context, page browser.Page, path string) {
	if err := r.writeSnapshot(ctx, page, path); err != nil {
		r.logger.Warnf("No DOM snapshot beside %s: %v", path, err)
	}
}

func (r *Recorder) writeSnapshot(ctx context.Context, page browser.Page, path string) error {
	raw, err := page.Content(ctx)
	if err != nil {
		return fmt.Errorf("evidence: read page content: %w", err)
	}
	snap, err := NewSnapshot(raw, MaxSnapshotBytes)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(r.fs, path, []byte(snap.Document(page.URL())), 0o600); err != nil {
		return fmt.Errorf("evidence: failed to write %s: %w", path, err)
	}
	return nil
}

// Name returns the base file name for a capture at t.
func Name(flow, outcome string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s.png", slug(flow), slug(outcome), t.Format(TimestampFormat))
}

func (r *Recorder) reserve(flow, outcome string) (string, error) {
	base := Name(flow, outcome, r.now())
	stem := strings.TrimSuffix(base, ".png")

	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d.png", stem, i)
		}
		path := filepath.Join(r.dir, name)
		f, err := r.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("evidence: failed to create %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("evidence: too many captures named %s", base)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
