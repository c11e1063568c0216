package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"postscope/pkg/config"
	"postscope/pkg/logger"
	"postscope/pkg/models"
	"postscope/pkg/summary"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatXML     = "xml"
	FormatSummary = "summary"
	FormatSQLite  = "sqlite"
)

// writeFunc renders one file into dir and returns its path
type writeFunc func(ctx context.Context, dir string, res *models.Result, sum summary.Summary, now time.Time) (string, error)

type fileWriter struct {
	name  string
	write writeFunc
}

// writers maps a format to the files it produces, in write order
var writers = map[string][]fileWriter{
	FormatJSON: {
		{"account_info.json", writeAccountJSON},
		{"posts.json", writePostsJSON},
		{"dashboard_data.json", writeDashboardJSON},
	},
	FormatCSV: {
		{"posts_simple.csv", writeSimpleCSV},
		{"posts_full.csv", writeFullCSV},
	},
	FormatXML:     {{"posts.xml", writeXML}},
	FormatSummary: {{"summary.txt", writeSummaryText}},
	FormatSQLite:  {{"posts.db", writeSQLite}},
}

// Written reports what a Write produced
type Written struct {
	Folder string
	Files  []string
	// Failed maps a file (or unknown format) to the error that stopped it
	Failed map[string]error
}

// Generator renders finished results to disk
type Generator struct {
	baseDir string
	formats []string
	logger  logger.Logger
	now     func() time.Time
}

// Option configures a Generator
type Option func(*Generator)

// WithClock replaces time.Now for folder names and export stamps
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the generator logger
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator writes the given formats under baseDir. An empty format list
// means every format.
func NewGenerator(baseDir string, formats []string, opts ...Option) *Generator {
	if len(formats) == 0 {
		formats = config.AllFormats
	}
	g := &Generator{
		baseDir: baseDir,
		formats: normalizeFormats(formats),
		logger:  logger.GetLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromConfig builds a generator from the output section
func NewFromConfig(cfg config.OutputConfig, opts ...Option) *Generator {
	return NewGenerator(cfg.BaseDirectory, cfg.Formats, opts...)
}

func normalizeFormats(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Formats returns the active formats
func (g *Generator) Formats() []string {
	return append([]string(nil), g.formats...)
}

// Write renders res into a new <base>/<username>_<YYYYMMDD_HHMMSS> folder.
// A failing file is logged and skipped; the others are still written. The
// error is non-nil only when the folder cannot be created or nothing at all
// was written.
func (g *Generator) Write(ctx context.Context, res *models.Result, sum summary.Summary) (*Written, error) {
	if res == nil {
		return nil, errors.New("no result to write")
	}

	now := g.now()
	folder, err := g.createFolder(res.Account.ScreenName, now)
	if err != nil {
		return nil, err
	}

	out := &Written{Folder: folder, Files: []string{}, Failed: make(map[string]error)}
	for _, format := range g.formats {
		fws, ok := writers[format]
		if !ok {
			out.Failed[format] = fmt.Errorf("unknown output format %q", format)
			g.logger.WarnWithFields("Skipping unknown output format", map[string]interface{}{
				"format": format,
			})
			continue
		}

		for _, fw := range fws {
			if err := ctx.Err(); err != nil {
				out.Failed[fw.name] = err
				continue
			}
			path, err := fw.write(ctx, folder, res, sum, now)
			if err != nil {
				out.Failed[fw.name] = err
				g.logger.WithError(err).ErrorWithFields("Failed to write output file", map[string]interface{}{
					"file":   fw.name,
					"folder": folder,
				})
				continue
			}
			out.Files = append(out.Files, path)
		}
	}

	g.logger.InfoWithFields("Output written", map[string]interface{}{
		"folder": folder,
		"files":  len(out.Files),
		"failed": len(out.Failed),
	})

	if len(out.Files) == 0 && len(out.Failed) > 0 {
		return out, fmt.Errorf("no output written: %w", joinFailures(out.Failed))
	}
	return out, nil
}

func (g *Generator) createFolder(username string, now time.Time) (string, error) {
	if username == "" {
		username = "unknown"
	}
	if err := os.MkdirAll(g.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", username, now.Format("20060102_150405"))
	folder := filepath.Join(g.baseDir, name)
	for i := 2; ; i++ {
		err := os.Mkdir(folder, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create output folder: %w", err)
		}
		folder = filepath.Join(g.baseDir, fmt.Sprintf("%s_%d", name, i))
	}

	g.logger.DebugWithFields("Created output folder", map[string]interface{}{
		"folder": folder,
	})
	return folder, nil
}

func joinFailures(failed map[string]error) error {
	names := make([]string, 0, len(failed))
	for n := range failed {
		names = append(names, n)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, n := range names {
		errs = append(errs, fmt.Errorf("%s: %w", n, failed[n]))
	}
	return errors.Join(errs...)
}
