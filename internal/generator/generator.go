// Package generator drives view discovery and script generation.
//
// Run enumerates every view in the catalog and calls ProcessView for each one whose
// definition mentions OPENROWSET. ProcessView extracts the clause, asks the engine for the
// columns it produces, and writes the create and drop statistics scripts. A view that fails
// is recorded and skipped. Only a failure to reach the engine or list its views ends a run.
package generator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"rowsetstats/internal/extract"
	"rowsetstats/internal/writer"
	"rowsetstats/pkg/errors"
	"rowsetstats/pkg/models"
)

// Catalog is the engine surface the generator needs
type Catalog interface {
	ListViews(ctx context.Context) ([]models.View, error)
	DescribeColumns(ctx context.Context, clause string) ([]string, error)
	Close() error
}

// Connector opens a Catalog. Each flow invocation opens its own.
type Connector interface {
	Connect(ctx context.Context) (Catalog, error)
}

// ConnectorFunc adapts a function to Connector
type ConnectorFunc func(ctx context.Context) (Catalog, error)

// Connect calls f(ctx)
func (f ConnectorFunc) Connect(ctx context.Context) (Catalog, error) {
	return f(ctx)
}

// Options configures a Generator
type Options struct {
	Connector Connector
	Extractor *extract.Extractor
	Logger    *zap.Logger

	// Writer is required unless DryRun is set. Without one every view fails with a config error.
	Writer *writer.Writer

	// Schemas limits discovery to these schema names. Empty means all.
	Schemas []string

	// DryRun sends rendered scripts to Out instead of writing files
	DryRun bool
	Out    io.Writer
}

// Generator runs the discovery and per-view flows
type Generator struct {
	connector Connector
	extractor *extract.Extractor
	writer    *writer.Writer
	logger    *zap.Logger
	schemas   map[string]bool
	dryRun    bool
	out       io.Writer
}

// New creates a Generator
func New(opts Options) *Generator {
	g := &Generator{
		connector: opts.Connector,
		extractor: opts.Extractor,
		writer:    opts.Writer,
		logger:    opts.Logger,
		dryRun:    opts.DryRun,
		out:       opts.Out,
	}
	if g.extractor == nil {
		g.extractor = extract.New(extract.ModeShallow)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.out == nil {
		g.out = io.Discard
	}
	if len(opts.Schemas) > 0 {
		g.schemas = make(map[string]bool, len(opts.Schemas))
		for _, s := range opts.Schemas {
			g.schemas[s] = true
		}
	}
	return g
}

// Run is the discovery flow. The returned error is non-nil only when the engine could not
// be reached or its views could not be listed; per-view failures are in the report.
func (g *Generator) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	catalog, err := g.connector.Connect(ctx)
	if err != nil {
		g.logger.Error("Cannot reach engine, aborting run", zap.Error(err))
		return report, err
	}
	defer g.closeCatalog(catalog)

	views, err := catalog.ListViews(ctx)
	if err != nil {
		g.logger.Error("Cannot list views, aborting run", zap.Error(err))
		return report, err
	}
	report.ViewsSeen = len(views)
	g.logger.Info("Listed views", zap.Int("count", len(views)))

	for _, view := range views {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if g.schemas != nil && !g.schemas[view.Schema] {
			continue
		}
		if !extract.Contains(view.Definition) {
			g.logger.Debug("View does not read from OPENROWSET", zap.String("view", view.QualifiedName()))
			continue
		}

		result := g.ProcessView(ctx, view.QualifiedName(), view.Definition)
		report.Results = append(report.Results, result)
	}

	return report, nil
}

// ProcessView is the per-view flow with source as the text the clause is searched in.
// Failures are logged and returned inside the result.
func (g *Generator) ProcessView(ctx context.Context, view, source string) models.ViewResult {
	start := time.Now()
	result := models.ViewResult{View: view}

	clause, err := g.extractor.ExtractEscaped(view, source)
	if err != nil {
		return g.fail(result, start, err)
	}
	result.Clause = clause

	return g.processClause(ctx, result, start)
}

// ProcessClause is the per-view flow for an operator-supplied clause, used as given without
// re-extraction. The clause is escaped here.
func (g *Generator) ProcessClause(ctx context.Context, view, clause string) models.ViewResult {
	start := time.Now()
	clause = strings.TrimSpace(clause)
	result := models.ViewResult{View: view}

	if !extract.Contains(clause) {
		return g.fail(result, start, errors.ExtractionMiss(view))
	}
	result.Clause = extract.Escape(clause)

	return g.processClause(ctx, result, start)
}

func (g *Generator) processClause(ctx context.Context, result models.ViewResult, start time.Time) models.ViewResult {
	logger := g.logger.With(zap.String("view", result.View))

	catalog, err := g.connector.Connect(ctx)
	if err != nil {
		return g.fail(result, start, err)
	}
	defer g.closeCatalog(catalog)

	columns, err := catalog.DescribeColumns(ctx, result.Clause)
	if err != nil {
		return g.fail(result, start, err)
	}
	result.Columns = columns
	logger.Debug("Described columns", zap.Strings("columns", columns))

	if len(columns) == 0 {
		// nothing to write a statistic for
		logger.Warn("Clause produces no columns, skipping")
		result.Status = models.StatusSkipped
		result.Duration = time.Since(start)
		return result
	}

	if g.dryRun {
		if err := g.render(result); err != nil {
			return g.fail(result, start, err)
		}
	} else {
		if g.writer == nil {
			return g.fail(result, start, errors.ConfigError("No output roots configured", "output"))
		}
		createPath, dropPath, err := g.writer.WriteView(result.View, columns, result.Clause)
		result.CreatePath = createPath
		result.DropPath = dropPath
		if err != nil {
			return g.fail(result, start, err)
		}
		logger.Info("Create statistics commands written", zap.String("path", createPath))
		logger.Info("Drop statistics commands written", zap.String("path", dropPath))
	}

	result.Status = models.StatusWritten
	result.Duration = time.Since(start)
	return result
}

func (g *Generator) render(result models.ViewResult) error {
	for _, kind := range []writer.Kind{writer.Create, writer.Drop} {
		if _, err := fmt.Fprintf(g.out, "-- %s: %s\n", result.View, kind.FileName()); err != nil {
			return errors.FilesystemError("Failed to write dry-run output", "-", err)
		}
		if _, err := g.out.Write(writer.Render(kind, result.Columns, result.Clause)); err != nil {
			return errors.FilesystemError("Failed to write dry-run output", "-", err)
		}
	}
	return nil
}

func (g *Generator) fail(result models.ViewResult, start time.Time, err error) models.ViewResult {
	result.Status = models.StatusFailed
	result.Err = err
	result.Duration = time.Since(start)

	level := zap.ErrorLevel
	if errors.IsRecoverable(err) {
		level = zap.WarnLevel
	}
	if ce := g.logger.Check(level, "View skipped"); ce != nil {
		ce.Write(
			zap.String("view", result.View),
			zap.String("kind", errors.KindOf(err).String()),
			zap.String("code", string(errors.GetErrorCode(err))),
			zap.Error(err))
	}

	return result
}

func (g *Generator) closeCatalog(catalog Catalog) {
	if err := catalog.Close(); err != nil {
		g.logger.Warn("Failed to close engine connection", zap.Error(err))
	}
}
