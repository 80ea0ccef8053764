package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"taxtrend/internal/config"
	apperrors "taxtrend/internal/errors"
	"taxtrend/internal/infrastructure"
	"taxtrend/pkg/contracts/domain"
)

// Pipeline stage names, used for metrics and spans.
const (
	StageConsolidate = "consolidate"
	StagePivot       = "pivot"
	StageVariation   = "variation"
	StageAnalysis    = "analysis"
)

// MunicipalityAnalysis is the analysis output of one municipality.
type MunicipalityAnalysis struct {
	Code     string
	Name     string
	Bundle   *domain.AnalysisBundle
	Sections []domain.AnalysisSection
}

// MunicipalityFailure is a municipality whose analysis could not be built.
type MunicipalityFailure struct {
	Code string
	Err  error
}

// Result is everything a run hands to the report sink.
type Result struct {
	Years         domain.YearSet
	Consolidation *ConsolidationReport
	Dedup         DedupStats
	Unified       []domain.ContributorRecord
	Wide          *WideTable
	Variations    map[string]*domain.Table
	// VariationErr is set when variation tables could not be built at all.
	VariationErr error
	// Analyses is ordered by municipality code.
	Analyses []MunicipalityAnalysis
	Failures []MunicipalityFailure
}

// Processor runs the consolidation and analysis pipeline.
type Processor struct {
	cfg      *config.Config
	ingestor FileIngestor
	analyzer *TrendAnalyzer
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// NewProcessor wires a processor. metrics may be nil.
func NewProcessor(cfg *config.Config, ingestor FileIngestor, metrics *infrastructure.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:      cfg,
		ingestor: ingestor,
		analyzer: NewTrendAnalyzer(cfg.Analysis, logger),
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "processor")),
	}
}

// Run consolidates files and derives every table of the report. It fails
// when no file can be ingested or when the initial year is not part of the
// data; problems confined to one municipality are collected in Failures.
func (p *Processor) Run(ctx context.Context, files []string) (*Result, error) {
	ctx, span := infrastructure.StartSpan(ctx, "pipeline.run", attribute.Int("files", len(files)))
	defer span.End()

	res := &Result{}

	// Consolidate
	start := time.Now()
	stageCtx, stageSpan := infrastructure.StartSpan(ctx, "pipeline."+StageConsolidate)
	store, report, err := Consolidate(stageCtx, files, p.ingestor, p.logger)
	res.Consolidation = report
	p.recordConsolidation(report)
	if err != nil {
		infrastructure.RecordError(stageCtx, err)
		stageSpan.End()
		infrastructure.RecordError(ctx, err)
		return res, err
	}
	res.Dedup = store.Deduplicate()
	stageSpan.SetAttributes(attribute.Int("records", res.Dedup.After))
	stageSpan.End()
	p.metrics.ObserveStage(StageConsolidate, start)

	p.logger.InfoContext(ctx, "Duplicates removed",
		slog.Int("before", res.Dedup.Before),
		slog.Int("after", res.Dedup.After))
	if p.metrics != nil {
		p.metrics.DuplicatesDropped.Add(float64(res.Dedup.Dropped()))
	}

	res.Years = store.Years()
	if !res.Years.Contains(p.cfg.Analysis.InitialYear) {
		err := apperrors.NewConfigError("initial year is not present in the data", nil).
			WithContext("initial_year", p.cfg.Analysis.InitialYear).
			WithContext("first_year", res.Years.First()).
			WithContext("last_year", res.Years.Last())
		infrastructure.RecordError(ctx, err)
		return res, err
	}

	// Pivot
	start = time.Now()
	res.Unified = BuildUnified(store)
	res.Wide = BuildWide(store)
	p.metrics.ObserveStage(StagePivot, start)

	// Variation
	start = time.Now()
	res.Variations, res.VariationErr = ComputeVariations(res.Wide, res.Years)
	if res.VariationErr != nil {
		p.logger.WarnContext(ctx, "Variation tables skipped", slog.String("error", res.VariationErr.Error()))
	}
	p.metrics.ObserveStage(StageVariation, start)

	// Analysis
	start = time.Now()
	if err := p.analyse(ctx, res); err != nil {
		infrastructure.RecordError(ctx, err)
		return res, err
	}
	p.metrics.ObserveStage(StageAnalysis, start)

	p.logger.InfoContext(ctx, "Pipeline complete",
		slog.Int("municipalities", len(res.Analyses)),
		slog.Int("failed", len(res.Failures)),
		slog.Any("years", res.Years))

	return res, nil
}

// analyse runs the per-municipality analysis concurrently. Each worker owns
// one slot of the results slice, so ordering by code is preserved.
func (p *Processor) analyse(ctx context.Context, res *Result) error {
	groups := res.Wide.ByMunicipality()
	out := make([]MunicipalityAnalysis, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Pipeline.Workers))

	for i, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			spanCtx, span := infrastructure.StartSpan(gctx, "pipeline.municipality",
				attribute.String("municipality.code", group.Code),
				attribute.Int("contributors", len(group.Rows)))
			defer span.End()

			bundle, err := p.analyzer.Analyze(spanCtx, group, res.Years)
			if err != nil {
				infrastructure.RecordError(spanCtx, err)
				errs[i] = err
				return nil
			}
			for _, issue := range bundle.Issues {
				span.AddEvent(issue.Error())
			}
			out[i] = MunicipalityAnalysis{
				Code:     group.Code,
				Name:     group.Name,
				Bundle:   bundle,
				Sections: Sections(bundle),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, group := range groups {
		if errs[i] != nil {
			p.logger.ErrorContext(ctx, "Municipality analysis failed",
				slog.String("municipality", group.Code),
				slog.String("error", errs[i].Error()))
			res.Failures = append(res.Failures, MunicipalityFailure{Code: group.Code, Err: errs[i]})
			p.countMunicipality("failed")
			continue
		}
		res.Analyses = append(res.Analyses, out[i])
		p.countMunicipality("ok")
	}
	return nil
}

func (p *Processor) recordConsolidation(report *ConsolidationReport) {
	if p.metrics == nil || report == nil {
		return
	}
	p.metrics.FilesIngested.WithLabelValues("ok").Add(float64(report.Ingested()))
	p.metrics.FilesIngested.WithLabelValues("failed").Add(float64(len(report.Failures)))
	p.metrics.RowsRead.Add(float64(report.Rows))
	p.metrics.ValuesCoerced.Add(float64(report.MalformedCells))
	if u, ok := p.ingestor.(interface{ UnknownMunicipalities() []string }); ok {
		p.metrics.UnknownMunicipalities.Add(float64(len(u.UnknownMunicipalities())))
	}
}

func (p *Processor) countMunicipality(status string) {
	if p.metrics != nil {
		p.metrics.MunicipalitiesAnalysed.WithLabelValues(status).Inc()
	}
}
