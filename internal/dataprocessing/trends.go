package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"taxtrend/internal/config"
	apperrors "taxtrend/internal/errors"
	"taxtrend/pkg/contracts/domain"
)

// stableBand is the upper bound, in percent, of the STABLE class.
var stableBand = decimal.RequireFromString("0.5")

// Classify assigns a trend class to a percent change: negative is a
// decline, [0, 0.5] is stable and anything above is growth.
func Classify(pct decimal.Decimal) domain.TrendClass {
	switch {
	case pct.IsNegative():
		return domain.TrendDecline
	case pct.LessThanOrEqual(stableBand):
		return domain.TrendStable
	default:
		return domain.TrendGrowth
	}
}

// TrendAnalyzer computes the statistical analysis of one municipality.
// It holds no state between calls and is safe for concurrent use.
type TrendAnalyzer struct {
	cfg    config.AnalysisConfig
	logger *slog.Logger
}

// NewTrendAnalyzer creates an analyzer. A nil logger uses slog.Default().
func NewTrendAnalyzer(cfg config.AnalysisConfig, logger *slog.Logger) *TrendAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrendAnalyzer{cfg: cfg, logger: logger.With(slog.String("component", "trend_analyzer"))}
}

// Analyze builds the analysis bundle of one municipality. Conditions that
// only empty some sections (fewer than two years, no qualifying contributor)
// are recorded in Bundle.Issues; an error is returned only when the initial
// year is outside the schema.
func (a *TrendAnalyzer) Analyze(ctx context.Context, group MunicipalityGroup, years domain.YearSet) (*domain.AnalysisBundle, error) {
	if !years.Contains(a.cfg.InitialYear) {
		return nil, apperrors.NewConfigError("initial year is not present in the data", nil).
			WithContext("initial_year", a.cfg.InitialYear).
			WithContext("years", fmt.Sprint([]string(years)))
	}

	rows := group.Rows
	b := &domain.AnalysisBundle{
		MunicipalityCode: group.Code,
		MunicipalityName: group.Name,
		InitialYear:      a.cfg.InitialYear,
		PenultimateYear:  years.Penultimate(),
		LastYear:         years.Last(),
		ContributorCount: len(rows),
	}

	for _, y := range years {
		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Value(y))
		}
		b.YearlyTotals = append(b.YearlyTotals, domain.YearTotal{Year: y, Total: total})
	}

	if len(years) < 2 {
		err := apperrors.NewInsufficientDataError(
			fmt.Sprintf("trend analysis needs at least two years, got %d", len(years))).
			WithContext("municipality", group.Code)
		b.Issues = append(b.Issues, err)
		a.logger.WarnContext(ctx, "Trend sections omitted", slog.String("municipality", group.Code), slog.String("error", err.Error()))
	} else {
		qualifying := a.qualifying(rows, b.LastYear, b.YearlyTotals[len(b.YearlyTotals)-1].Total)
		b.QualifyingCount = len(qualifying)
		if len(qualifying) == 0 {
			err := apperrors.NewInsufficientDataError("no contributor meets the minimum analysis threshold").
				WithContext("municipality", group.Code).
				WithContext("threshold_pct", a.cfg.MinimumAnalysisThresholdPercentage)
			b.Issues = append(b.Issues, err)
			a.logger.WarnContext(ctx, "No qualifying contributors", slog.String("municipality", group.Code))
		}

		b.TrendCounts = a.countTrends(qualifying, b.PenultimateYear, b.LastYear)
		b.LastPeriod = a.rank(qualifying, b.PenultimateYear, b.LastYear)
		b.FullPeriod = a.rank(qualifying, a.cfg.InitialYear, b.LastYear)
	}

	b.Deviation = a.deviation(rows, years.Since(a.cfg.InitialYear))
	b.TopContributors = a.topContributors(rows, b.LastYear)
	for _, r := range rows {
		if r.Sum(years).IsZero() {
			b.ZeroMovement = append(b.ZeroMovement, r.EntityKey)
		}
	}

	a.logger.DebugContext(ctx, "Municipality analysed",
		slog.String("municipality", group.Code),
		slog.Int("contributors", b.ContributorCount),
		slog.Int("qualifying", b.QualifyingCount),
		slog.Int("zero_movement", len(b.ZeroMovement)))

	return b, nil
}

// qualifying keeps rows whose last-year value reaches the minimum share of
// the municipal last-year total.
func (a *TrendAnalyzer) qualifying(rows []domain.WideRecord, last string, total decimal.Decimal) []domain.WideRecord {
	minValue := total.Mul(decimal.NewFromFloat(a.cfg.MinimumAnalysisThresholdPercentage)).Div(hundred)

	var out []domain.WideRecord
	for _, r := range rows {
		if r.Value(last).GreaterThanOrEqual(minValue) {
			out = append(out, r)
		}
	}
	return out
}

func (a *TrendAnalyzer) countTrends(rows []domain.WideRecord, from, to string) domain.TrendCounts {
	positive := decimal.NewFromFloat(a.cfg.SignificantPositiveVariation)
	negative := decimal.NewFromFloat(math.Abs(a.cfg.SignificantNegativeVariation)).Neg()

	var c domain.TrendCounts
	for _, r := range rows {
		pct := rawPercentChange(r.Value(from), r.Value(to))
		switch Classify(pct) {
		case domain.TrendGrowth:
			c.Growth++
			if pct.GreaterThan(positive) {
				c.SignificantGrowth++
			}
		case domain.TrendStable:
			c.Stable++
		case domain.TrendDecline:
			c.Decline++
			if pct.LessThan(negative) {
				c.SignificantDecline++
			}
		}
	}
	return c
}

// rank returns the top TopTrends entries per class between two years,
// ordered by percent change descending. Exact ties keep wide-table order.
func (a *TrendAnalyzer) rank(rows []domain.WideRecord, from, to string) *domain.TrendRanking {
	type scored struct {
		entry domain.TrendEntry
		raw   decimal.Decimal
	}

	byClass := make(map[domain.TrendClass][]scored, len(domain.TrendClasses))
	for _, r := range rows {
		start, end := r.Value(from), r.Value(to)
		raw := rawPercentChange(start, end)
		class := Classify(raw)
		byClass[class] = append(byClass[class], scored{
			entry: domain.TrendEntry{
				LegalName:      r.LegalName,
				RegistrationID: r.RegistrationID,
				StartValue:     start,
				EndValue:       end,
				PercentChange:  raw.RoundBank(2),
				AbsoluteChange: end.Sub(start),
			},
			raw: raw,
		})
	}

	ranking := &domain.TrendRanking{
		StartYear: from,
		EndYear:   to,
		Groups:    make(map[domain.TrendClass][]domain.TrendEntry, len(domain.TrendClasses)),
	}
	for _, class := range domain.TrendClasses {
		items := byClass[class]
		slices.SortStableFunc(items, func(x, y scored) int {
			return y.raw.Cmp(x.raw)
		})
		entries := make([]domain.TrendEntry, 0, min(len(items), a.cfg.TopTrends))
		for _, it := range items[:min(len(items), a.cfg.TopTrends)] {
			entries = append(entries, it.entry)
		}
		ranking.Groups[class] = entries
	}
	return ranking
}

// deviation ranks rows with every value in years strictly positive by the
// sample standard deviation of those values.
func (a *TrendAnalyzer) deviation(rows []domain.WideRecord, years domain.YearSet) []domain.DeviationEntry {
	if len(years) == 0 {
		return nil
	}

	var entries []domain.DeviationEntry
	for _, r := range rows {
		xs := make([]float64, 0, len(years))
		positive := true
		for _, y := range years {
			v := r.Value(y)
			if !v.IsPositive() {
				positive = false
				break
			}
			xs = append(xs, v.InexactFloat64())
		}
		if !positive {
			continue
		}

		s := Describe(xs)
		entries = append(entries, domain.DeviationEntry{
			LegalName:      r.LegalName,
			RegistrationID: r.RegistrationID,
			StdDev:         s.StdDev,
			Mean:           s.Mean,
			Median:         s.Median,
		})
	}

	slices.SortStableFunc(entries, func(x, y domain.DeviationEntry) int {
		switch {
		case x.StdDev > y.StdDev:
			return -1
		case x.StdDev < y.StdDev:
			return 1
		}
		return 0
	})
	return entries[:min(len(entries), a.cfg.StandardDeviation)]
}

// topContributors returns the TopContributors largest last-year values.
func (a *TrendAnalyzer) topContributors(rows []domain.WideRecord, last string) []domain.ContributorShare {
	shares := make([]domain.ContributorShare, 0, len(rows))
	for _, r := range rows {
		shares = append(shares, domain.ContributorShare{
			LegalName:      r.LegalName,
			RegistrationID: r.RegistrationID,
			Value:          r.Value(last),
		})
	}
	slices.SortStableFunc(shares, func(x, y domain.ContributorShare) int {
		return y.Value.Cmp(x.Value)
	})
	return shares[:min(len(shares), a.cfg.TopContributors)]
}
