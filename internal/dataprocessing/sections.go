package dataprocessing

import (
	"fmt"

	"taxtrend/pkg/contracts/domain"
)

// Section titles and fixed texts of the analysis sheet.
const (
	TitleYearlyTotals     = "VALOR TOTAL AGREGADO POR ANO"
	TitleContributorCount = "TOTAL DE CONTRIBUINTES"
	TitleTrendCounts      = "CONTAGEM DE TENDÊNCIAS"
	TitleTopContributors  = "PRINCIPAIS CONTRIBUINTES"

	DeviationNote = "Nota Explicativa: O desvio padrão indica a variabilidade das contribuições ao longo do período analisado."

	colName         = "NOME / RAZÃO SOCIAL"
	colRegistration = "INSCEST"
)

// Sections renders a bundle as the ordered blocks of its analysis sheet.
// Trend sections are left out when the bundle has no rankings.
func Sections(b *domain.AnalysisBundle) []domain.AnalysisSection {
	sections := []domain.AnalysisSection{
		domain.TableSection{Title: TitleYearlyTotals, Table: yearlyTotalsTable(b)},
		domain.ScalarSection{Title: TitleContributorCount, Value: b.ContributorCount, Kind: domain.KindInteger},
	}

	if b.LastPeriod != nil {
		sections = append(sections, domain.TableSection{Title: TitleTrendCounts, Table: trendCountsTable(b.TrendCounts)})
	}

	sections = append(sections, domain.TableSection{
		Title: fmt.Sprintf("DESVIO PADRÃO %s - %s", b.InitialYear, b.LastYear),
		Table: deviationTable(b.Deviation),
		Note:  DeviationNote,
	})

	if b.LastPeriod != nil {
		sections = append(sections, trendSection(b.LastPeriod))
	}
	if b.FullPeriod != nil {
		sections = append(sections, trendSection(b.FullPeriod))
	}

	sections = append(sections,
		domain.TableSection{Title: TitleTopContributors, Table: topContributorsTable(b.TopContributors)},
		domain.TableSection{
			Title: fmt.Sprintf("CONTRIBUINTES SEM MOVIMENTAÇÃO DE %s À %s", b.InitialYear, b.LastYear),
			Table: zeroMovementTable(b.ZeroMovement),
		},
	)
	return sections
}

func yearlyTotalsTable(b *domain.AnalysisBundle) *domain.Table {
	t := domain.NewTable(domain.Text("ANO"), domain.Money("VALOR"))
	t.HideHeader = true
	for _, yt := range b.YearlyTotals {
		t.Append(yt.Year, yt.Total)
	}
	return t
}

func trendCountsTable(c domain.TrendCounts) *domain.Table {
	t := domain.NewTable(domain.Text("TENDÊNCIA"), domain.Integer("QUANTIDADE"))
	t.HideHeader = true
	t.Append(string(domain.TrendGrowth), c.Growth)
	t.Append(string(domain.TrendStable), c.Stable)
	t.Append(string(domain.TrendDecline), c.Decline)
	t.Append("CRESCIMENTO SIGNIFICATIVO", c.SignificantGrowth)
	t.Append("DECLÍNIO SIGNIFICATIVO", c.SignificantDecline)
	return t
}

func deviationTable(entries []domain.DeviationEntry) *domain.Table {
	t := domain.NewTable(
		domain.Text(colName),
		domain.Text(colRegistration),
		domain.Money("VALOR DP"),
		domain.Money("MÉDIA"),
		domain.Money("MEDIANA"),
	)
	for _, e := range entries {
		t.Append(e.LegalName, e.RegistrationID, e.StdDev, e.Mean, e.Median)
	}
	return t
}

func trendSection(r *domain.TrendRanking) domain.TrendGroupSection {
	s := domain.TrendGroupSection{Title: fmt.Sprintf("TENDÊNCIA %s / %s", r.StartYear, r.EndYear)}
	for _, class := range domain.TrendClasses {
		t := domain.NewTable(
			domain.Text(colName),
			domain.Text(colRegistration),
			domain.Money("VALOR "+r.StartYear),
			domain.Money("VALOR "+r.EndYear),
			domain.Percent("VARIAÇÃO %"),
			domain.Money("VARIAÇÃO R$"),
		)
		for _, e := range r.Groups[class] {
			t.Append(e.LegalName, e.RegistrationID, e.StartValue, e.EndValue, e.PercentChange, e.AbsoluteChange)
		}
		s.Groups = append(s.Groups, domain.TrendGroup{Label: string(class), Table: t})
	}
	return s
}

func topContributorsTable(shares []domain.ContributorShare) *domain.Table {
	t := domain.NewTable(domain.Text(colName), domain.Text(colRegistration), domain.Money("CONTRIBUIÇÃO"))
	for _, s := range shares {
		t.Append(s.LegalName, s.RegistrationID, s.Value)
	}
	return t
}

func zeroMovementTable(keys []domain.EntityKey) *domain.Table {
	t := domain.NewTable(domain.Text(colName), domain.Text(colRegistration))
	for _, k := range keys {
		t.Append(k.LegalName, k.RegistrationID)
	}
	return t
}
