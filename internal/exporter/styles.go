package exporter

import (
	"github.com/xuri/excelize/v2"

	"taxtrend/internal/config"
	"taxtrend/pkg/contracts/domain"
)

// styles holds the excelize style ids shared by every sheet of a workbook.
type styles struct {
	title1, title2, title3 int
	section                int
	header                 int
	label                  int
	text                   int
	money, moneyNeg        int
	percent, percentNeg    int
	integer                int
}

func newStyles(f *excelize.File, cfg config.FormattingConfig) (*styles, error) {
	normal := &excelize.Font{Family: cfg.FontNormal, Size: cfg.FontSizeNormal, Bold: cfg.FontBoldNormal}
	title := func(size float64) *excelize.Font {
		return &excelize.Font{Family: cfg.FontTitle, Size: size, Bold: cfg.FontBoldTitle}
	}

	left := &excelize.Alignment{Horizontal: "left", Vertical: "center", ShrinkToFit: true}
	right := &excelize.Alignment{Horizontal: "right", Vertical: "center"}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	negative := excelize.Fill{Type: "pattern", Color: []string{negativeFill}, Pattern: 1}
	accounting, percent := cfg.AccountingFormat, cfg.PercentFormat

	s := &styles{}
	defs := []struct {
		id    *int
		style *excelize.Style
	}{
		{&s.title1, &excelize.Style{Font: title(cfg.FontSizeTitle1)}},
		{&s.title2, &excelize.Style{Font: title(cfg.FontSizeTitle2)}},
		{&s.title3, &excelize.Style{Font: title(cfg.FontSizeTitle3)}},
		{&s.section, &excelize.Style{Font: title(cfg.FontSizeTitle2), Alignment: left}},
		{&s.header, &excelize.Style{Font: title(cfg.FontSizeTitle3), Alignment: center}},
		{&s.label, &excelize.Style{Font: title(cfg.FontSizeTitle3), Alignment: left}},
		{&s.text, &excelize.Style{Font: normal, Alignment: left}},
		{&s.money, &excelize.Style{Font: normal, Alignment: right, CustomNumFmt: &accounting}},
		{&s.moneyNeg, &excelize.Style{Font: normal, Alignment: right, CustomNumFmt: &accounting, Fill: negative}},
		{&s.percent, &excelize.Style{Font: normal, Alignment: right, CustomNumFmt: &percent}},
		{&s.percentNeg, &excelize.Style{Font: normal, Alignment: right, CustomNumFmt: &percent, Fill: negative}},
		{&s.integer, &excelize.Style{Font: normal, Alignment: right, NumFmt: 1}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, err
		}
		*d.id = id
	}
	return s, nil
}

// cell picks the style of a value in a column of the given kind. Negative
// money and percent values get a light red fill.
func (s *styles) cell(kind domain.ColumnKind, v any) int {
	switch kind {
	case domain.KindMoney:
		if isNegative(v) {
			return s.moneyNeg
		}
		return s.money
	case domain.KindPercent:
		if isNegative(v) {
			return s.percentNeg
		}
		return s.percent
	case domain.KindInteger:
		return s.integer
	default:
		return s.text
	}
}
