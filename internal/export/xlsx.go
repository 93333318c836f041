package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

const (
	quoteSheet = "Quote"
	basisSheet = "Cost basis"
)

func writeXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(basisSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := fillQuoteSheet(f, styles, r.Output); err != nil {
		return err
	}
	if err := fillBasisSheet(f, styles, r.Output); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type sheetStyles struct {
	header  int
	money   int
	unit    int
	percent int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	unitFmt := "0.000000"

	var s sheetStyles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#F1F5F9"}, Pattern: 1},
		Border: border,
	}); err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: 4, Border: border}); err != nil {
		return s, fmt.Errorf("create money style: %w", err)
	}
	if s.unit, err = f.NewStyle(&excelize.Style{CustomNumFmt: &unitFmt, Border: border}); err != nil {
		return s, fmt.Errorf("create unit style: %w", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10, Border: border}); err != nil {
		return s, fmt.Errorf("create percent style: %w", err)
	}
	return s, nil
}

func fillQuoteSheet(f *excelize.File, st sheetStyles, out quote.Output) error {
	set := func(col, row int, value any, style int) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(quoteSheet, cell, value); err != nil {
			return err
		}
		return f.SetCellStyle(quoteSheet, cell, cell, style)
	}

	if err := set(1, 1, "Metric", st.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range out.Scenarios {
		if err := set(i+2, 1, AdvanceLabel(s.AdvancePct), st.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for r, m := range metrics {
		row := r + 2
		if err := set(1, row, m.label, st.header); err != nil {
			return fmt.Errorf("write label: %w", err)
		}
		for i, s := range out.Scenarios {
			var err error
			switch m.kind {
			case kindPercent:
				if v, perr := m.pct(s).Float64(); perr == nil {
					err = set(i+2, row, v, st.percent)
				} else {
					err = set(i+2, row, NotApplicable, st.percent)
				}
			case kindUnit:
				err = set(i+2, row, m.value(s), st.unit)
			default:
				err = set(i+2, row, m.value(s), st.money)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", m.label, err)
			}
		}
	}

	return f.SetColWidth(quoteSheet, "A", "A", 38)
}

func fillBasisSheet(f *excelize.File, st sheetStyles, out quote.Output) error {
	rows := []struct {
		label string
		value float64
		style int
	}{
		{"Unit cost (quote currency)", out.UnitCostQuoteCurrency, st.unit},
		{"Per-unit add-on", out.PerUnitAddon, st.unit},
		{"Landed cost per unit", out.LandedCostPerUnit, st.unit},
		{"Total shipment cost", out.TotalShipmentCost, st.money},
		{"Financing factor", out.FinancingFactor, st.percent},
	}
	for i, r := range rows {
		label := fmt.Sprintf("A%d", i+1)
		value := fmt.Sprintf("B%d", i+1)
		if err := f.SetCellValue(basisSheet, label, r.label); err != nil {
			return fmt.Errorf("write cost basis: %w", err)
		}
		if err := f.SetCellStyle(basisSheet, label, label, st.header); err != nil {
			return fmt.Errorf("style cost basis: %w", err)
		}
		if err := f.SetCellValue(basisSheet, value, r.value); err != nil {
			return fmt.Errorf("write cost basis: %w", err)
		}
		if err := f.SetCellStyle(basisSheet, value, value, r.style); err != nil {
			return fmt.Errorf("style cost basis: %w", err)
		}
	}
	return f.SetColWidth(basisSheet, "A", "A", 30)
}
