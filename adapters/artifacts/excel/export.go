// Package excel exports a batch's power summaries to an XLSX workbook, one
// sheet per test family, for ad-hoc inspection outside the pipeline.
package excel

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"subpower/domain/core"
	"subpower/domain/power"
	"subpower/internal/errors"
	"subpower/ports"
)

var headers = []string{"replicate", "count", "power_mean", "power_std", "power_min", "power_max", "traditional", "original_p", "alpha"}

// Exporter writes power summaries to a workbook
type Exporter struct {
	store ports.SummaryStore
}

// NewExporter creates an exporter reading from the given store
func NewExporter(store ports.SummaryStore) *Exporter {
	return &Exporter{store: store}
}

// Export writes one sheet per family covering replicates 0..counts[family]
func (e *Exporter) Export(ctx context.Context, path string, replicateCounts map[core.FamilyName]int) error {
	f := excelize.NewFile()
	defer f.Close()

	// map order is random; sort so the workbook layout is stable run to run
	families := make([]core.FamilyName, 0, len(replicateCounts))
	for family := range replicateCounts {
		families = append(families, family)
	}
	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })

	first := true
	for _, family := range families {
		count := replicateCounts[family]
		sheet := family.String()
		if first {
			// replace the default sheet rather than leaving an empty one
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return errors.Persistence("renaming sheet", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return errors.Persistence("creating sheet", err)
			}
		}

		if err := writeHeader(f, sheet); err != nil {
			return err
		}

		row := 2
		for index := 0; index < count; index++ {
			summary, err := e.store.Load(ctx, family, index)
			if err != nil {
				return errors.Wrapf(err, "loading %s replicate %d", family, index)
			}
			written, err := writeSummary(f, sheet, row, summary)
			if err != nil {
				return err
			}
			row += written
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Persistence("saving workbook", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return errors.Persistence("building header cell", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return errors.Persistence("writing header", err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, sheet string, startRow int, summary *power.PowerSummary) (int, error) {
	summaries, err := summary.Empirical.Summaries()
	if err != nil {
		return 0, errors.Wrap(err, "summarizing empirical curve")
	}

	for i, cs := range summaries {
		traditional := ""
		if summary.Traditional != nil {
			traditional = fmt.Sprintf("%.6f", summary.Traditional[i])
		}
		values := []interface{}{
			summary.Replicate, cs.Count, cs.Mean, cs.StdDev, cs.Min, cs.Max,
			traditional, summary.OriginalP, summary.Alpha,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, startRow+i)
			if err != nil {
				return 0, errors.Persistence("building cell", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return 0, errors.Persistence("writing cell", err)
			}
		}
	}
	return len(summaries), nil
}
