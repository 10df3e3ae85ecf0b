// Package fetcher reads the input company table from XLSX or CSV files,
// resolves column aliases through input profiles, and applies the row range
// and empty-row termination rules.
package fetcher

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// LoadInput reads the configured input file into InputRows. Row IDs are the
// 1-based data-row indices of the source file, stable across range slicing.
func LoadInput(cfg config.InputConfig) ([]model.InputRow, error) {
	var raw [][]string
	var err error

	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".xlsx", ".xlsm":
		raw, err = ReadXLSX(cfg.FilePath)
	case ".csv":
		raw, err = ReadCSV(cfg.FilePath)
	default:
		return nil, eris.Errorf("fetcher: unsupported input extension %q", filepath.Ext(cfg.FilePath))
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	profile, err := ProfileByName(cfg.ProfileName)
	if err != nil {
		return nil, err
	}
	cols := profile.ResolveColumns(raw[0])
	if cols.CompanyName < 0 && cols.GivenURL < 0 {
		return nil, eris.Errorf("fetcher: header matched neither company nor URL column for profile %q", profile.Name)
	}

	rng, err := ParseRowRange(cfg.RowProcessingRange)
	if err != nil {
		return nil, err
	}

	stopAfter := cfg.ConsecutiveEmptyToStop
	if stopAfter <= 0 {
		stopAfter = 3
	}

	var rows []model.InputRow
	emptyStreak := 0
	for i, record := range raw[1:] {
		id := i + 1

		if isBlankRow(record) {
			emptyStreak++
			// The empty-row heuristic only terminates open-ended ranges;
			// an explicit end bound reads through gaps.
			if rng.OpenEnded() && emptyStreak >= stopAfter {
				break
			}
			continue
		}
		emptyStreak = 0

		if !rng.Contains(id) {
			if rng.After(id) {
				break
			}
			continue
		}

		rows = append(rows, cols.RowFrom(id, record))
	}
	return rows, nil
}

// RowRange bounds which 1-based data rows are processed. Zero values mean
// unbounded on that side.
type RowRange struct {
	Start int
	End   int
}

// ParseRowRange parses the range forms "a-b", "a-", "-b", "a", and "".
func ParseRowRange(s string) (RowRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RowRange{}, nil
	}

	if !strings.Contains(s, "-") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return RowRange{}, eris.Errorf("fetcher: bad row range %q", s)
		}
		return RowRange{Start: n, End: n}, nil
	}

	parts := strings.SplitN(s, "-", 2)
	var r RowRange
	if p := strings.TrimSpace(parts[0]); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return RowRange{}, eris.Errorf("fetcher: bad row range start %q", s)
		}
		r.Start = n
	}
	if p := strings.TrimSpace(parts[1]); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return RowRange{}, eris.Errorf("fetcher: bad row range end %q", s)
		}
		r.End = n
	}
	if r.Start > 0 && r.End > 0 && r.End < r.Start {
		return RowRange{}, eris.Errorf("fetcher: inverted row range %q", s)
	}
	return r, nil
}

// Contains reports whether the 1-based row id falls inside the range.
func (r RowRange) Contains(id int) bool {
	if r.Start > 0 && id < r.Start {
		return false
	}
	if r.End > 0 && id > r.End {
		return false
	}
	return true
}

// After reports whether the row id lies past the range end.
func (r RowRange) After(id int) bool {
	return r.End > 0 && id > r.End
}

// OpenEnded reports whether the range has no explicit end bound.
func (r RowRange) OpenEnded() bool { return r.End == 0 }

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
