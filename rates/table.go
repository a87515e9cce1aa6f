package rates

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
)

// Metadata declares which input columns map to the canonical year, age,
// sex, and value axes. AgeCol and SexCol may be empty for tables without
// those axes. SexKeys maps the labels found in the sex column to strata.
type Metadata struct {
	YearCol  string
	AgeCol   string
	SexCol   string
	ValueCol string
	SexKeys  map[string]Sex
}

// A Record is one row of raw demographic input: numeric columns by name,
// plus string-valued label columns such as sex.
type Record struct {
	Values map[string]float64
	Labels map[string]string
}

// A Table maps (year, [sex], [age bin]) to a rate. Years are sorted; age
// bins are right-open intervals derived from the input's age breakpoints,
// with the lowest and highest bins open-ended.
type Table struct {
	years   []float64
	ageBins []float64
	hasSex  bool

	// values[sex][yearIndex][binIndex]; the Both key is used when hasSex
	// is false.
	values map[Sex][][]float64
}

// NewTable standardizes raw records into a rate table. Missing columns,
// unknown sex labels, and age bins that do not fully cover every
// represented (year, sex) stratum are configuration errors.
func NewTable(records []Record, meta Metadata) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("rate table input is empty")
	}
	if meta.YearCol == "" || meta.ValueCol == "" {
		return nil, fmt.Errorf("rate table metadata must name year and value columns")
	}

	if err := checkColumns(records, meta); err != nil {
		return nil, err
	}

	t := &Table{hasSex: meta.SexCol != ""}
	t.years = uniqueSorted(records, meta.YearCol)
	if meta.AgeCol != "" {
		t.ageBins = uniqueSorted(records, meta.AgeCol)
	} else {
		t.ageBins = []float64{0}
	}

	if err := t.fill(records, meta); err != nil {
		return nil, err
	}

	return t, nil
}

func checkColumns(records []Record, meta Metadata) error {
	var missing []string

	need := []string{meta.YearCol, meta.ValueCol}
	if meta.AgeCol != "" {
		need = append(need, meta.AgeCol)
	}

	for _, col := range need {
		if _, ok := records[0].Values[col]; !ok {
			missing = append(missing, col)
		}
	}
	if meta.SexCol != "" {
		if _, ok := records[0].Labels[meta.SexCol]; !ok {
			missing = append(missing, meta.SexCol)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("rate table input is missing columns: %s",
			strings.Join(missing, ", "))
	}

	return nil
}

func uniqueSorted(records []Record, col string) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, r := range records {
		v := r.Values[col]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	sort.Float64s(out)

	return out
}

func (t *Table) fill(records []Record, meta Metadata) error {
	sexes := []Sex{Both}
	if t.hasSex {
		sexes = []Sex{FemaleSex, MaleSex}
	}

	t.values = map[Sex][][]float64{}
	for _, sex := range sexes {
		grid := make([][]float64, len(t.years))
		for i := range grid {
			grid[i] = make([]float64, len(t.ageBins))
			for j := range grid[i] {
				grid[i][j] = math.NaN()
			}
		}
		t.values[sex] = grid
	}

	for _, r := range records {
		sex := Both
		if t.hasSex {
			label := r.Labels[meta.SexCol]
			mapped, ok := meta.SexKeys[label]
			if !ok {
				return fmt.Errorf("unrecognized sex label %q in rate table", label)
			}
			sex = mapped
		}

		yi := indexOf(t.years, r.Values[meta.YearCol])
		bi := 0
		if meta.AgeCol != "" {
			bi = indexOf(t.ageBins, r.Values[meta.AgeCol])
		}

		t.values[sex][yi][bi] = r.Values[meta.ValueCol]
	}

	// Post-standardization NaN check: every (year, sex) stratum must cover
	// every age bin. Gaps are fatal, not an interpolation opportunity.
	for sex, grid := range t.values {
		for yi, row := range grid {
			for bi, v := range row {
				if math.IsNaN(v) {
					return fmt.Errorf(
						"rate table has no value for year %v, age bin %v, sex %d",
						t.years[yi], t.ageBins[bi], sex)
				}
			}
		}
	}

	return nil
}

func indexOf(sorted []float64, v float64) int {
	return sort.SearchFloat64s(sorted, v)
}

// HasSex reports whether the table carries a sex axis.
func (t *Table) HasSex() bool { return t.hasSex }

// NumBins returns the number of age bins.
func (t *Table) NumBins() int { return len(t.ageBins) }

// Years returns the sorted year keys.
func (t *Table) Years() []float64 { return t.years }

// NearestYearIndex returns the index of the year key closest to year.
// Ties resolve to the lower year.
func (t *Table) NearestYearIndex(year float64) int {
	best := 0
	bestDist := math.Abs(t.years[0] - year)
	for i := 1; i < len(t.years); i++ {
		d := math.Abs(t.years[i] - year)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	return best
}

// BinIndex assigns an age to its right-open bin. Ages below the first
// breakpoint land in bin 0; ages above the last land in the last bin.
func (t *Table) BinIndex(age float64) int {
	// First bin whose breakpoint exceeds age, minus one.
	i := sort.SearchFloat64s(t.ageBins, age)
	if i < len(t.ageBins) && t.ageBins[i] == age {
		return i
	}
	if i == 0 {
		return 0
	}

	return i - 1
}

// RatesAt returns a copy of the per-bin rates for one year index and sex
// stratum. Asking a sexless table for a specific stratum returns the Both
// values.
func (t *Table) RatesAt(yearIndex int, sex Sex) []float64 {
	if !t.hasSex {
		sex = Both
	}

	src := t.values[sex][yearIndex]
	out := make([]float64, len(src))
	copy(out, src)

	return out
}

// Resolve returns one rate per query entry, selecting the nearest year and
// binning each agent by age. Sex-stratified tables resolve female and male
// sub-populations independently and merge by position; they panic when the
// query carries no sex information.
func (t *Table) Resolve(q Query) []float64 {
	yi := t.NearestYearIndex(q.Year)
	out := make([]float64, len(q.Ages))

	if t.hasSex {
		if q.Female == nil {
			log.Panic("cannot resolve a sex-stratified table without sex information")
		}

		f := t.values[FemaleSex][yi]
		m := t.values[MaleSex][yi]
		for i, age := range q.Ages {
			row := m
			if q.Female[i] {
				row = f
			}
			out[i] = row[t.BinIndex(age)]
		}

		return out
	}

	row := t.values[Both][yi]
	for i, age := range q.Ages {
		out[i] = row[t.BinIndex(age)]
	}

	return out
}

// ScalarAt returns the bin-0 rate at the nearest year, for tables used as
// population-level series (e.g. crude birth rates standardized to a single
// ageless bin).
func (t *Table) ScalarAt(year float64) float64 {
	if t.hasSex {
		log.Panic("a sex-stratified table cannot be resolved as a scalar series")
	}

	return t.values[Both][t.NearestYearIndex(year)][0]
}
