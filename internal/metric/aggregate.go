package metric

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PeriodKind selects how an aggregation window is derived.
type PeriodKind string

const (
	Period7Days  PeriodKind = "7d"
	Period30Days PeriodKind = "30d"
	Period90Days PeriodKind = "90d"
	PeriodAll    PeriodKind = "all"
	PeriodCustom PeriodKind = "custom"
)

// Period is a time window selector. For PeriodCustom, Start and End carry the
// resolved day boundaries; the other kinds derive their window from "now".
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// ParsePeriod maps the wire value of a period selector. The empty string
// defaults to all-time.
func ParsePeriod(s string) (Period, error) {
	switch PeriodKind(s) {
	case Period7Days, Period30Days, Period90Days, PeriodAll:
		return Period{Kind: PeriodKind(s)}, nil
	case "":
		return Period{Kind: PeriodAll}, nil
	default:
		return Period{}, &Error{Code: CodeOutOfRange, Message: fmt.Sprintf("unknown period %q", s)}
	}
}

// CustomPeriod builds a custom window from date-only bounds, expanded to
// whole days in the given location: start at day begin, end just before the
// next day begins.
func CustomPeriod(start, end time.Time, loc *time.Location) Period {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return Period{Kind: PeriodCustom, Start: from, End: to}
}

// Window resolves the period to concrete bounds. Both bounds are inclusive;
// a zero bound means unbounded on that side. The N-day windows clamp to
// [cutoff, now]; all-time is open on both ends so future-dated readings stay
// visible.
func (p Period) Window(now time.Time) (from, to time.Time) {
	switch p.Kind {
	case Period7Days:
		return now.AddDate(0, 0, -7), now
	case Period30Days:
		return now.AddDate(0, 0, -30), now
	case Period90Days:
		return now.AddDate(0, 0, -90), now
	case PeriodCustom:
		return p.Start, p.End
	default:
		return time.Time{}, time.Time{}
	}
}

// FieldStats holds per-field aggregates, rounded to the family's display
// precision. Zero-valued when the group is empty; the Count sentinel is what
// presentation checks.
type FieldStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// DayPoint is one calendar day of a trend series: per-field means of the
// readings captured that local day.
type DayPoint struct {
	Day    string            `json:"day"`
	Count  int               `json:"count"`
	Fields map[Field]float64 `json:"fields"`
}

// GroupStats aggregates one subtype partition.
type GroupStats struct {
	Subtype Subtype              `json:"subtype,omitempty"`
	Count   int                  `json:"count"`
	Fields  map[Field]FieldStats `json:"fields"`
	Daily   []DayPoint           `json:"daily"`
}

// Summary is the period aggregation result for one family and one owner.
type Summary struct {
	Family Family       `json:"family"`
	Period PeriodKind   `json:"period"`
	Total  int          `json:"total"`
	Groups []GroupStats `json:"groups"`
	// WeightChange is the trailing-30-day mean minus the mean of older
	// in-scope readings, kg. Zero when either side is empty. Only computed
	// for the weight family.
	WeightChange float64 `json:"weight_change_kg"`
}

// Aggregate filters readings to the period window, partitions them by subtype
// and computes count, mean, min, max and a daily trend series per partition.
// Empty partitions yield all-zero statistics, never nulls. Pure computation:
// single pass over the input plus per-day grouping.
func Aggregate(d Descriptor, readings []Reading, p Period, now time.Time, loc *time.Location) Summary {
	from, to := p.Window(now)
	inWindow := filterWindow(readings, from, to)

	summary := Summary{
		Family: d.Family,
		Period: p.Kind,
		Total:  len(inWindow),
	}

	for _, sub := range partitionKeys(d) {
		group := inWindow
		if d.HasSubtypes() {
			group = filterSubtype(inWindow, sub)
		}
		summary.Groups = append(summary.Groups, aggregateGroup(d, sub, group, loc))
	}

	if d.Family == FamilyWeight {
		summary.WeightChange = weightChange(inWindow, now, d.Precision[FieldWeight])
	}
	return summary
}

// partitionKeys returns the subtype partitions a family aggregates into;
// families without subtypes use a single unnamed partition.
func partitionKeys(d Descriptor) []Subtype {
	if !d.HasSubtypes() {
		return []Subtype{SubtypeNone}
	}
	return d.Subtypes
}

func filterWindow(readings []Reading, from, to time.Time) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if !from.IsZero() && r.CapturedAt.Before(from) {
			continue
		}
		if !to.IsZero() && r.CapturedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func filterSubtype(readings []Reading, sub Subtype) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.Subtype == sub {
			out = append(out, r)
		}
	}
	return out
}

// groupFields lists the fields a partition reports on: the family's required
// fields plus any fields conditional on this partition's subtype.
func groupFields(d Descriptor, sub Subtype) []Field {
	fields := append([]Field(nil), d.Required...)
	fields = append(fields, d.Conditional[sub]...)
	return fields
}

func aggregateGroup(d Descriptor, sub Subtype, readings []Reading, loc *time.Location) GroupStats {
	fields := groupFields(d, sub)
	stats := GroupStats{
		Subtype: sub,
		Count:   len(readings),
		Fields:  make(map[Field]FieldStats, len(fields)),
		Daily:   dailySeries(d, fields, readings, loc),
	}

	for _, f := range fields {
		var sum, min, max float64
		n := 0
		for _, r := range readings {
			if !r.Has(f) {
				continue
			}
			v := r.Value(f)
			if n == 0 || v < min {
				min = v
			}
			if n == 0 || v > max {
				max = v
			}
			sum += v
			n++
		}
		fs := FieldStats{}
		if n > 0 {
			fs = FieldStats{
				Mean: roundTo(sum/float64(n), d.Precision[f]),
				Min:  min,
				Max:  max,
			}
		}
		stats.Fields[f] = fs
	}
	return stats
}

// dailySeries groups readings by the owner's local calendar day, averages
// each field within the day and sorts ascending by day.
func dailySeries(d Descriptor, fields []Field, readings []Reading, loc *time.Location) []DayPoint {
	type accum struct {
		sums   map[Field]float64
		counts map[Field]int
		total  int
	}
	byDay := map[string]*accum{}
	for _, r := range readings {
		day := r.CapturedAt.In(loc).Format("2006-01-02")
		a := byDay[day]
		if a == nil {
			a = &accum{sums: map[Field]float64{}, counts: map[Field]int{}}
			byDay[day] = a
		}
		a.total++
		for _, f := range fields {
			if r.Has(f) {
				a.sums[f] += r.Value(f)
				a.counts[f]++
			}
		}
	}

	series := make([]DayPoint, 0, len(byDay))
	for day, a := range byDay {
		point := DayPoint{Day: day, Count: a.total, Fields: make(map[Field]float64, len(fields))}
		for _, f := range fields {
			if a.counts[f] > 0 {
				point.Fields[f] = roundTo(a.sums[f]/float64(a.counts[f]), d.Precision[f])
			}
		}
		series = append(series, point)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day < series[j].Day })
	return series
}

// weightChange compares the trailing 30 days against everything older that is
// still in scope.
func weightChange(readings []Reading, now time.Time, precision int) float64 {
	cutoff := now.AddDate(0, 0, -30)
	var recentSum, olderSum float64
	var recentN, olderN int
	for _, r := range readings {
		v := r.Value(FieldWeight)
		if r.CapturedAt.Before(cutoff) {
			olderSum += v
			olderN++
		} else {
			recentSum += v
			recentN++
		}
	}
	if recentN == 0 || olderN == 0 {
		return 0
	}
	return roundTo(recentSum/float64(recentN)-olderSum/float64(olderN), precision)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
