package metric

import (
	"sort"
	"time"
)

// ExportGroup is one subtype partition of an export: the readings themselves
// for tabular rendering plus the same statistics and daily series the
// aggregator produces for charts.
type ExportGroup struct {
	Subtype  Subtype              `json:"subtype,omitempty"`
	Count    int                  `json:"count"`
	Readings []Reading            `json:"readings"`
	Fields   map[Field]FieldStats `json:"fields"`
	Daily    []DayPoint           `json:"daily"`
}

// ExportData is the ordered, grouped structure report renderers consume. The
// shaper is independent of the period concept; it reshapes whatever set the
// caller already narrowed.
type ExportData struct {
	Family      Family        `json:"family"`
	GeneratedAt time.Time     `json:"generated_at"`
	Total       int           `json:"total"`
	Groups      []ExportGroup `json:"groups"`
}

// Shape partitions a reading set by subtype and sorts each partition by
// CapturedAt descending. Every input reading lands in exactly one partition:
// readings carrying a subtype outside the family's enum (possible in legacy
// rows) get their own partition rather than being dropped.
func Shape(d Descriptor, readings []Reading, loc *time.Location, now time.Time) ExportData {
	data := ExportData{
		Family:      d.Family,
		GeneratedAt: now,
		Total:       len(readings),
	}

	known := partitionKeys(d)
	seen := make(map[Subtype]bool, len(known))
	for _, sub := range known {
		seen[sub] = true
	}

	bySubtype := map[Subtype][]Reading{}
	var extras []Subtype
	for _, r := range readings {
		sub := r.Subtype
		if !d.HasSubtypes() {
			sub = SubtypeNone
		}
		if !seen[sub] {
			seen[sub] = true
			extras = append(extras, sub)
		}
		bySubtype[sub] = append(bySubtype[sub], r)
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })

	for _, sub := range append(append([]Subtype(nil), known...), extras...) {
		group := bySubtype[sub]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CapturedAt.After(group[j].CapturedAt)
		})
		agg := aggregateGroup(d, sub, group, loc)
		data.Groups = append(data.Groups, ExportGroup{
			Subtype:  sub,
			Count:    len(group),
			Readings: group,
			Fields:   agg.Fields,
			Daily:    agg.Daily,
		})
	}
	return data
}
