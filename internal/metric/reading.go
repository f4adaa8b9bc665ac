// Package metric is the time-series health-metric engine: family descriptors,
// validation, clinical classification, timestamp normalization, period
// aggregation and export shaping for blood pressure, blood glucose and weight
// readings. Everything here is pure computation; persistence lives behind the
// Repository interface.
package metric

import "time"

// Family selects one of the three metric families.
type Family string

const (
	FamilyBloodPressure Family = "blood_pressure"
	FamilyGlucose       Family = "blood_glucose"
	FamilyWeight        Family = "weight"
)

// Subtype tags the circumstance a reading was taken under. The empty subtype
// is used by families that define none.
type Subtype string

const (
	SubtypeNone Subtype = ""

	// Blood pressure
	SubtypeNormal        Subtype = "normal"
	SubtypeAfterActivity Subtype = "after_activity"

	// Blood glucose
	SubtypeFasting    Subtype = "fasting"
	SubtypeBeforeMeal Subtype = "before_meal"
	SubtypeAfterMeal  Subtype = "after_meal"
	SubtypeBedtime    Subtype = "bedtime"
	SubtypeRandom     Subtype = "random"
)

// Field names a numeric field of a reading. Field names double as storage
// column names.
type Field string

const (
	FieldSystolic    Field = "systolic"
	FieldDiastolic   Field = "diastolic"
	FieldPulse       Field = "pulse"
	FieldWalkMinutes Field = "walk_minutes"
	FieldPeakPulse   Field = "peak_pulse"
	FieldGlucose     Field = "glucose"
	FieldWeight      Field = "weight_kg"
)

// Reading is one recorded measurement event for one family, owned by one
// user. ID is assigned by the repository; RecordedAt and UpdatedAt are
// repository-set and never client-supplied.
type Reading struct {
	ID         string            `json:"id,omitempty"`
	OwnerID    string            `json:"owner_id"`
	Family     Family            `json:"family"`
	Subtype    Subtype           `json:"subtype,omitempty"`
	Values     map[Field]float64 `json:"values"`
	CapturedAt time.Time         `json:"captured_at"`
	RecordedAt time.Time         `json:"recorded_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Notes      string            `json:"notes"`
}

// Value returns the named field value, zero when absent.
func (r *Reading) Value(f Field) float64 {
	return r.Values[f]
}

// Has reports whether the named field is set on the reading.
func (r *Reading) Has(f Field) bool {
	_, ok := r.Values[f]
	return ok
}

// Bounds is a closed physiologic interval. Values outside it are rejected,
// never clamped.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the closed interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Descriptor parameterizes the engine for one family: which fields are
// required, their bounds, the subtype enum and display precision. The three
// families share every code path through their descriptors.
type Descriptor struct {
	Family   Family
	Required []Field
	// Conditional fields are only allowed for the listed subtype; they are
	// cleared whenever the reading carries any other subtype, and may be
	// omitted even when it matches.
	Conditional map[Subtype][]Field
	Bounds      map[Field]Bounds
	Subtypes    []Subtype
	// Precision is the number of decimal places means are rounded to for
	// display, per field.
	Precision map[Field]int
}

var descriptors = map[Family]Descriptor{
	FamilyBloodPressure: {
		Family:   FamilyBloodPressure,
		Required: []Field{FieldSystolic, FieldDiastolic, FieldPulse},
		Conditional: map[Subtype][]Field{
			SubtypeAfterActivity: {FieldWalkMinutes, FieldPeakPulse},
		},
		Bounds: map[Field]Bounds{
			FieldSystolic:    {Min: 50, Max: 300},
			FieldDiastolic:   {Min: 30, Max: 200},
			FieldPulse:       {Min: 30, Max: 220},
			FieldPeakPulse:   {Min: 30, Max: 220},
			FieldWalkMinutes: {Min: 1, Max: 1440},
		},
		Subtypes: []Subtype{SubtypeNormal, SubtypeAfterActivity},
		Precision: map[Field]int{
			FieldSystolic:    0,
			FieldDiastolic:   0,
			FieldPulse:       0,
			FieldWalkMinutes: 0,
			FieldPeakPulse:   0,
		},
	},
	FamilyGlucose: {
		Family:   FamilyGlucose,
		Required: []Field{FieldGlucose},
		Bounds: map[Field]Bounds{
			FieldGlucose: {Min: 20, Max: 600},
		},
		Subtypes: []Subtype{
			SubtypeFasting, SubtypeBeforeMeal, SubtypeAfterMeal,
			SubtypeBedtime, SubtypeRandom,
		},
		Precision: map[Field]int{FieldGlucose: 0},
	},
	FamilyWeight: {
		Family:   FamilyWeight,
		Required: []Field{FieldWeight},
		Bounds: map[Field]Bounds{
			FieldWeight: {Min: 20, Max: 300},
		},
		Precision: map[Field]int{FieldWeight: 1},
	},
}

// Describe returns the descriptor for a family.
func Describe(f Family) (Descriptor, bool) {
	d, ok := descriptors[f]
	return d, ok
}

// Families lists the supported families.
func Families() []Family {
	return []Family{FamilyBloodPressure, FamilyGlucose, FamilyWeight}
}

// HasSubtypes reports whether the family partitions readings by subtype.
func (d Descriptor) HasSubtypes() bool {
	return len(d.Subtypes) > 0
}

// ValidSubtype reports whether s belongs to the family's subtype enum. For
// families without subtypes only the empty subtype is valid.
func (d Descriptor) ValidSubtype(s Subtype) bool {
	if !d.HasSubtypes() {
		return s == SubtypeNone
	}
	for _, known := range d.Subtypes {
		if known == s {
			return true
		}
	}
	return false
}

// Fields returns every field the family can carry, required first.
func (d Descriptor) Fields() []Field {
	fields := append([]Field(nil), d.Required...)
	for _, sub := range d.Subtypes {
		fields = append(fields, d.Conditional[sub]...)
	}
	return fields
}
