package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturedAt() time.Time {
	return time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)
}

func pressureReading(systolic, diastolic, pulse float64, sub Subtype) *Reading {
	return &Reading{
		Subtype: sub,
		Values: map[Field]float64{
			FieldSystolic:  systolic,
			FieldDiastolic: diastolic,
			FieldPulse:     pulse,
		},
		CapturedAt: capturedAt(),
	}
}

func TestValidatePressure(t *testing.T) {
	d, ok := Describe(FamilyBloodPressure)
	require.True(t, ok)

	tests := []struct {
		name    string
		reading *Reading
		want    Code
	}{
		{"valid", pressureReading(120, 80, 70, SubtypeNormal), ""},
		{"bounds are closed", pressureReading(300, 30, 220, SubtypeNormal), ""},
		{"systolic too low", pressureReading(49, 40, 70, SubtypeNormal), CodeOutOfRange},
		{"systolic too high", pressureReading(301, 80, 70, SubtypeNormal), CodeOutOfRange},
		{"diastolic too high", pressureReading(250, 201, 70, SubtypeNormal), CodeOutOfRange},
		{"pulse too low", pressureReading(120, 80, 29, SubtypeNormal), CodeOutOfRange},
		{"systolic equal diastolic", pressureReading(90, 90, 70, SubtypeNormal), CodeInvalidRelation},
		{"systolic below diastolic", pressureReading(80, 90, 70, SubtypeNormal), CodeInvalidRelation},
		{"unknown subtype", pressureReading(120, 80, 70, "resting"), CodeInvalidSubtype},
		{"empty subtype", pressureReading(120, 80, 70, SubtypeNone), CodeInvalidSubtype},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := d.Validate(tc.reading)
			if tc.want == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.want, CodeOf(err))
			}
		})
	}
}

func TestValidatePressure_MissingFields(t *testing.T) {
	d, _ := Describe(FamilyBloodPressure)

	r := &Reading{
		Subtype:    SubtypeNormal,
		Values:     map[Field]float64{FieldSystolic: 120, FieldDiastolic: 80},
		CapturedAt: capturedAt(),
	}
	err := d.Validate(r)
	require.Error(t, err)
	assert.Equal(t, CodeMissingField, CodeOf(err))

	r = pressureReading(120, 80, 70, SubtypeNormal)
	r.CapturedAt = time.Time{}
	err = d.Validate(r)
	require.Error(t, err)
	assert.Equal(t, CodeMissingField, CodeOf(err))
}

func TestValidatePressure_ActivityFields(t *testing.T) {
	d, _ := Describe(FamilyBloodPressure)

	r := pressureReading(130, 85, 95, SubtypeAfterActivity)
	r.Values[FieldWalkMinutes] = 30
	r.Values[FieldPeakPulse] = 140
	require.NoError(t, d.Validate(r))
	assert.Equal(t, 30.0, r.Value(FieldWalkMinutes))

	// Switching away from after_activity clears the activity-only fields.
	r.Subtype = SubtypeNormal
	require.NoError(t, d.Validate(r))
	assert.False(t, r.Has(FieldWalkMinutes))
	assert.False(t, r.Has(FieldPeakPulse))

	// The activity fields are optional even for after_activity.
	r = pressureReading(130, 85, 95, SubtypeAfterActivity)
	require.NoError(t, d.Validate(r))

	// Out-of-range activity fields are rejected while the subtype applies.
	r = pressureReading(130, 85, 95, SubtypeAfterActivity)
	r.Values[FieldPeakPulse] = 260
	err := d.Validate(r)
	require.Error(t, err)
	assert.Equal(t, CodeOutOfRange, CodeOf(err))
}

func TestValidateGlucose(t *testing.T) {
	d, _ := Describe(FamilyGlucose)

	tests := []struct {
		name    string
		glucose float64
		subtype Subtype
		want    Code
	}{
		{"valid fasting", 95, SubtypeFasting, ""},
		{"lower bound", 20, SubtypeRandom, ""},
		{"upper bound", 600, SubtypeAfterMeal, ""},
		{"too low", 19, SubtypeFasting, CodeOutOfRange},
		{"too high", 601, SubtypeBedtime, CodeOutOfRange},
		{"unknown subtype", 95, "post_workout", CodeInvalidSubtype},
		{"empty subtype", 95, SubtypeNone, CodeInvalidSubtype},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Reading{
				Subtype:    tc.subtype,
				Values:     map[Field]float64{FieldGlucose: tc.glucose},
				CapturedAt: capturedAt(),
			}
			err := d.Validate(r)
			if tc.want == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.want, CodeOf(err))
			}
		})
	}

	err := d.Validate(&Reading{Subtype: SubtypeFasting, CapturedAt: capturedAt()})
	require.Error(t, err)
	assert.Equal(t, CodeMissingField, CodeOf(err))
}

func TestValidateWeight(t *testing.T) {
	d, _ := Describe(FamilyWeight)

	r := &Reading{Values: map[Field]float64{FieldWeight: 82.4}, CapturedAt: capturedAt()}
	assert.NoError(t, d.Validate(r))

	r = &Reading{Values: map[Field]float64{FieldWeight: 19.9}, CapturedAt: capturedAt()}
	assert.Equal(t, CodeOutOfRange, CodeOf(d.Validate(r)))

	// Weight has no subtypes; any tag is invalid.
	r = &Reading{Subtype: "morning", Values: map[Field]float64{FieldWeight: 82}, CapturedAt: capturedAt()}
	assert.Equal(t, CodeInvalidSubtype, CodeOf(d.Validate(r)))
}

func TestValidate_FutureCapturedAtAccepted(t *testing.T) {
	d, _ := Describe(FamilyWeight)
	r := &Reading{
		Values:     map[Field]float64{FieldWeight: 82},
		CapturedAt: time.Now().AddDate(1, 0, 0),
	}
	assert.NoError(t, d.Validate(r))
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	d, _ := Describe(FamilyGlucose)
	r := &Reading{
		Subtype:    SubtypeFasting,
		Values:     map[Field]float64{FieldGlucose: 95, FieldWeight: 80},
		CapturedAt: capturedAt(),
	}
	assert.Equal(t, CodeOutOfRange, CodeOf(d.Validate(r)))
}
