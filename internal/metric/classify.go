package metric

// Category is a clinical bucket derived from field values and subtype. It is
// display metadata: never persisted, always recomputed.
type Category string

const (
	CategoryNormal      Category = "normal"
	CategoryElevated    Category = "elevated"
	CategoryHigh        Category = "high"
	CategoryLow         Category = "low"
	CategoryPrediabetes Category = "prediabetes"
	CategoryDiabetes    Category = "diabetes"
	CategoryUnderweight Category = "underweight"
	CategoryOverweight  Category = "overweight"
	CategoryObese       Category = "obese"
	// CategoryUnknown is returned when the family defines no absolute
	// category for the given inputs (weight without a height).
	CategoryUnknown Category = "unknown"
)

// Classify maps a validated reading's values to its clinical category. Inputs
// are never mutated.
func Classify(family Family, subtype Subtype, values map[Field]float64) Category {
	switch family {
	case FamilyBloodPressure:
		return classifyPressure(values[FieldSystolic], values[FieldDiastolic])
	case FamilyGlucose:
		return classifyGlucose(subtype, values[FieldGlucose])
	default:
		return CategoryUnknown
	}
}

// classifyPressure applies the AHA-style buckets. The subtype changes display
// grouping only, never the thresholds.
func classifyPressure(systolic, diastolic float64) Category {
	switch {
	case systolic < 120 && diastolic < 80:
		return CategoryNormal
	case systolic < 130 && diastolic < 80:
		return CategoryElevated
	default:
		return CategoryHigh
	}
}

// classifyGlucose applies subtype-dependent thresholds (mg/dL). Fasting and
// pre-meal readings use the diagnostic fasting cuts; post-meal and random use
// the 2-hour cuts; bedtime uses a target band.
func classifyGlucose(subtype Subtype, glucose float64) Category {
	switch subtype {
	case SubtypeFasting, SubtypeBeforeMeal:
		switch {
		case glucose < 100:
			return CategoryNormal
		case glucose < 126:
			return CategoryPrediabetes
		default:
			return CategoryDiabetes
		}
	case SubtypeAfterMeal, SubtypeRandom:
		switch {
		case glucose < 140:
			return CategoryNormal
		case glucose < 200:
			return CategoryPrediabetes
		default:
			return CategoryDiabetes
		}
	case SubtypeBedtime:
		switch {
		case glucose < 90:
			return CategoryLow
		case glucose <= 150:
			return CategoryNormal
		default:
			return CategoryHigh
		}
	default:
		return CategoryUnknown
	}
}

// ClassifyBMI computes body mass index from a weight reading and a supplied
// height and returns the standard band. Height is display-only input; it is
// never persisted with the reading.
func ClassifyBMI(weightKg, heightCm float64) (float64, Category) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, CategoryUnknown
	}
	meters := heightCm / 100
	bmi := weightKg / (meters * meters)
	switch {
	case bmi < 18.5:
		return bmi, CategoryUnderweight
	case bmi < 25:
		return bmi, CategoryNormal
	case bmi < 30:
		return bmi, CategoryOverweight
	default:
		return bmi, CategoryObese
	}
}
