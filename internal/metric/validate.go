package metric

import "fmt"

// Validate checks a reading against the family's rules, in order: required
// fields, subtype membership, per-field bounds, cross-field relations. It
// mutates only the Values map, clearing fields that are conditional on a
// subtype the reading does not carry (switching a blood-pressure reading away
// from after_activity nulls out walk duration and peak pulse).
//
// Validation is deterministic and touches neither network nor storage.
func (d Descriptor) Validate(r *Reading) error {
	if r.Values == nil {
		r.Values = map[Field]float64{}
	}

	for _, f := range d.Required {
		if !r.Has(f) {
			return ErrMissingField(f)
		}
	}
	if r.CapturedAt.IsZero() {
		return ErrMissingField("captured_at")
	}

	if !d.ValidSubtype(r.Subtype) {
		return ErrInvalidSubtype(r.Subtype)
	}

	// Fields tied to another subtype are cleared rather than rejected, so a
	// subtype switch on update cannot leave stale activity data behind.
	for sub, fields := range d.Conditional {
		if sub == r.Subtype {
			continue
		}
		for _, f := range fields {
			delete(r.Values, f)
		}
	}

	for f, v := range r.Values {
		bounds, ok := d.Bounds[f]
		if !ok {
			return &Error{Code: CodeOutOfRange, Field: f, Value: v,
				Message: fmt.Sprintf("field %q is not part of family %q", f, d.Family)}
		}
		if !bounds.Contains(v) {
			return ErrOutOfRange(f, v, bounds)
		}
	}

	if d.Family == FamilyBloodPressure {
		if r.Value(FieldSystolic) <= r.Value(FieldDiastolic) {
			return ErrInvalidRelation("systolic must be greater than diastolic")
		}
	}

	r.Family = d.Family
	return nil
}
