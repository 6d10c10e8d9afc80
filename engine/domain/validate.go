package domain

// ValidateVehicle requires year, make and model, and a numeric year within
// the accepted range. Fields are checked in that order.
func ValidateVehicle(v Vehicle) error {
	v = v.Trimmed()
	if v.Year == "" {
		return NewValidationError("year", "", ErrMissingField)
	}
	if v.Make == "" {
		return NewValidationError("make", "", ErrMissingField)
	}
	if v.Model == "" {
		return NewValidationError("model", "", ErrMissingField)
	}

	year, ok := v.Year.Int()
	if !ok {
		return NewValidationError("year", string(v.Year), ErrInvalidYear)
	}
	if year < MinModelYear || year > MaxModelYear {
		return NewValidationError("year", string(v.Year), ErrYearOutOfRange)
	}
	return nil
}
