package diagnose

import (
	"fmt"
	"net/http"
)

// Reason identifies why a diagnosis failed.
type Reason string

const (
	ReasonMissingVehicle      Reason = "missing_vehicle"
	ReasonMissingInput        Reason = "missing_input"
	ReasonNeedsMake           Reason = "needs_make"
	ReasonManufacturerUnknown Reason = "manufacturer_unknown"
	ReasonGenericUnknown      Reason = "generic_unknown"
	ReasonBadFormat           Reason = "bad_format"
	ReasonStorage             Reason = "storage"
	ReasonGeneration          Reason = "generation"
)

// Next actions a client can offer the user.
const (
	NextChooseMake  = "choose_make"
	NextTrySymptoms = "try_symptoms"
	NextCheckFormat = "check_format"
)

// Error is a diagnosis failure with the HTTP status and message to report.
// Err holds the internal cause and is never shown to callers.
type Error struct {
	Status  int
	Reason  Reason
	Message string
	Code    string
	Make    string
	Next    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diagnose: %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("diagnose: %s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errMissingVehicle(err error) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Reason:  ReasonMissingVehicle,
		Message: "vehicle year, make and model are required",
		Err:     err,
	}
}

func errInvalidYear(err error) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Reason:  ReasonMissingVehicle,
		Message: "vehicle year is not a valid model year",
		Err:     err,
	}
}

func errMissingInput() *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Reason:  ReasonMissingInput,
		Message: "enter a trouble code or describe the symptoms",
	}
}

func errNeedsMake(code string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Reason:  ReasonNeedsMake,
		Message: fmt.Sprintf("%s is a manufacturer-specific code; choose the vehicle make", code),
		Code:    code,
		Next:    NextChooseMake,
	}
}

func errManufacturerUnknown(code, make_ string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Reason:  ReasonManufacturerUnknown,
		Message: fmt.Sprintf("%s is not in our verified %s database yet", code, make_),
		Code:    code,
		Make:    make_,
	}
}

func errGenericUnknown(code string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Reason:  ReasonGenericUnknown,
		Message: fmt.Sprintf("%s is not in our database; try describing the symptoms instead", code),
		Code:    code,
		Next:    NextTrySymptoms,
	}
}

func errBadFormat(raw string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Reason:  ReasonBadFormat,
		Message: fmt.Sprintf("%q is not a recognized trouble code format", raw),
		Code:    raw,
		Next:    NextCheckFormat,
	}
}

func errStorage(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Reason:  ReasonStorage,
		Message: "could not check the code right now",
		Err:     err,
	}
}

func errGeneration(msg string, err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Reason:  ReasonGeneration,
		Message: msg,
		Err:     err,
	}
}
