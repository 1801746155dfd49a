package medications

import (
	"regexp"
	"strings"
	"time"
)

// Forma canónica 24h; el parser de horarios acepta más formatos, pero
// al store solo entra "HH:MM".
var reCanonicalTime = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

const dateLayout = "2006-01-02"

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func validateID(id int64) *Error {
	if id <= 0 {
		return NewErrorf(CodeInvalidInput, "id must be a positive integer, got %d", id)
	}
	return nil
}

func validateDate(date string) *Error {
	if !validDate(date) {
		return NewErrorf(CodeInvalidInput, "date must be YYYY-MM-DD, got %q", date)
	}
	return nil
}

func validateNew(in NewMedication) *Error {
	required := []struct {
		field string
		value string
	}{
		{"name", in.Name},
		{"dosage", in.Dosage},
		{"frequency", in.Frequency},
		{"time", in.Time},
		{"startDate", in.StartDate},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewErrorf(CodeInvalidInput, "%s is required", r.field)
		}
	}

	if !reCanonicalTime.MatchString(in.Time) {
		return NewErrorf(CodeInvalidInput, "time must be canonical HH:MM, got %q", in.Time)
	}
	if !validDate(in.StartDate) {
		return NewErrorf(CodeInvalidInput, "startDate must be YYYY-MM-DD, got %q", in.StartDate)
	}
	if in.EndDate != nil {
		if !validDate(*in.EndDate) {
			return NewErrorf(CodeInvalidInput, "endDate must be YYYY-MM-DD, got %q", *in.EndDate)
		}
		if *in.EndDate < in.StartDate {
			return NewErrorf(CodeInvalidInput, "endDate %s is before startDate %s", *in.EndDate, in.StartDate)
		}
	}
	return nil
}

func validateUpdate(in UpdateInput) *Error {
	if in.IsEmpty() {
		return NewError(CodeInvalidInput, "update payload is empty")
	}

	check := func(field string, v *string) *Error {
		if v != nil && strings.TrimSpace(*v) == "" {
			return NewErrorf(CodeInvalidInput, "%s must not be empty", field)
		}
		return nil
	}
	if err := check("name", in.Name); err != nil {
		return err
	}
	if err := check("dosage", in.Dosage); err != nil {
		return err
	}
	if err := check("frequency", in.Frequency); err != nil {
		return err
	}

	if in.Time != nil && !reCanonicalTime.MatchString(*in.Time) {
		return NewErrorf(CodeInvalidInput, "time must be canonical HH:MM, got %q", *in.Time)
	}
	if in.StartDate != nil && !validDate(*in.StartDate) {
		return NewErrorf(CodeInvalidInput, "startDate must be YYYY-MM-DD, got %q", *in.StartDate)
	}
	if in.EndDate != nil {
		if in.ClearEndDate {
			return NewError(CodeInvalidInput, "endDate and clearEndDate are mutually exclusive")
		}
		if !validDate(*in.EndDate) {
			return NewErrorf(CodeInvalidInput, "endDate must be YYYY-MM-DD, got %q", *in.EndDate)
		}
		if in.StartDate != nil && *in.EndDate < *in.StartDate {
			return NewErrorf(CodeInvalidInput, "endDate %s is before startDate %s", *in.EndDate, *in.StartDate)
		}
	}
	return nil
}
