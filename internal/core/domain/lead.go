package domain

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// Lead is a marketing-site contact submission bound for the backend CRM.
type Lead struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ClinicName string `json:"clinicName,omitempty"`
	Message    string `json:"message,omitempty"`
	SourcePage string `json:"sourcePage,omitempty"`

	SubmittedAt time.Time `json:"submittedAt,omitempty"`
}

// Validate runs field validation rules on the submission.
func (l Lead) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&l.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&l.Phone, validation.Required, validation.Length(7, 20)),
		validation.Field(&l.ClinicName, validation.Length(0, 200)),
		validation.Field(&l.Message, validation.Length(0, 2000)),
	)
}

// DedupKey is the identity used to suppress repeat submissions.
func (l Lead) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(l.Email))
}

// NormalizePhone rewrites Phone into E.164 using region as the default
// country for numbers submitted without a country code.
func (l *Lead) NormalizePhone(region string) error {
	num, err := phonenumbers.Parse(l.Phone, region)
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return phonenumbers.ErrNotANumber
	}
	l.Phone = phonenumbers.Format(num, phonenumbers.E164)
	return nil
}
