package models

import (
	"strings"
	"time"
)

// ValidationError is returned for input the client must fix. Message is user-facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrMissingRequired = &ValidationError{Message: "Name, phone, and password are required"}
	ErrInvalidDOB      = &ValidationError{Message: "Invalid date format for dob. Use YYYY-MM-DD."}
	ErrInvalidUserType = &ValidationError{Message: "Invalid user_type"}
)

// RegisterInput is the registration payload for both account families.
type RegisterInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`

	IDType           string `json:"id_type"`
	IDNumber         string `json:"id_number"`
	Nationality      string `json:"nationality"`
	CurrentLocation  string `json:"current_location"`
	Languages        string `json:"languages"`
	DOB              string `json:"dob"`
	Gender           string `json:"gender"`
	EmergencyContact string `json:"emergency_contact"`

	OrgName               string `json:"org_name"`
	OrgType               string `json:"org_type"`
	OrgSubtype            string `json:"org_subtype"`
	OrgRegistrationNumber string `json:"org_registration_number"`
	OrgAddress            string `json:"org_address"`
	OrgContactPerson      string `json:"org_contact_person"`
	OrgContactPhone       string `json:"org_contact_phone"`
}

// Normalize trims all fields and defaults the user type to migrant.
// The password is left untouched.
func (in RegisterInput) Normalize() RegisterInput {
	t := strings.TrimSpace
	out := in
	out.Name = t(in.Name)
	out.Phone = t(in.Phone)
	out.Email = strings.ToLower(t(in.Email))
	out.UserType = strings.ToLower(t(in.UserType))
	if out.UserType == "" {
		out.UserType = UserTypeMigrant
	}

	out.IDType = t(in.IDType)
	out.IDNumber = t(in.IDNumber)
	out.Nationality = t(in.Nationality)
	out.CurrentLocation = t(in.CurrentLocation)
	out.Languages = t(in.Languages)
	out.DOB = t(in.DOB)
	out.Gender = t(in.Gender)
	out.EmergencyContact = t(in.EmergencyContact)

	out.OrgName = t(in.OrgName)
	out.OrgType = t(in.OrgType)
	out.OrgSubtype = t(in.OrgSubtype)
	out.OrgRegistrationNumber = t(in.OrgRegistrationNumber)
	out.OrgAddress = t(in.OrgAddress)
	out.OrgContactPerson = t(in.OrgContactPerson)
	out.OrgContactPhone = t(in.OrgContactPhone)
	return out
}

// NewUser validates normalized input and builds the record to persist.
// Only the attribute family matching the user type is copied.
func NewUser(in RegisterInput, passwordHash string, now time.Time) (User, error) {
	if in.Name == "" || in.Phone == "" || in.Password == "" {
		return User{}, ErrMissingRequired
	}

	u := User{
		ID:           NewID(),
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: passwordHash,
		UserType:     in.UserType,
		CreatedAt:    now.UTC(),
	}

	switch {
	case in.UserType == UserTypeMigrant:
		u.IDType = in.IDType
		u.IDNumber = in.IDNumber
		u.Nationality = in.Nationality
		u.CurrentLocation = in.CurrentLocation
		u.Languages = in.Languages
		if in.DOB != "" {
			dob, err := time.Parse(DateLayout, in.DOB)
			if err != nil {
				return User{}, ErrInvalidDOB
			}
			u.DOB = &dob
		}
		u.Gender = in.Gender
		u.EmergencyContact = in.EmergencyContact

	case IsOrganizationType(in.UserType):
		u.OrgName = in.OrgName
		u.OrgType = in.OrgType
		u.OrgSubtype = in.OrgSubtype
		u.OrgRegistrationNumber = in.OrgRegistrationNumber
		u.OrgAddress = in.OrgAddress
		u.OrgContactPerson = in.OrgContactPerson
		u.OrgContactPhone = in.OrgContactPhone

	default:
		return User{}, ErrInvalidUserType
	}

	return u, nil
}
