package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types accepted at registration.
const (
	UserTypeMigrant    = "migrant"
	UserTypeHospital   = "hospital"
	UserTypeSchool     = "school"
	UserTypeGovernment = "government"
	UserTypeNGO        = "ngo"
	UserTypeFirm       = "firm"
)

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

var organizationTypes = map[string]bool{
	UserTypeHospital:   true,
	UserTypeSchool:     true,
	UserTypeGovernment: true,
	UserTypeNGO:        true,
	UserTypeFirm:       true,
}

// IsOrganizationType reports whether userType names an organization account.
func IsOrganizationType(userType string) bool {
	return organizationTypes[userType]
}

// User struct to map stored identity records, shared by migrants and organizations.
// Optional unique fields are omitted from BSON when empty so partial indexes skip them.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Phone        string    `json:"phone" bson:"phone"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	UserType     string    `json:"user_type" bson:"user_type"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`

	// Migrant-specific fields
	IDType           string     `json:"id_type,omitempty" bson:"id_type,omitempty"`
	IDNumber         string     `json:"id_number,omitempty" bson:"id_number,omitempty"`
	Nationality      string     `json:"nationality,omitempty" bson:"nationality,omitempty"`
	CurrentLocation  string     `json:"current_location,omitempty" bson:"current_location,omitempty"`
	Languages        string     `json:"languages,omitempty" bson:"languages,omitempty"` // Comma-separated
	DOB              *time.Time `json:"dob,omitempty" bson:"dob,omitempty"`
	Gender           string     `json:"gender,omitempty" bson:"gender,omitempty"`
	EmergencyContact string     `json:"emergency_contact,omitempty" bson:"emergency_contact,omitempty"`

	// Organization-specific fields
	OrgName               string `json:"org_name,omitempty" bson:"org_name,omitempty"`
	OrgType               string `json:"org_type,omitempty" bson:"org_type,omitempty"`
	OrgSubtype            string `json:"org_subtype,omitempty" bson:"org_subtype,omitempty"`
	OrgRegistrationNumber string `json:"org_registration_number,omitempty" bson:"org_registration_number,omitempty"`
	OrgAddress            string `json:"org_address,omitempty" bson:"org_address,omitempty"`
	OrgContactPerson      string `json:"org_contact_person,omitempty" bson:"org_contact_person,omitempty"`
	OrgContactPhone       string `json:"org_contact_phone,omitempty" bson:"org_contact_phone,omitempty"`
}

// IsMigrant reports whether the user is an individual migrant account.
func (u User) IsMigrant() bool {
	return u.UserType == UserTypeMigrant
}

// LanguageList splits the comma-separated languages field.
func (u User) LanguageList() []string {
	var out []string
	for _, l := range strings.Split(u.Languages, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// NewID returns a fresh record identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
