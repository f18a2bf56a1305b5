package models

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDefaultsUserType(t *testing.T) {
	t.Parallel()

	in := RegisterInput{Name: "  Asha ", Phone: " 999 ", Email: " Asha@Example.COM ", Password: " pw "}.Normalize()
	if in.UserType != UserTypeMigrant {
		t.Fatalf("user type = %q, want %q", in.UserType, UserTypeMigrant)
	}
	if in.Name != "Asha" || in.Phone != "999" {
		t.Fatalf("name/phone not trimmed: %q %q", in.Name, in.Phone)
	}
	if in.Email != "asha@example.com" {
		t.Fatalf("email = %q", in.Email)
	}
	if in.Password != " pw " {
		t.Fatalf("password must not be altered, got %q", in.Password)
	}
}

func TestNewUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name:    "missing password",
			in:      RegisterInput{Name: "a", Phone: "1", UserType: UserTypeMigrant},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "bad dob",
			in:      RegisterInput{Name: "a", Phone: "1", Password: "p", UserType: UserTypeMigrant, DOB: "01/02/1990"},
			wantErr: ErrInvalidDOB,
		},
		{
			name:    "unknown type",
			in:      RegisterInput{Name: "a", Phone: "1", Password: "p", UserType: "pirate"},
			wantErr: ErrInvalidUserType,
		},
		{
			name: "migrant",
			in:   RegisterInput{Name: "a", Phone: "1", Password: "p", UserType: UserTypeMigrant, DOB: "1990-02-01", Nationality: "Nepal", OrgName: "ignored"},
		},
		{
			name: "organization",
			in:   RegisterInput{Name: "a", Phone: "1", Password: "p", UserType: UserTypeNGO, OrgName: "Aid", Nationality: "ignored"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := NewUser(tc.in, "hash", now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ValidID(u.ID) {
				t.Fatalf("id %q is not valid", u.ID)
			}
			if u.PasswordHash != "hash" {
				t.Fatalf("password hash = %q", u.PasswordHash)
			}
			if u.IsMigrant() {
				if u.OrgName != "" {
					t.Fatalf("migrant carries org name %q", u.OrgName)
				}
				if u.DOB == nil || u.DOB.Format(DateLayout) != "1990-02-01" {
					t.Fatalf("dob = %v", u.DOB)
				}
			} else if u.Nationality != "" {
				t.Fatalf("organization carries nationality %q", u.Nationality)
			}
		})
	}
}

func TestLanguageList(t *testing.T) {
	t.Parallel()

	u := User{Languages: "Hindi, Bengali,, English "}
	got := u.LanguageList()
	if len(got) != 3 || got[0] != "Hindi" || got[2] != "English" {
		t.Fatalf("LanguageList = %#v", got)
	}
}
