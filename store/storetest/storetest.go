// Package storetest holds behavior tests shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"migrantconnect/models"
	"migrantconnect/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("create and get user", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		dob := time.Date(1994, 6, 2, 0, 0, 0, 0, time.UTC)
		u := Migrant("9000000001", "Nepal")
		u.Email = "ram@example.com"
		u.DOB = &dob
		if err := s.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		got, err := s.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if got.Phone != u.Phone || got.Email != u.Email || got.Nationality != "Nepal" {
			t.Fatalf("GetUser = %+v", got)
		}
		if got.DOB == nil || !got.DOB.Equal(dob) {
			t.Fatalf("dob = %v, want %v", got.DOB, dob)
		}
		if !got.CreatedAt.Equal(u.CreatedAt) {
			t.Fatalf("created_at = %v, want %v", got.CreatedAt, u.CreatedAt)
		}

		byPhone, err := s.GetUserByPhone(ctx, u.Phone)
		if err != nil {
			t.Fatalf("GetUserByPhone: %v", err)
		}
		if byPhone.ID != u.ID {
			t.Fatalf("GetUserByPhone id = %q, want %q", byPhone.ID, u.ID)
		}

		byEmail, err := s.GetUserByEmail(ctx, u.Email)
		if err != nil {
			t.Fatalf("GetUserByEmail: %v", err)
		}
		if byEmail.ID != u.ID {
			t.Fatalf("GetUserByEmail id = %q, want %q", byEmail.ID, u.ID)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.GetUser(ctx, models.NewID()); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetUser err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetUser(ctx, "not-an-id"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetUser malformed err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetUserByPhone(ctx, "0"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetUserByPhone err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetUserByEmail err = %v, want ErrNotFound", err)
		}
		if _, err := s.GetUserByEmail(ctx, ""); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetUserByEmail blank err = %v, want ErrNotFound", err)
		}
	})

	t.Run("unique fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := Migrant("9000000001", "India")
		first.Email = "a@example.com"
		first.IDNumber = "P123"
		if err := s.CreateUser(ctx, &first); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		// Blank optional unique fields never collide.
		blank := Migrant("9000000002", "India")
		if err := s.CreateUser(ctx, &blank); err != nil {
			t.Fatalf("CreateUser blank: %v", err)
		}
		blank2 := Migrant("9000000003", "India")
		if err := s.CreateUser(ctx, &blank2); err != nil {
			t.Fatalf("CreateUser blank2: %v", err)
		}

		tests := []struct {
			field string
			mut   func(u *models.User)
		}{
			{store.FieldPhone, func(u *models.User) { u.Phone = first.Phone }},
			{store.FieldEmail, func(u *models.User) { u.Email = first.Email }},
			{store.FieldIDNumber, func(u *models.User) { u.IDNumber = first.IDNumber }},
		}
		for i, tc := range tests {
			u := Migrant("91000000"+string(rune('0'+i)), "India")
			tc.mut(&u)
			err := s.CreateUser(ctx, &u)
			var dup *store.DuplicateError
			if !errors.As(err, &dup) || dup.Field != tc.field {
				t.Fatalf("%s: err = %v, want duplicate %s", tc.field, err, tc.field)
			}
			if !errors.Is(err, store.ErrDuplicate) {
				t.Fatalf("%s: err does not match ErrDuplicate", tc.field)
			}
		}

		org := Organization("9200000000", models.UserTypeHospital, "REG-1")
		if err := s.CreateUser(ctx, &org); err != nil {
			t.Fatalf("CreateUser org: %v", err)
		}
		org2 := Organization("9200000001", models.UserTypeSchool, "REG-1")
		var dup *store.DuplicateError
		if err := s.CreateUser(ctx, &org2); !errors.As(err, &dup) || dup.Field != store.FieldOrgRegistrationNumber {
			t.Fatalf("org duplicate err = %v", err)
		}
	})

	t.Run("list users by nationality", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		me := Migrant("9000000001", "Bangladesh")
		peer := Migrant("9000000002", "Bangladesh")
		other := Migrant("9000000003", "Nepal")
		org := Organization("9000000004", models.UserTypeNGO, "")
		org.Nationality = "Bangladesh"
		for _, u := range []*models.User{&me, &peer, &other, &org} {
			if err := s.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
		}

		got, err := s.ListUsers(ctx, store.UserFilter{
			UserType:    models.UserTypeMigrant,
			Nationality: "Bangladesh",
			ExcludeID:   me.ID,
		})
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		if len(got) != 1 || got[0].ID != peer.ID {
			t.Fatalf("ListUsers = %+v, want only %s", got, peer.ID)
		}

		all, err := s.ListUsers(ctx, store.UserFilter{Limit: 2})
		if err != nil {
			t.Fatalf("ListUsers all: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("ListUsers limit = %d, want 2", len(all))
		}
	})

	t.Run("documents", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u := Migrant("9000000001", "India")
		if err := s.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		for i, typ := range []string{"work_permit", "health_record"} {
			d := models.Document{
				UserID:      u.ID,
				DocType:     typ,
				Filename:    typ + ".pdf",
				ContentType: "application/pdf",
				Size:        int64(100 + i),
				UploadedAt:  base.Add(time.Duration(i) * time.Hour),
			}
			if err := s.CreateDocument(ctx, &d); err != nil {
				t.Fatalf("CreateDocument: %v", err)
			}
			if d.ID == "" {
				t.Fatal("CreateDocument did not assign an id")
			}
		}

		docs, err := s.ListDocuments(ctx, u.ID)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		if len(docs) != 2 || docs[0].DocType != "work_permit" || docs[1].Size != 101 {
			t.Fatalf("ListDocuments = %+v", docs)
		}
		if !docs[1].UploadedAt.Equal(base.Add(time.Hour)) {
			t.Fatalf("upload date = %v", docs[1].UploadedAt)
		}

		orphan := models.Document{UserID: models.NewID(), DocType: "x", Filename: "x.pdf", UploadedAt: base}
		if err := s.CreateDocument(ctx, &orphan); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("orphan CreateDocument err = %v, want ErrNotFound", err)
		}

		none, err := s.ListDocuments(ctx, models.NewID())
		if err != nil {
			t.Fatalf("ListDocuments empty: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("ListDocuments empty = %d", len(none))
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

// Migrant returns an unsaved migrant record. Timestamps are millisecond precision.
func Migrant(phone, nationality string) models.User {
	return models.User{
		ID:              models.NewID(),
		Name:            "Migrant " + phone,
		Phone:           phone,
		PasswordHash:    "hash",
		UserType:        models.UserTypeMigrant,
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
		Nationality:     nationality,
		CurrentLocation: "Bengaluru",
	}
}

// Organization returns an unsaved organization record.
func Organization(phone, userType, registration string) models.User {
	return models.User{
		ID:                    models.NewID(),
		Name:                  "Org " + phone,
		Phone:                 phone,
		PasswordHash:          "hash",
		UserType:              userType,
		CreatedAt:             time.Now().UTC().Truncate(time.Millisecond),
		OrgName:               "Org " + phone,
		OrgRegistrationNumber: registration,
	}
}
