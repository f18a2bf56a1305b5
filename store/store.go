// Package store defines persistence for user and document records.
//
// Backends live in subpackages (mongostore, sqlitestore) and are
// interchangeable behind the Store interface.
package store

import (
	"context"
	"errors"
	"fmt"

	"migrantconnect/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is matched by every *DuplicateError.
	ErrDuplicate = errors.New("duplicate record")
)

// Unique user fields.
const (
	FieldPhone                 = "phone"
	FieldEmail                 = "email"
	FieldIDNumber              = "id_number"
	FieldOrgRegistrationNumber = "org_registration_number"
)

// UniqueUserFields lists the user fields backed by a uniqueness constraint.
var UniqueUserFields = []string{FieldPhone, FieldEmail, FieldIDNumber, FieldOrgRegistrationNumber}

// DuplicateError reports which unique field collided.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// UserFilter narrows ListUsers. Zero values match everything.
type UserFilter struct {
	UserType    string
	Nationality string
	ExcludeID   string
	Limit       int
}

// Store is the identity and document store.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)

	CreateDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, userID string) ([]models.Document, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
