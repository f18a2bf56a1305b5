// Package sqlitestore implements store.Store on an embedded SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"migrantconnect/models"
	"migrantconnect/store"
	"migrantconnect/store/sqlitestore/migrations"
)

const userColumns = `id, name, phone, email, password_hash, user_type, created_at,
	id_type, id_number, nationality, current_location, languages, dob, gender, emergency_contact,
	org_name, org_type, org_subtype, org_registration_number, org_address, org_contact_person, org_contact_phone`

const documentColumns = `id, user_id, doc_type, filename, original_name, content_type, size, upload_date`

// Store keeps users and documents in one SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path and applies bundled migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// CreateUser inserts u. Unique constraint violations become *store.DuplicateError.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	var dob sql.NullString
	if u.DOB != nil {
		dob = sql.NullString{String: u.DOB.Format(models.DateLayout), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Phone, nullString(u.Email), u.PasswordHash, u.UserType, toMillis(u.CreatedAt),
		nullString(u.IDType), nullString(u.IDNumber), nullString(u.Nationality), nullString(u.CurrentLocation),
		nullString(u.Languages), dob, nullString(u.Gender), nullString(u.EmergencyContact),
		nullString(u.OrgName), nullString(u.OrgType), nullString(u.OrgSubtype), nullString(u.OrgRegistrationNumber),
		nullString(u.OrgAddress), nullString(u.OrgContactPerson), nullString(u.OrgContactPhone),
	)
	if err != nil {
		if field := duplicateField(err); field != "" {
			return &store.DuplicateError{Field: field}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row.Scan)
}

// GetUserByPhone loads a user by phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
	return scanUser(row.Scan)
}

// GetUserByEmail loads a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if email == "" {
		return models.User{}, store.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row.Scan)
}

// ListUsers returns users matching filter ordered by creation time.
func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]models.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserType != "" {
		where = append(where, "user_type = ?")
		args = append(args, filter.UserType)
	}
	if filter.Nationality != "" {
		where = append(where, "nationality = ?")
		args = append(args, filter.Nationality)
	}
	if filter.ExcludeID != "" {
		where = append(where, "id <> ?")
		args = append(args, filter.ExcludeID)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateDocument inserts d after checking that its owner exists.
func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, d.UserID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check document owner: %w", err)
	}

	if d.ID == "" {
		d.ID = models.NewID()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.DocType, d.Filename, nullString(d.OriginalName), nullString(d.ContentType),
		d.Size, toMillis(d.UploadedAt),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return tx.Commit()
}

// ListDocuments returns a user's documents ordered by upload time.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = ? ORDER BY upload_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var (
			d                         models.Document
			originalName, contentType sql.NullString
			uploadedAt                int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.DocType, &d.Filename, &originalName, &contentType, &d.Size, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.OriginalName = originalName.String
		d.ContentType = contentType.String
		d.UploadedAt = fromMillis(uploadedAt)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close releases the database.
func (s *Store) Close(context.Context) error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func scanUser(scan func(dest ...any) error) (models.User, error) {
	var (
		u         models.User
		createdAt int64
		email     sql.NullString
		dob       sql.NullString
		opt       [14]sql.NullString
	)
	err := scan(
		&u.ID, &u.Name, &u.Phone, &email, &u.PasswordHash, &u.UserType, &createdAt,
		&opt[0], &opt[1], &opt[2], &opt[3], &opt[4], &dob, &opt[5], &opt[6],
		&opt[7], &opt[8], &opt[9], &opt[10], &opt[11], &opt[12], &opt[13],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}

	u.Email = email.String
	u.CreatedAt = fromMillis(createdAt)
	u.IDType = opt[0].String
	u.IDNumber = opt[1].String
	u.Nationality = opt[2].String
	u.CurrentLocation = opt[3].String
	u.Languages = opt[4].String
	u.Gender = opt[5].String
	u.EmergencyContact = opt[6].String
	u.OrgName = opt[7].String
	u.OrgType = opt[8].String
	u.OrgSubtype = opt[9].String
	u.OrgRegistrationNumber = opt[10].String
	u.OrgAddress = opt[11].String
	u.OrgContactPerson = opt[12].String
	u.OrgContactPhone = opt[13].String
	if dob.Valid {
		parsed, err := time.Parse(models.DateLayout, dob.String)
		if err != nil {
			return models.User{}, fmt.Errorf("parse dob %q: %w", dob.String, err)
		}
		u.DOB = &parsed
	}
	return u, nil
}

func duplicateField(err error) string {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return ""
	}
	for _, field := range store.UniqueUserFields {
		if strings.Contains(msg, "users."+field) {
			return field
		}
	}
	return "record"
}

// nullString stores empty optional values as NULL so UNIQUE ignores them.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

var _ store.Store = (*Store)(nil)
