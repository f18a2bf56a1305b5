// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"migrantconnect/models"
	"migrantconnect/store"
)

const (
	usersCollection     = "users"
	documentsCollection = "documents"
)

// index name -> unique field, used to decode duplicate key errors.
var uniqueIndexes = map[string]string{
	"users_phone_unique":                   store.FieldPhone,
	"users_email_unique":                   store.FieldEmail,
	"users_id_number_unique":               store.FieldIDNumber,
	"users_org_registration_number_unique": store.FieldOrgRegistrationNumber,
}

// Store keeps users and documents in two collections of one database.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	docs   *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection(usersCollection),
		docs:   db.Collection(documentsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// Optional fields are omitted when empty, so a partial filter on
	// presence lets many users leave them blank.
	partial := func(field string) *options.IndexOptions {
		return options.Index().
			SetUnique(true).
			SetName("users_" + field + "_unique").
			SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}})
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: store.FieldPhone, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_phone_unique"),
		},
		{Keys: bson.D{{Key: store.FieldEmail, Value: 1}}, Options: partial(store.FieldEmail)},
		{Keys: bson.D{{Key: store.FieldIDNumber, Value: 1}}, Options: partial(store.FieldIDNumber)},
		{Keys: bson.D{{Key: store.FieldOrgRegistrationNumber, Value: 1}}, Options: partial(store.FieldOrgRegistrationNumber)},
		{Keys: bson.D{{Key: "user_type", Value: 1}, {Key: "nationality", Value: 1}}},
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	docIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "upload_date", Value: 1}}},
	}
	if _, err := s.docs.Indexes().CreateMany(ctx, docIndexes); err != nil {
		return fmt.Errorf("create document indexes: %w", err)
	}
	return nil
}

// CreateUser inserts u. Unique index violations become *store.DuplicateError.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if dup := duplicateField(err); dup != "" {
			return &store.DuplicateError{Field: dup}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	if !models.ValidID(id) {
		return models.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": id})
}

// GetUserByPhone loads a user by phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	return s.findUser(ctx, bson.M{store.FieldPhone: phone})
}

// GetUserByEmail loads a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if email == "" {
		return models.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{store.FieldEmail: email})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, store.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// ListUsers returns users matching filter ordered by creation time.
func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]models.User, error) {
	q := bson.M{}
	if filter.UserType != "" {
		q["user_type"] = filter.UserType
	}
	if filter.Nationality != "" {
		q["nationality"] = filter.Nationality
	}
	if filter.ExcludeID != "" {
		q["_id"] = bson.M{"$ne": filter.ExcludeID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.users.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	return users, nil
}

// CreateDocument inserts d after checking that its owner exists.
func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	if !models.ValidID(d.UserID) {
		return store.ErrNotFound
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": d.UserID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check document owner: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if d.ID == "" {
		d.ID = models.NewID()
	}
	if _, err := s.docs.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// ListDocuments returns a user's documents ordered by upload time.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.docs.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse documents: %w", err)
	}
	return docs, nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func duplicateField(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	msg := err.Error()
	for name, field := range uniqueIndexes {
		if strings.Contains(msg, name) {
			return field
		}
	}
	return "record"
}

var _ store.Store = (*Store)(nil)
