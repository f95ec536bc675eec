package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raushankrgupta/fitly-tryon/models"
)

const (
	tryOnCollection = "tryons"
	userCollection  = "users"
)

// MongoStore keeps try-ons and users in two collections of one database.
type MongoStore struct {
	client *mongo.Client
	tryOns *mongo.Collection
	users  *mongo.Collection
	now    func() time.Time
}

// NewMongoStore uses database on client and makes sure the indexes exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	db := client.Database(database)
	s := &MongoStore{
		client: client,
		tryOns: db.Collection(tryOnCollection),
		users:  db.Collection(userCollection),
		now:    time.Now,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create users index: %w", err)
	}
	_, err = s.tryOns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create tryons index: %w", err)
	}
	return s, nil
}

// Insert stores a new try-on record, assigning an id when rec has none.
func (s *MongoStore) Insert(ctx context.Context, rec *models.TryOn) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if _, err := s.tryOns.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert try-on: %w", err)
	}
	return nil
}

// Update applies upd to a record that is still processing.
func (s *MongoStore) Update(ctx context.Context, id string, upd models.TryOnUpdate) error {
	filter := bson.M{"_id": id, "status": models.TryOnStatusProcessing}
	res, err := s.tryOns.UpdateOne(ctx, filter, bson.M{"$set": updateFields(upd, s.now())})
	if err != nil {
		return fmt.Errorf("update try-on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update try-on %s: %w", id, ErrNotPending)
	}
	return nil
}

// updateFields is the $set document of upd. Empty fields are skipped.
func updateFields(upd models.TryOnUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if upd.Status != "" {
		set["status"] = upd.Status
	}
	if upd.RequestID != "" {
		set["request_id"] = upd.RequestID
	}
	if upd.ResultImagePath != "" {
		set["result_image_path"] = upd.ResultImagePath
	}
	if upd.ErrorMessage != "" {
		set["error_message"] = upd.ErrorMessage
	}
	return set
}

// ListByUser returns one page of a user's try-ons, newest first, and the total count.
// An empty status lists every record.
func (s *MongoStore) ListByUser(ctx context.Context, userID string, status models.TryOnStatus, page, limit int) ([]models.TryOn, int64, error) {
	_, limit, skip := pageBounds(page, limit)

	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.tryOns.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count try-ons: %w", err)
	}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}}) // Show latest first
	findOptions.SetSkip(int64(skip))
	findOptions.SetLimit(int64(limit))

	cursor, err := s.tryOns.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find try-ons: %w", err)
	}
	defer cursor.Close(ctx)

	tryOns := []models.TryOn{}
	if err := cursor.All(ctx, &tryOns); err != nil {
		return nil, 0, fmt.Errorf("decode try-ons: %w", err)
	}
	return tryOns, total, nil
}

// CreateUser inserts a new account. Emails are stored lower case.
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindUserByEmail looks an account up by email.
func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
