package users

import (
	"context"
	"errors"
	"time"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound means no record exists for the given subject id.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateSubject means a record for the subject id already exists.
	// Callers branch on this to degrade a replayed create to a read.
	ErrDuplicateSubject = errors.New("subject id already exists")
)

// Repository defines persistence operations for users, keyed by the
// identity provider's subject id.
type Repository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindBySubject(ctx context.Context, subjectID string) (*models.User, error)
	UpdateBySubject(ctx context.Context, subjectID string, p *models.Patch) (*models.User, error)
	DeleteBySubject(ctx context.Context, subjectID string) (*models.User, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a repository for the given collection and
// ensures the unique index on subjectId. The index is the only concurrency
// control for racing create events: exactly one insert wins, the loser sees
// a duplicate-key error.
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "subjectId", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), idxModel)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateSubject
		}
		return nil, err
	}
	return u, nil
}

func (r *MongoRepository) FindBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"subjectId": subjectID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) UpdateBySubject(ctx context.Context, subjectID string, p *models.Patch) (*models.User, error) {
	set := bson.M{
		"email":     p.Email,
		"username":  p.Username,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"photoUrl":  p.PhotoURL,
		"updatedAt": time.Now().UTC(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"subjectId": subjectID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoRepository) DeleteBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	var deleted models.User
	if err := r.col.FindOneAndDelete(ctx, bson.M{"subjectId": subjectID}).Decode(&deleted); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deleted, nil
}
