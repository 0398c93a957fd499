package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mansoorceksport/cohab/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionsCollection = "refresh_tokens"

// MongoRefreshTokenRepository stores the refresh half of a staff session.
// Only the SHA256 of the cookie value is persisted.
type MongoRefreshTokenRepository struct {
	sessions *mongo.Collection
	now      func() time.Time
}

func NewMongoRefreshTokenRepository(db *mongo.Database) *MongoRefreshTokenRepository {
	sessions := db.Collection(sessionsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// RevokeAllByUserID filters on both
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "revoked", Value: 1}}},
		{
			// expired sessions are purged by Mongo
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}); err != nil {
		log.Printf("⚠️ Failed to create %s indexes: %v", sessionsCollection, err)
	}

	return &MongoRefreshTokenRepository{sessions: sessions, now: time.Now}
}

func (r *MongoRefreshTokenRepository) Create(ctx context.Context, session *domain.RefreshToken) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.now()
	}
	_, err := r.sessions.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict
	}
	return err
}

// FindByHash only matches live sessions; a rotated or logged-out token is ErrNotFound
func (r *MongoRefreshTokenRepository) FindByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var session domain.RefreshToken
	err := r.sessions.FindOne(ctx, bson.M{"token_hash": hash, "revoked": false}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// RevokeByHash ends one session (rotation or logout). Unknown hashes are ignored.
func (r *MongoRefreshTokenRepository) RevokeByHash(ctx context.Context, hash string) error {
	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"token_hash": hash, "revoked": false},
		r.revokeUpdate(),
	)
	return err
}

// RevokeAllByUserID ends every session of a deactivated staff member
func (r *MongoRefreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID string) error {
	_, err := r.sessions.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked": false},
		r.revokeUpdate(),
	)
	return err
}

func (r *MongoRefreshTokenRepository) revokeUpdate() bson.M {
	return bson.M{"$set": bson.M{"revoked": true, "revoked_at": r.now()}}
}
