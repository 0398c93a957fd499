package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/cohab/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStudentRepository implements domain.StudentRepository
type MongoStudentRepository struct {
	collection *mongo.Collection
}

func NewMongoStudentRepository(db *mongo.Database) *MongoStudentRepository {
	coll := db.Collection("students")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// name for the sorted roster, rut for lookups from the status page
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{
			Keys:    bson.D{{Key: "rut", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})

	return &MongoStudentRepository{
		collection: coll,
	}
}

func (r *MongoStudentRepository) Create(ctx context.Context, student *domain.Student) error {
	now := time.Now()
	student.CreatedAt = now
	student.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, student); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("student %s: %w", student.ID, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *MongoStudentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	var student domain.Student
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&student); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (r *MongoStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check student: %w", err)
	}
	return count > 0, nil
}

// List returns every student ordered by name
func (r *MongoStudentRepository) List(ctx context.Context) ([]*domain.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer cursor.Close(ctx)

	students := make([]*domain.Student, 0)
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return students, nil
}

func (r *MongoStudentRepository) Upsert(ctx context.Context, student *domain.Student) (bool, error) {
	now := time.Now()
	student.UpdatedAt = now

	set := bson.M{
		"name":       student.Name,
		"email":      student.Email,
		"phone":      student.Phone,
		"rut":        student.RUT,
		"amount":     student.Amount,
		"due_day":    student.DueDay,
		"updated_at": now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	// An upsert without a payment date must not erase the one on file
	if student.LastPaymentDate != nil {
		set["last_payment_date"] = *student.LastPaymentDate
	}

	opts := options.Update().SetUpsert(true)
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": student.ID}, update, opts)
	if err != nil {
		return false, fmt.Errorf("failed to upsert student: %w", err)
	}

	inserted := result.UpsertedCount > 0
	if inserted {
		student.CreatedAt = now
	}
	return inserted, nil
}

func (r *MongoStudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordPayment overwrites the last payment date. Concurrent writers follow last-write-wins.
func (r *MongoStudentRepository) RecordPayment(ctx context.Context, id string, paidOn time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_payment_date": paidOn,
			"updated_at":        time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
