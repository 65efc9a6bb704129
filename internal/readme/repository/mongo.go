package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/readme-readyou/readme-readyou/internal/readme"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ReadmesCollection  = "readmes"
	ProfilesCollection = "readme_profiles"
)

// MongoRepo implements Store on two collections: one document per
// (identifier, mode) in "readmes" and one per identifier in "readme_profiles".
type MongoRepo struct {
	readmes  *mongo.Collection
	profiles *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		readmes:  db.Collection(ReadmesCollection),
		profiles: db.Collection(ProfilesCollection),
	}
}

// EnsureIndexes creates the unique indexes backing the upsert keys.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.readmes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}, {Key: "mode", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("identifier_mode"),
	})
	if err != nil {
		return fmt.Errorf("%w: create readmes index: %v", readme.ErrStore, err)
	}
	_, err = m.profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("identifier"),
	})
	if err != nil {
		return fmt.Errorf("%w: create profiles index: %v", readme.ErrStore, err)
	}
	return nil
}

func (m *MongoRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*readme.Record, error) {
	var r readme.Record
	if err := m.readmes.FindOne(ctx, filter, opts...).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no readme matching %v", readme.ErrNotFound, filter)
		}
		return nil, fmt.Errorf("%w: find readme: %v", readme.ErrStore, err)
	}
	return &r, nil
}

func (m *MongoRepo) Find(ctx context.Context, identifier string, mode readme.Mode) (*readme.Record, error) {
	return m.findOne(ctx, bson.M{"identifier": identifier, "mode": mode})
}

func (m *MongoRepo) FindAny(ctx context.Context, identifier string) (*readme.Record, error) {
	r, err := m.Find(ctx, identifier, readme.ModeStandard)
	if err == nil || !errors.Is(err, readme.ErrNotFound) {
		return r, err
	}
	return m.findOne(ctx, bson.M{"identifier": identifier}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (m *MongoRepo) Upsert(ctx context.Context, rec *readme.Record) error {
	now := time.Now().UTC()
	filter := bson.M{"identifier": rec.Identifier, "mode": rec.Mode}
	update := bson.M{
		"$set":         bson.M{"content": rec.Content, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	res, err := m.readmes.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert readme: %v", readme.ErrStore, err)
	}
	if res.UpsertedCount > 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return nil
}

func (m *MongoRepo) DefaultMode(ctx context.Context, identifier string) (readme.Mode, error) {
	var p readme.Profile
	if err := m.profiles.FindOne(ctx, bson.M{"identifier": identifier}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("%w: find profile: %v", readme.ErrStore, err)
	}
	return p.DefaultMode, nil
}

func (m *MongoRepo) SetDefaultMode(ctx context.Context, identifier string, mode readme.Mode) error {
	err := m.readmes.FindOne(ctx, bson.M{"identifier": identifier}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: no readme for %q", readme.ErrNotFound, identifier)
		}
		return fmt.Errorf("%w: find readme: %v", readme.ErrStore, err)
	}
	_, err = m.profiles.UpdateOne(ctx,
		bson.M{"identifier": identifier},
		bson.M{"$set": bson.M{"defaultMode": mode, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: set default mode: %v", readme.ErrStore, err)
	}
	return nil
}
