package posts

import (
	"context"
	"errors"
	"fmt"

	"socialfeed/pkg/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PostsRepoMongo struct {
	collection common.CollectionHelper
}

func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	return mongo.Connect(ctx, options.Client().ApplyURI(uri))
}

func NewPostsRepoMongo(db *mongo.Database, collection string) *PostsRepoMongo {
	return &PostsRepoMongo{collection: &common.MongoCollection{Collection: db.Collection(collection)}}
}

// ParseID checks that in is a hex object id.
func ParseID(in string) (string, error) {
	if _, err := primitive.ObjectIDFromHex(in); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, in)
	}
	return in, nil
}

func NewID() string {
	return primitive.NewObjectID().Hex()
}

// GetAll returns every post, newest first.
func (r *PostsRepoMongo) GetAll(ctx context.Context) ([]*Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	defer cur.Close(ctx)

	posts := []*Post{}
	err = cur.All(ctx, &posts)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *PostsRepoMongo) GetByID(ctx context.Context, id string) (*Post, error) {
	post := &Post{}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

// Add inserts p, generating an id when p has none.
func (r *PostsRepoMongo) Add(ctx context.Context, p *Post) (string, error) {
	if p.ID == "" {
		p.ID = NewID()
	}
	p.Version = 1
	res, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return "", err
	}

	id, ok := res.GetInsertedID().(string)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id %v", res.GetInsertedID())
	}

	return id, nil
}

// Update writes the mutable fields of p if the stored version still equals
// p.Version, and bumps the version. A mismatch yields ErrConflict.
func (r *PostsRepoMongo) Update(ctx context.Context, p *Post) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID, "version": p.Version},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "content", Value: p.Content},
				{Key: "likes", Value: p.Likes},
				{Key: "dislikes", Value: p.Dislikes},
				{Key: "reactions", Value: p.Reactions},
				{Key: "replies", Value: p.Replies},
				{Key: "updatedAt", Value: p.UpdatedAt},
			}},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		})
	if err != nil {
		return err
	}

	if res.GetMatchedCount() == 0 {
		return ErrConflict
	}

	p.Version++
	return nil
}

func (r *PostsRepoMongo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}

	return res.GetDeletedCount() > 0, nil
}
