package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const collectionRoles = "roles"

var roleKeyFields = map[domain.RoleKey]string{
	domain.RoleByID:   "_id",
	domain.RoleByName: "name",
}

// RoleRepository implements ports.RoleRepository on the roles collection.
type RoleRepository struct {
	col   *mongo.Collection
	users *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		col:   db.Collection(collectionRoles),
		users: db.Collection(collectionUsers),
	}
}

type roleDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, roleDocument{ID: role.ID, Name: role.Name}); err != nil {
		return fmt.Errorf("insert role: %w", translate(err))
	}
	return nil
}

func (r *RoleRepository) Find(ctx context.Context, key domain.RoleKey, value string) (*domain.Role, error) {
	field, ok := roleKeyFields[key]
	if !ok {
		return nil, fmt.Errorf("find role: unsupported key %q", key)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDocument
	err := r.col.FindOne(ctx, bson.M{field: value}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by %s: %w", key, err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name}, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": role.ID}, bson.M{"$set": bson.M{"name": role.Name}})
	if err != nil {
		return fmt.Errorf("update role: %w", translate(err))
	}
	return nil
}

// Delete refuses while any user still references the role. Mongo has no
// foreign keys, so the check runs in the caller's transaction.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.users.CountDocuments(ctx, bson.M{"role_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count role users: %w", err)
	}
	if n > 0 {
		return ports.ErrRoleInUse
	}

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func (r *RoleRepository) List(ctx context.Context, q ports.ListQuery) ([]*domain.Role, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []roleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode roles: %w", err)
	}

	roles := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		roles = append(roles, &domain.Role{ID: d.ID, Name: d.Name})
	}
	return roles, total, nil
}

// EnsureIndexes creates the unique index on the role name.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create role indexes: %w", err)
	}
	return nil
}
