package mongo

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

func TestRoleRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find by name", func(mt *mtest.T) {
		repo := NewRoleRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + collectionRoles
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "r1"}, {Key: "name", Value: "admin"}}))

		role, err := repo.Find(context.Background(), domain.RoleByName, "admin")
		if err != nil {
			t.Fatalf("Find returned error: %v", err)
		}
		if role == nil || role.ID != "r1" {
			t.Fatalf("unexpected role: %+v", role)
		}
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewRoleRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error index: name_1",
		}))

		err := repo.Create(context.Background(), &domain.Role{ID: "r2", Name: "admin"})
		if !errors.Is(err, ports.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	mt.Run("delete in use", func(mt *mtest.T) {
		repo := NewRoleRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + collectionUsers
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))

		if err := repo.Delete(context.Background(), "r1"); !errors.Is(err, ports.ErrRoleInUse) {
			t.Fatalf("expected ErrRoleInUse, got %v", err)
		}
	})

	mt.Run("delete unused", func(mt *mtest.T) {
		repo := NewRoleRepository(mt.DB)
		ns := mt.Coll.Database().Name() + "." + collectionUsers
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
		)

		if err := repo.Delete(context.Background(), "r1"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
	})
}
