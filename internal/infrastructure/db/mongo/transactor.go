package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor implements ports.Transactor with a client session. Repositories
// join the transaction through the SessionContext passed to fn. Requires a
// replica set or sharded cluster.
//
// fn runs exactly once: a transient commit error is returned to the caller
// rather than replaying fn, which may already have produced side effects.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// InTransaction reports whether ctx carries a session opened by a Transactor.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.Background())

	if err := session.StartTransaction(); err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	sc := mongo.NewSessionContext(ctx, session)

	defer func() {
		if p := recover(); p != nil {
			_ = session.AbortTransaction(context.Background())
			panic(p)
		}
		if err != nil {
			_ = session.AbortTransaction(context.Background())
		}
	}()

	if err = fn(sc); err != nil {
		return err
	}
	if err = session.CommitTransaction(sc); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
