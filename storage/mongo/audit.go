// Package mongostore keeps the audit trail in MongoDB, for deployments that ship it out of the main database.
package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/shule/core/audit"
)

const auditCollection = "audit_logs"

// Connect opens a client to uri and checks that the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return client, nil
}

type entryDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Action    string    `bson:"action"`
	Details   string    `bson:"details"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d entryDoc) entry() audit.Entry {
	return audit.Entry{
		ID:        d.ID,
		UserID:    d.UserID,
		Action:    d.Action,
		Details:   d.Details,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type auditRepository struct {
	col *mongo.Collection
}

var _ audit.Repository = (*auditRepository)(nil)

// NewAuditRepository stores the entries in the audit_logs collection of db, indexed on created_at.
func NewAuditRepository(ctx context.Context, db *mongo.Database) (audit.Repository, error) {
	col := db.Collection(auditCollection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}})
	if err != nil {
		return nil, errors.Wrap(err, "creating audit index")
	}
	return &auditRepository{col: col}, nil
}

func (repo *auditRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = e.CreatedAt.UTC()
	doc := entryDoc{ID: e.ID, UserID: e.UserID, Action: e.Action, Details: e.Details, CreatedAt: e.CreatedAt}
	if _, err := repo.col.InsertOne(ctx, doc); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return e, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := repo.col.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding audit entries")
	}
	var docs []entryDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding audit entries")
	}

	entries := make([]audit.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.entry())
	}
	return entries, nil
}

func buildFilter(filter audit.QueryFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	created := bson.M{}
	if !filter.From.IsZero() {
		created["$gte"] = filter.From.UTC()
	}
	if !filter.To.IsZero() {
		created["$lte"] = filter.To.UTC()
	}
	if len(created) > 0 {
		query["created_at"] = created
	}
	return query
}
