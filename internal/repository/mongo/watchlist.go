package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"watchtrack/internal/domain"
)

type watchlistDoc struct {
	ID             string `bson:"_id"`
	EntryID        string `bson:"entryId"`
	UserID         string `bson:"userId"`
	CatalogID      string `bson:"catalogId"`
	Status         string `bson:"status"`
	CurrentSeason  int    `bson:"currentSeason"`
	CurrentEpisode int    `bson:"currentEpisode"`
	Notes          string `bson:"notes,omitempty"`
	Following      bool   `bson:"following"`
	CreatedAt      int64  `bson:"createdAt"`
	UpdatedAt      int64  `bson:"updatedAt"`
	DeletedAt      int64  `bson:"deletedAt,omitempty"`
}

type WatchlistRepository struct {
	collection *mongo.Collection
}

func NewWatchlistRepository(client *mongo.Client, dbName string) *WatchlistRepository {
	return &WatchlistRepository{collection: client.Database(dbName).Collection(watchlistCollection)}
}

func watchlistDocID(userID string, id domain.CatalogID) string {
	return fmt.Sprintf("%s:%s", userID, string(id))
}

func (r *WatchlistRepository) GetEntry(ctx context.Context, userID string, id domain.CatalogID) (domain.WatchlistEntry, error) {
	var doc watchlistDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": watchlistDocID(userID, id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.WatchlistEntry{}, domain.ErrNotFound
		}
		return domain.WatchlistEntry{}, err
	}
	return docToEntry(doc), nil
}

// SaveEntry upserts the row for the entry's user and show.
func (r *WatchlistRepository) SaveEntry(ctx context.Context, entry domain.WatchlistEntry) error {
	doc := entryToDoc(entry)
	set := bson.M{
		"entryId":        doc.EntryID,
		"userId":         doc.UserID,
		"catalogId":      doc.CatalogID,
		"status":         doc.Status,
		"currentSeason":  doc.CurrentSeason,
		"currentEpisode": doc.CurrentEpisode,
		"notes":          doc.Notes,
		"following":      doc.Following,
		"createdAt":      doc.CreatedAt,
		"updatedAt":      doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.DeletedAt != 0 {
		set["deletedAt"] = doc.DeletedAt
	} else {
		update["$unset"] = bson.M{"deletedAt": ""}
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": doc.ID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

// ListEntries returns one page of followed entries, newest first, and the
// total number of matching rows.
func (r *WatchlistRepository) ListEntries(ctx context.Context, filter domain.WatchlistFilter) ([]domain.WatchlistEntry, int, error) {
	query := listQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []watchlistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	entries := make([]domain.WatchlistEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, docToEntry(doc))
	}
	return entries, int(total), nil
}

func listQuery(filter domain.WatchlistFilter) bson.M {
	query := bson.M{
		"userId":    filter.UserID,
		"following": true,
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	return query
}

func entryToDoc(entry domain.WatchlistEntry) watchlistDoc {
	doc := watchlistDoc{
		ID:             watchlistDocID(entry.UserID, entry.CatalogID),
		EntryID:        entry.ID,
		UserID:         entry.UserID,
		CatalogID:      string(entry.CatalogID),
		Status:         string(entry.Status),
		CurrentSeason:  entry.CurrentSeason,
		CurrentEpisode: entry.CurrentEpisode,
		Notes:          entry.Notes,
		Following:      entry.Following,
		CreatedAt:      unixOrZero(entry.CreatedAt),
		UpdatedAt:      unixOrZero(entry.UpdatedAt),
	}
	if entry.DeletedAt != nil {
		doc.DeletedAt = entry.DeletedAt.Unix()
	}
	return doc
}

func docToEntry(doc watchlistDoc) domain.WatchlistEntry {
	entry := domain.WatchlistEntry{
		ID:             doc.EntryID,
		UserID:         doc.UserID,
		CatalogID:      domain.CatalogID(doc.CatalogID),
		Status:         domain.WatchStatus(doc.Status),
		CurrentSeason:  doc.CurrentSeason,
		CurrentEpisode: doc.CurrentEpisode,
		Notes:          doc.Notes,
		Following:      doc.Following,
		CreatedAt:      timeFromUnix(doc.CreatedAt),
		UpdatedAt:      timeFromUnix(doc.UpdatedAt),
	}
	if doc.DeletedAt != 0 {
		deletedAt := timeFromUnix(doc.DeletedAt)
		entry.DeletedAt = &deletedAt
	}
	return entry
}
