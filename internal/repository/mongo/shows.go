package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"watchtrack/internal/domain"
)

type showDoc struct {
	ID           string   `bson:"_id"`
	Title        string   `bson:"title"`
	Overview     string   `bson:"overview,omitempty"`
	PosterPath   string   `bson:"posterPath,omitempty"`
	BackdropPath string   `bson:"backdropPath,omitempty"`
	FirstAirDate string   `bson:"firstAirDate,omitempty"`
	LastAirDate  string   `bson:"lastAirDate,omitempty"`
	Status       string   `bson:"status"`
	Genres       []string `bson:"genres,omitempty"`
	Rating       float64  `bson:"rating"`
	Popularity   float64  `bson:"popularity"`
	TotalSeasons int      `bson:"totalSeasons"`
	UpdatedAt    int64    `bson:"updatedAt"`
}

type ShowRepository struct {
	collection *mongo.Collection
}

func NewShowRepository(client *mongo.Client, dbName string) *ShowRepository {
	return &ShowRepository{collection: client.Database(dbName).Collection(showsCollection)}
}

// UpsertShow replaces the stored fields of a show keyed by catalog ID.
func (r *ShowRepository) UpsertShow(ctx context.Context, show domain.StoredShow) error {
	doc := showToDoc(show)
	update := bson.M{
		"$set": bson.M{
			"title":        doc.Title,
			"overview":     doc.Overview,
			"posterPath":   doc.PosterPath,
			"backdropPath": doc.BackdropPath,
			"firstAirDate": doc.FirstAirDate,
			"lastAirDate":  doc.LastAirDate,
			"status":       doc.Status,
			"genres":       doc.Genres,
			"rating":       doc.Rating,
			"popularity":   doc.Popularity,
			"totalSeasons": doc.TotalSeasons,
			"updatedAt":    doc.UpdatedAt,
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": doc.ID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *ShowRepository) GetShow(ctx context.Context, id domain.CatalogID) (domain.StoredShow, error) {
	var doc showDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.StoredShow{}, domain.ErrNotFound
		}
		return domain.StoredShow{}, err
	}
	return docToShow(doc), nil
}

func (r *ShowRepository) GetShows(ctx context.Context, ids []domain.CatalogID) (map[domain.CatalogID]domain.StoredShow, error) {
	if len(ids) == 0 {
		return map[domain.CatalogID]domain.StoredShow{}, nil
	}
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, string(id))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": values}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []showDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	shows := make(map[domain.CatalogID]domain.StoredShow, len(docs))
	for _, doc := range docs {
		shows[domain.CatalogID(doc.ID)] = docToShow(doc)
	}
	return shows, nil
}

func showToDoc(show domain.StoredShow) showDoc {
	return showDoc{
		ID:           string(show.CatalogID),
		Title:        show.Title,
		Overview:     show.Overview,
		PosterPath:   show.PosterPath,
		BackdropPath: show.BackdropPath,
		FirstAirDate: show.FirstAirDate,
		LastAirDate:  show.LastAirDate,
		Status:       show.Status,
		Genres:       show.Genres,
		Rating:       show.Rating,
		Popularity:   show.Popularity,
		TotalSeasons: show.TotalSeasons,
		UpdatedAt:    unixOrZero(show.UpdatedAt),
	}
}

func docToShow(doc showDoc) domain.StoredShow {
	return domain.StoredShow{
		CatalogID:    domain.CatalogID(doc.ID),
		Title:        doc.Title,
		Overview:     doc.Overview,
		PosterPath:   doc.PosterPath,
		BackdropPath: doc.BackdropPath,
		FirstAirDate: doc.FirstAirDate,
		LastAirDate:  doc.LastAirDate,
		Status:       doc.Status,
		Genres:       doc.Genres,
		Rating:       doc.Rating,
		Popularity:   doc.Popularity,
		TotalSeasons: doc.TotalSeasons,
		UpdatedAt:    timeFromUnix(doc.UpdatedAt),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
