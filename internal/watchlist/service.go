package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"watchtrack/internal/domain"
)

var (
	ErrShowNotFound     = errors.New("show not found in catalog")
	ErrAlreadyFollowing = errors.New("already following this show")
	ErrInvalidProgress  = errors.New("season and episode must be at least 1")
	ErrInvalidStatus    = errors.New("invalid watch status")
	ErrInvalidUser      = errors.New("user id is required")
	ErrInvalidBulk      = errors.New("invalid bulk request")
	ErrUnavailable      = errors.New("watchlist storage is not configured")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxBulkItems     = 100
	bulkConcurrency  = 4
)

// Repository persists shows and per-user watchlist rows. Lookups return
// domain.ErrNotFound for missing records.
type Repository interface {
	GetShow(ctx context.Context, id domain.CatalogID) (domain.StoredShow, error)
	GetShows(ctx context.Context, ids []domain.CatalogID) (map[domain.CatalogID]domain.StoredShow, error)
	UpsertShow(ctx context.Context, show domain.StoredShow) error
	GetEntry(ctx context.Context, userID string, id domain.CatalogID) (domain.WatchlistEntry, error)
	SaveEntry(ctx context.Context, entry domain.WatchlistEntry) error
	ListEntries(ctx context.Context, filter domain.WatchlistFilter) ([]domain.WatchlistEntry, int, error)
}

// Catalog is the detail lookup the watchlist needs from the catalog.
type Catalog interface {
	ShowDetail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error)
}

type QuickAddResult struct {
	Show     domain.StoredShow     `json:"show"`
	Entry    domain.WatchlistEntry `json:"entry"`
	Restored bool                  `json:"restored"`
}

// ProgressUpdate applies only the fields that are set.
type ProgressUpdate struct {
	Status  *string `json:"status,omitempty"`
	Season  *int    `json:"season,omitempty"`
	Episode *int    `json:"episode,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type BulkAction string

const (
	BulkUpdateStatus BulkAction = "update_status"
	BulkRemove       BulkAction = "remove"
)

type BulkRequest struct {
	Action     BulkAction         `json:"action"`
	CatalogIDs []domain.CatalogID `json:"catalogIds"`
	Status     string             `json:"status,omitempty"`
}

type BulkFailure struct {
	CatalogID domain.CatalogID `json:"catalogId"`
	Error     string           `json:"error"`
}

type BulkResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService accepts a nil repository; every operation then fails with
// ErrUnavailable except Show, which falls back to the catalog.
func NewService(repo Repository, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Enabled() bool {
	return s != nil && s.repo != nil
}

// QuickAdd stores the show and starts following it for userID.
func (s *Service) QuickAdd(ctx context.Context, userID string, id domain.CatalogID) (QuickAddResult, error) {
	if err := s.check(userID); err != nil {
		return QuickAddResult{}, err
	}
	show, err := s.fetchAndStore(ctx, id)
	if err != nil {
		return QuickAddResult{}, err
	}

	now := s.now()
	entry, err := s.repo.GetEntry(ctx, userID, id)
	switch {
	case err == nil && entry.Following:
		return QuickAddResult{}, ErrAlreadyFollowing
	case err == nil:
		entry.Following = true
		entry.DeletedAt = nil
		entry.Status = domain.WatchStatusWantToWatch
		entry.UpdatedAt = now
		if err := s.repo.SaveEntry(ctx, entry); err != nil {
			return QuickAddResult{}, fmt.Errorf("restore entry: %w", err)
		}
		entry.Show = &show
		s.logger.Info("watchlist entry restored", slog.String("userId", userID), slog.String("catalogId", string(id)))
		return QuickAddResult{Show: show, Entry: entry, Restored: true}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return QuickAddResult{}, fmt.Errorf("load entry: %w", err)
	}

	entry = domain.WatchlistEntry{
		ID:             uuid.NewString(),
		UserID:         userID,
		CatalogID:      id,
		Status:         domain.WatchStatusWantToWatch,
		CurrentSeason:  1,
		CurrentEpisode: 1,
		Following:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.SaveEntry(ctx, entry); err != nil {
		return QuickAddResult{}, fmt.Errorf("save entry: %w", err)
	}
	entry.Show = &show
	s.logger.Info("watchlist entry added", slog.String("userId", userID), slog.String("catalogId", string(id)))
	return QuickAddResult{Show: show, Entry: entry}, nil
}

// Show returns the stored copy of a show, fetching and storing it from the
// catalog when it is not stored yet.
func (s *Service) Show(ctx context.Context, id domain.CatalogID) (domain.StoredShow, error) {
	if s.repo == nil {
		detail, err := s.detail(ctx, id)
		if err != nil {
			return domain.StoredShow{}, err
		}
		return toStoredShow(*detail, s.now()), nil
	}
	stored, err := s.repo.GetShow(ctx, id)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.StoredShow{}, fmt.Errorf("load show: %w", err)
	}
	return s.fetchAndStore(ctx, id)
}

// List returns followed entries newest first. An empty status or "all"
// disables the status filter.
func (s *Service) List(ctx context.Context, userID, status string, page, limit int) (domain.WatchlistPage, error) {
	if err := s.check(userID); err != nil {
		return domain.WatchlistPage{}, err
	}
	filter := domain.WatchlistFilter{UserID: userID}
	status = strings.TrimSpace(status)
	if status != "" && !strings.EqualFold(status, "all") {
		parsed, ok := domain.ParseWatchStatus(status)
		if !ok {
			return domain.WatchlistPage{}, ErrInvalidStatus
		}
		filter.Status = parsed
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	entries, total, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return domain.WatchlistPage{}, fmt.Errorf("list entries: %w", err)
	}
	if err := s.attachShows(ctx, entries); err != nil {
		return domain.WatchlistPage{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}
	return domain.WatchlistPage{
		Items: entries,
		Pagination: domain.Pagination{
			Page:         page,
			TotalPages:   totalPages,
			TotalResults: total,
		},
	}, nil
}

func (s *Service) UpdateProgress(ctx context.Context, userID string, id domain.CatalogID, update ProgressUpdate) (domain.WatchlistEntry, error) {
	if err := s.check(userID); err != nil {
		return domain.WatchlistEntry{}, err
	}
	var status domain.WatchStatus
	if update.Status != nil {
		parsed, ok := domain.ParseWatchStatus(*update.Status)
		if !ok {
			return domain.WatchlistEntry{}, ErrInvalidStatus
		}
		status = parsed
	}
	if (update.Season != nil && *update.Season < 1) || (update.Episode != nil && *update.Episode < 1) {
		return domain.WatchlistEntry{}, ErrInvalidProgress
	}

	entry, err := s.followedEntry(ctx, userID, id)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	if status != "" {
		entry.Status = status
	}
	if update.Season != nil {
		entry.CurrentSeason = *update.Season
	}
	if update.Episode != nil {
		entry.CurrentEpisode = *update.Episode
	}
	if update.Notes != nil {
		entry.Notes = strings.TrimSpace(*update.Notes)
	}
	entry.UpdatedAt = s.now()
	if err := s.repo.SaveEntry(ctx, entry); err != nil {
		return domain.WatchlistEntry{}, fmt.Errorf("save entry: %w", err)
	}
	return entry, nil
}

// Remove unfollows a show. The row is kept so a later QuickAdd restores it.
func (s *Service) Remove(ctx context.Context, userID string, id domain.CatalogID) error {
	if err := s.check(userID); err != nil {
		return err
	}
	entry, err := s.followedEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	now := s.now()
	entry.Following = false
	entry.DeletedAt = &now
	entry.UpdatedAt = now
	if err := s.repo.SaveEntry(ctx, entry); err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

// Bulk applies one action to many shows. A failing item is reported in the
// result and does not stop the others.
func (s *Service) Bulk(ctx context.Context, userID string, request BulkRequest) (BulkResult, error) {
	if err := s.check(userID); err != nil {
		return BulkResult{}, err
	}
	if len(request.CatalogIDs) == 0 || len(request.CatalogIDs) > maxBulkItems {
		return BulkResult{}, ErrInvalidBulk
	}

	var apply func(context.Context, domain.CatalogID) error
	switch request.Action {
	case BulkUpdateStatus:
		if _, ok := domain.ParseWatchStatus(request.Status); !ok {
			return BulkResult{}, ErrInvalidStatus
		}
		status := request.Status
		apply = func(ctx context.Context, id domain.CatalogID) error {
			_, err := s.UpdateProgress(ctx, userID, id, ProgressUpdate{Status: &status})
			return err
		}
	case BulkRemove:
		apply = func(ctx context.Context, id domain.CatalogID) error {
			return s.Remove(ctx, userID, id)
		}
	default:
		return BulkResult{}, ErrInvalidBulk
	}

	errs := make([]error, len(request.CatalogIDs))
	sem := semaphore.NewWeighted(bulkConcurrency)
	var wg sync.WaitGroup
	for index, id := range request.CatalogIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[index] = err
				return
			}
			defer sem.Release(1)
			errs[index] = apply(ctx, id)
		}()
	}
	wg.Wait()

	result := BulkResult{Total: len(request.CatalogIDs), Failed: []BulkFailure{}}
	for index, err := range errs {
		if err == nil {
			result.Succeeded++
			continue
		}
		result.Failed = append(result.Failed, BulkFailure{
			CatalogID: request.CatalogIDs[index],
			Error:     err.Error(),
		})
	}
	if len(result.Failed) > 0 {
		s.logger.Warn("watchlist bulk partially failed",
			slog.String("userId", userID),
			slog.String("action", string(request.Action)),
			slog.Int("failed", len(result.Failed)),
		)
	}
	return result, nil
}

func (s *Service) check(userID string) error {
	if s.repo == nil {
		return ErrUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	return nil
}

func (s *Service) followedEntry(ctx context.Context, userID string, id domain.CatalogID) (domain.WatchlistEntry, error) {
	entry, err := s.repo.GetEntry(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.WatchlistEntry{}, domain.ErrNotFound
		}
		return domain.WatchlistEntry{}, fmt.Errorf("load entry: %w", err)
	}
	if !entry.Following {
		return domain.WatchlistEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

func (s *Service) detail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error) {
	if s.catalog == nil {
		return nil, ErrShowNotFound
	}
	detail, err := s.catalog.ShowDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch show: %w", err)
	}
	if detail == nil {
		return nil, ErrShowNotFound
	}
	return detail, nil
}

func (s *Service) fetchAndStore(ctx context.Context, id domain.CatalogID) (domain.StoredShow, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return domain.StoredShow{}, err
	}
	stored := toStoredShow(*detail, s.now())
	if err := s.repo.UpsertShow(ctx, stored); err != nil {
		return domain.StoredShow{}, fmt.Errorf("store show: %w", err)
	}
	return stored, nil
}

func (s *Service) attachShows(ctx context.Context, entries []domain.WatchlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]domain.CatalogID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.CatalogID)
	}
	shows, err := s.repo.GetShows(ctx, ids)
	if err != nil {
		return fmt.Errorf("load shows: %w", err)
	}
	for i := range entries {
		if show, ok := shows[entries[i].CatalogID]; ok {
			entries[i].Show = &show
		}
	}
	return nil
}
