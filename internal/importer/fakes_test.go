package importer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"watchlist/internal/importer"
	"watchlist/internal/matching"
)

type fakeMatcher struct {
	results map[string]*matching.MatchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeMatcher) Resolve(ctx context.Context, title string, _ int, kind matching.MediaKind) (*matching.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, title)
	if err := f.errs[title]; err != nil {
		return nil, err
	}
	res, ok := f.results[title]
	if !ok {
		return nil, nil
	}
	cp := *res
	if cp.MediaKind == "" {
		cp.MediaKind = kind
	}
	return &cp, nil
}

func exactMatch(id int64, title string, year int) *matching.MatchResult {
	return &matching.MatchResult{
		CatalogID:    id,
		MatchedTitle: title,
		Year:         year,
		Confidence:   matching.ConfidenceExact,
		Score:        95,
		MediaKind:    matching.MediaMovie,
	}
}

type libraryEntry struct {
	userMediaID int64
	mediaID     int64
	status      importer.LibraryStatus
	rating      *float64
	tags        []string
}

type fakeLibrary struct {
	mu          sync.Mutex
	media       map[string]int64
	entries     map[string]*libraryEntry
	byUserMedia map[int64]*libraryEntry
	nextID      int64
	upsertErr   error
	tagErr      error
	onStatus    func()
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		media:       map[string]int64{},
		entries:     map[string]*libraryEntry{},
		byUserMedia: map[int64]*libraryEntry{},
	}
}

func mediaKey(catalogID int64, kind matching.MediaKind) string {
	return fmt.Sprintf("%d/%s", catalogID, kind)
}

func entryKey(userID string, mediaID int64) string {
	return fmt.Sprintf("%s/%d", userID, mediaID)
}

// seed adds an existing library entry for userID.
func (f *fakeLibrary) seed(userID string, catalogID int64, status importer.LibraryStatus, r *float64) {
	mediaID, _ := f.UpsertMedia(context.Background(), importer.Media{CatalogID: catalogID, Kind: matching.MediaMovie})
	_, _ = f.SetUserMediaStatus(context.Background(), userID, mediaID, status, r)
}

func (f *fakeLibrary) entry(userID string, catalogID int64) *libraryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	mediaID, ok := f.media[mediaKey(catalogID, matching.MediaMovie)]
	if !ok {
		return nil
	}
	return f.entries[entryKey(userID, mediaID)]
}

func (f *fakeLibrary) MediaExists(_ context.Context, userID string, catalogID int64, kind matching.MediaKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mediaID, ok := f.media[mediaKey(catalogID, kind)]
	if !ok {
		return false, nil
	}
	_, ok = f.entries[entryKey(userID, mediaID)]
	return ok, nil
}

func (f *fakeLibrary) GetRating(_ context.Context, userID string, catalogID int64, kind matching.MediaKind) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mediaID, ok := f.media[mediaKey(catalogID, kind)]
	if !ok {
		return nil, nil
	}
	if e, ok := f.entries[entryKey(userID, mediaID)]; ok {
		return e.rating, nil
	}
	return nil, nil
}

func (f *fakeLibrary) UpsertMedia(_ context.Context, media importer.Media) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	key := mediaKey(media.CatalogID, media.Kind)
	if id, ok := f.media[key]; ok {
		return id, nil
	}
	f.nextID++
	f.media[key] = f.nextID
	return f.nextID, nil
}

func (f *fakeLibrary) SetUserMediaStatus(_ context.Context, userID string, mediaID int64, status importer.LibraryStatus, r *float64) (int64, error) {
	if f.onStatus != nil {
		defer f.onStatus()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := entryKey(userID, mediaID)
	if e, ok := f.entries[key]; ok {
		e.status = status
		e.rating = r
		return e.userMediaID, nil
	}
	f.nextID++
	e := &libraryEntry{userMediaID: f.nextID, mediaID: mediaID, status: status, rating: r}
	f.entries[key] = e
	f.byUserMedia[e.userMediaID] = e
	return e.userMediaID, nil
}

func (f *fakeLibrary) UpdateRating(_ context.Context, userID string, mediaID int64, r *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryKey(userID, mediaID)]
	if !ok {
		return errors.New("library entry missing")
	}
	e.rating = r
	return nil
}

func (f *fakeLibrary) AttachSystemTag(_ context.Context, userMediaID int64, tagKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagErr != nil {
		return f.tagErr
	}
	e, ok := f.byUserMedia[userMediaID]
	if !ok {
		return errors.New("user media missing")
	}
	e.tags = append(e.tags, tagKey)
	return nil
}

type fakeJobs struct {
	mu          sync.Mutex
	nextID      int64
	jobs        map[int64]*importer.Job
	items       []importer.JobItem
	counterLog  []importer.Counters
	insertErrAt int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[int64]*importer.Job{}, insertErrAt: -1}
}

func (f *fakeJobs) CreateJob(_ context.Context, userID, source string, total int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.jobs[f.nextID] = &importer.Job{ID: f.nextID, UserID: userID, Source: source, Status: importer.JobPending, TotalItems: total}
	return f.nextID, nil
}

func (f *fakeJobs) SetJobStatus(ctx context.Context, jobID int64, status importer.JobStatus, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %d not found", jobID)
	}
	job.Status = status
	job.ErrorMessage = message
	return nil
}

func (f *fakeJobs) SetJobCounters(ctx context.Context, jobID int64, counters importer.Counters) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %d not found", jobID)
	}
	job.Counters = counters
	f.counterLog = append(f.counterLog, counters)
	return nil
}

func (f *fakeJobs) InsertJobItem(ctx context.Context, item importer.JobItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErrAt >= 0 && len(f.items) == f.insertErrAt {
		return errors.New("database is locked")
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeJobs) job(id int64) importer.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}
