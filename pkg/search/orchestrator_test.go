package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigmap/gigmap/pkg/domain"
	"github.com/gigmap/gigmap/pkg/geo"
)

type fakeRepo struct {
	mu       sync.Mutex
	queries  int
	rows     []domain.Event
	cityRows []domain.CityCount
	err      error
}

func (f *fakeRepo) Create(ctx context.Context, event *domain.Event) error { return nil }
func (f *fakeRepo) CreateBatch(ctx context.Context, events []domain.Event) error {
	return nil
}
func (f *fakeRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return nil, domain.ErrEventNotFound
}
func (f *fakeRepo) CityIndex(ctx context.Context) ([]domain.CityCount, error) {
	return f.cityRows, nil
}
func (f *fakeRepo) DeletePast(ctx context.Context) error                      { return nil }

func (f *fakeRepo) QueryRegion(ctx context.Context, q domain.RegionQuery) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakePopulator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePopulator) PopulateArea(ctx context.Context, lat, lon, radiusMiles float64, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 10, nil
}

func (f *fakePopulator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestOrchestrator(repo *fakeRepo, pop *fakePopulator, onErr func(error)) *Orchestrator {
	return NewOrchestrator(OrchestratorOptions{
		Repository:  repo,
		Populator:   pop,
		Pipeline:    NewPipeline(geo.NewResolver(nil)),
		Logger:      zerolog.Nop(),
		PanDebounce: 10 * time.Millisecond,
		OnError:     onErr,
	})
}

var dupont = domain.GeoPoint{Latitude: 38.9097, Longitude: -77.0434}

func TestOrchestratorSessionGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("initial load populates exactly once", func(t *testing.T) {
		repo := &fakeRepo{rows: bostonCorpus()}
		pop := &fakePopulator{}
		o := newTestOrchestrator(repo, pop, nil)

		o.HandleUserLocation(ctx, dupont)
		o.HandleUserLocation(ctx, dupont)
		o.HandleUserLocation(ctx, dupont)

		if pop.callCount() != 1 {
			t.Errorf("expected 1 population call, got %d", pop.callCount())
		}
		if len(o.Results()) != 3 {
			t.Errorf("expected corpus loaded, got %d results", len(o.Results()))
		}
	})

	t.Run("explicit area search bypasses the guard", func(t *testing.T) {
		repo := &fakeRepo{rows: bostonCorpus()}
		pop := &fakePopulator{}
		o := newTestOrchestrator(repo, pop, nil)

		o.HandleUserLocation(ctx, dupont)
		o.OnExplicitAreaSearch(ctx)
		o.OnExplicitAreaSearch(ctx)

		if pop.callCount() != 3 {
			t.Errorf("expected 3 population calls, got %d", pop.callCount())
		}
	})

	t.Run("invalid location never triggers a load", func(t *testing.T) {
		repo := &fakeRepo{}
		pop := &fakePopulator{}
		o := newTestOrchestrator(repo, pop, nil)

		o.HandleUserLocation(ctx, domain.GeoPoint{})

		if pop.callCount() != 0 {
			t.Errorf("expected no population calls, got %d", pop.callCount())
		}
	})
}

func TestOrchestratorFailureKeepsCorpus(t *testing.T) {
	ctx := context.Background()

	t.Run("population failure leaves prior corpus", func(t *testing.T) {
		repo := &fakeRepo{rows: bostonCorpus()}
		pop := &fakePopulator{}
		var reported error
		o := newTestOrchestrator(repo, pop, func(err error) { reported = err })

		o.HandleUserLocation(ctx, dupont)
		before := len(o.Results())

		pop.mu.Lock()
		pop.err = errors.New("upstream down")
		pop.mu.Unlock()
		o.OnExplicitAreaSearch(ctx)

		if len(o.Results()) != before {
			t.Errorf("expected corpus untouched, got %d results", len(o.Results()))
		}
		if reported == nil {
			t.Error("expected failure to be surfaced")
		}
	})

	t.Run("query failure leaves prior corpus", func(t *testing.T) {
		repo := &fakeRepo{rows: bostonCorpus()}
		pop := &fakePopulator{}
		var reported error
		o := newTestOrchestrator(repo, pop, func(err error) { reported = err })

		o.HandleUserLocation(ctx, dupont)
		before := len(o.Results())

		repo.mu.Lock()
		repo.err = errors.New("db locked")
		repo.mu.Unlock()
		o.OnExplicitAreaSearch(ctx)

		if len(o.Results()) != before {
			t.Errorf("expected corpus untouched, got %d results", len(o.Results()))
		}
		if reported == nil {
			t.Error("expected failure to be surfaced")
		}
	})
}

func TestOrchestratorMutualExclusivity(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{rows: bostonCorpus()}
	o := newTestOrchestrator(repo, &fakePopulator{}, nil)
	o.SetCorpus(ctx, bostonCorpus())

	t.Run("selecting a venue clears the city filter", func(t *testing.T) {
		o.OnFilterChanged(ctx, domain.FilterState{Cities: []string{"Boston"}})
		o.SelectVenue(ctx, &domain.VenueSelection{Name: "The Fillmore"})

		if len(o.Filters().Cities) != 0 {
			t.Errorf("expected cities cleared, got %v", o.Filters().Cities)
		}
	})

	t.Run("selecting cities clears the venue", func(t *testing.T) {
		o.SelectVenue(ctx, &domain.VenueSelection{Name: "The Fillmore"})
		o.OnFilterChanged(ctx, domain.FilterState{Cities: []string{"Boston"}})

		if o.Venue() != nil {
			t.Error("expected venue cleared after city selection")
		}
	})
}

func TestOrchestratorViewport(t *testing.T) {
	ctx := context.Background()

	t.Run("debounce coalesces continuous pans", func(t *testing.T) {
		repo := &fakeRepo{rows: bostonCorpus()}
		o := newTestOrchestrator(repo, &fakePopulator{}, nil)
		o.SetCorpus(ctx, bostonCorpus())

		var mu sync.Mutex
		settled := 0
		o.onResults = func([]domain.Event) {
			mu.Lock()
			settled++
			mu.Unlock()
		}

		for i := 0; i < 5; i++ {
			o.OnViewportChanged(ctx, domain.ViewportState{
				Center: domain.GeoPoint{Latitude: 38.9 + float64(i)*0.01, Longitude: -77.0},
			})
		}

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if settled != 1 {
			t.Errorf("expected 1 settled recomputation, got %d", settled)
		}
	})

	t.Run("user pan arms the area-search affordance", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRepo{}, &fakePopulator{}, nil)
		o.CommitCenter(dupont, 12)

		o.OnViewportSettled(ctx, domain.ViewportState{
			Center: domain.GeoPoint{Latitude: 39.2904, Longitude: -76.6122},
			Zoom:   12,
		})

		if !o.AreaSearchAvailable() {
			t.Error("expected area search available after user pan")
		}
	})

	t.Run("programmatic recentring does not arm it", func(t *testing.T) {
		o := newTestOrchestrator(&fakeRepo{}, &fakePopulator{}, nil)
		o.CommitCenter(dupont, 12)

		o.OnViewportSettled(ctx, domain.ViewportState{Center: dupont, Zoom: 12})

		if o.AreaSearchAvailable() {
			t.Error("expected self-move to be suppressed")
		}
	})
}

func TestOrchestratorReconcilesCitySelections(t *testing.T) {
	repo := &fakeRepo{
		cityRows: []domain.CityCount{
			{City: "Washington", State: "DC", EventCount: 5},
			{City: "Baltimore", State: "MD", EventCount: 2},
		},
	}
	o := newTestOrchestrator(repo, &fakePopulator{}, nil)
	ctx := context.Background()

	o.OnFilterChanged(ctx, domain.FilterState{Cities: []string{"Washington Dc"}})
	o.HandleUserLocation(ctx, dupont)

	got := o.Filters().Cities
	if len(got) != 1 || got[0] != "Washington" {
		t.Errorf("expected stale selection remapped to [Washington], got %v", got)
	}
}
