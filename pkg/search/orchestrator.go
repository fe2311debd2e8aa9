package search

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigmap/gigmap/pkg/cities"
	"github.com/gigmap/gigmap/pkg/domain"
)

// centerEpsilon is how far (in degrees) the viewport may drift from the
// last programmatically committed center before the movement counts as
// a user pan.
const centerEpsilon = 1e-4

// OrchestratorOptions wires the orchestrator's collaborators and tuning.
type OrchestratorOptions struct {
	Repository    domain.EventRepository
	Populator     domain.PopulationService
	Follows       domain.FollowProvider
	Pipeline      *Pipeline
	Logger        zerolog.Logger
	PanDebounce   time.Duration
	DefaultRadius float64
	PopulateLimit int
	OnResults     func([]domain.Event)
	OnError       func(error)
}

// Orchestrator owns the mutable search state (corpus, filters, viewport,
// venue selection, query) and decides when to call the external
// population service. The pipeline only ever sees read-only snapshots.
type Orchestrator struct {
	repo      domain.EventRepository
	populator domain.PopulationService
	follows   domain.FollowProvider
	pipeline  *Pipeline
	log       zerolog.Logger

	panDebounce   time.Duration
	defaultRadius float64
	populateLimit int

	onResults func([]domain.Event)
	onError   func(error)

	mu            sync.Mutex
	corpus        []domain.Event
	searchResults []domain.Event
	filters       domain.FilterState
	query         domain.SearchQuery
	venue         *domain.VenueSelection
	viewport      domain.ViewportState
	followState   domain.FollowState
	results       []domain.Event

	// initialLoadDone is the session guard: it stops incidental
	// location updates from re-triggering population. Explicit area
	// searches bypass it.
	initialLoadDone bool

	// seq orders triggers so a slow earlier population or resolution
	// can never clobber a faster later one. Last write wins by trigger
	// sequence, not by completion order.
	seq uint64

	panTimer *time.Timer

	areaSearchAvailable bool
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.PanDebounce <= 0 {
		opts.PanDebounce = 400 * time.Millisecond
	}
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = 50
	}
	if opts.PopulateLimit <= 0 {
		opts.PopulateLimit = 200
	}

	return &Orchestrator{
		repo:          opts.Repository,
		populator:     opts.Populator,
		follows:       opts.Follows,
		pipeline:      opts.Pipeline,
		log:           opts.Logger,
		panDebounce:   opts.PanDebounce,
		defaultRadius: opts.DefaultRadius,
		populateLimit: opts.PopulateLimit,
		onResults:     opts.OnResults,
		onError:       opts.OnError,
	}
}

// Results returns the latest computed result list.
func (o *Orchestrator) Results() []domain.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.Event, len(o.results))
	copy(out, o.results)
	return out
}

// AreaSearchAvailable reports whether the viewport has been panned by
// the user since the last committed recentring, which is what makes the
// "search this area" affordance meaningful.
func (o *Orchestrator) AreaSearchAvailable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.areaSearchAvailable
}

// HandleUserLocation performs the once-per-session initial load. The
// first call with a usable location populates and re-queries; later
// calls reuse the stored corpus and only recompute.
func (o *Orchestrator) HandleUserLocation(ctx context.Context, loc domain.GeoPoint) {
	if !loc.Valid() {
		return
	}

	o.mu.Lock()
	if o.initialLoadDone {
		o.mu.Unlock()
		o.Recompute(ctx)
		return
	}
	o.initialLoadDone = true
	o.viewport.Center = loc
	o.viewport.CommittedCenter = loc
	o.mu.Unlock()

	o.populateAndRefresh(ctx, loc, o.defaultRadius)
}

// OnExplicitAreaSearch is the user-initiated "search this area" action.
// It always bypasses the session guard; the guard only exists to stop
// implicit repeats.
func (o *Orchestrator) OnExplicitAreaSearch(ctx context.Context) {
	o.mu.Lock()
	center := o.viewport.Center
	o.areaSearchAvailable = false
	o.initialLoadDone = true
	o.mu.Unlock()

	if !center.Valid() {
		o.reportError(domain.ErrInvalidLocation)
		return
	}
	o.populateAndRefresh(ctx, center, o.defaultRadius)
}

// OnViewportChanged coalesces continuous drag/zoom updates; the settled
// viewport is processed once the debounce window elapses.
func (o *Orchestrator) OnViewportChanged(ctx context.Context, vp domain.ViewportState) {
	o.mu.Lock()
	o.viewport.Center = vp.Center
	o.viewport.Zoom = vp.Zoom
	o.viewport.Bounds = vp.Bounds

	if o.panTimer != nil {
		o.panTimer.Stop()
	}
	settled := o.viewport
	o.panTimer = time.AfterFunc(o.panDebounce, func() {
		o.OnViewportSettled(ctx, settled)
	})
	o.mu.Unlock()
}

// OnViewportSettled applies a settled viewport. Movement matching the
// last committed center/zoom is a programmatic recentring, not a user
// pan, and must not arm the area-search affordance.
func (o *Orchestrator) OnViewportSettled(ctx context.Context, vp domain.ViewportState) {
	o.mu.Lock()
	o.viewport.Center = vp.Center
	o.viewport.Zoom = vp.Zoom
	o.viewport.Bounds = vp.Bounds

	userMoved := !nearlyEqual(vp.Center, o.viewport.CommittedCenter) ||
		(o.viewport.CommittedZoom != 0 && vp.Zoom != o.viewport.CommittedZoom)
	if userMoved {
		o.areaSearchAvailable = true
	}
	o.mu.Unlock()

	o.Recompute(ctx)
}

// CommitCenter recenters the viewport programmatically (for example
// after a city filter change) and records the committed position so the
// resulting viewport event is not mistaken for a user pan.
func (o *Orchestrator) CommitCenter(center domain.GeoPoint, zoom float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewport.Center = center
	o.viewport.Zoom = zoom
	o.viewport.CommittedCenter = center
	o.viewport.CommittedZoom = zoom
	o.areaSearchAvailable = false
}

// OnFilterChanged replaces the filter state. A non-empty city set
// clears any active venue selection (the two are mutually exclusive).
func (o *Orchestrator) OnFilterChanged(ctx context.Context, filters domain.FilterState) {
	o.mu.Lock()
	o.filters = filters
	if len(filters.Cities) > 0 {
		o.venue = nil
	}
	o.mu.Unlock()

	o.Recompute(ctx)
}

// SelectVenue pins results to one venue and clears the city filter, the
// other half of the mutual-exclusivity invariant. Passing nil clears
// the selection.
func (o *Orchestrator) SelectVenue(ctx context.Context, venue *domain.VenueSelection) {
	o.mu.Lock()
	o.venue = venue
	if venue != nil {
		o.filters = o.filters.WithoutCities()
	}
	o.mu.Unlock()

	o.Recompute(ctx)
}

// SetQuery replaces the free-text query.
func (o *Orchestrator) SetQuery(ctx context.Context, query domain.SearchQuery) {
	o.mu.Lock()
	o.query = query
	o.mu.Unlock()

	o.Recompute(ctx)
}

// SetSearchResults installs the external result set used in artists
// mode.
func (o *Orchestrator) SetSearchResults(ctx context.Context, results []domain.Event) {
	o.mu.Lock()
	o.searchResults = results
	o.mu.Unlock()

	o.Recompute(ctx)
}

// Filters returns the current filter state snapshot.
func (o *Orchestrator) Filters() domain.FilterState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters
}

// Venue returns the current venue selection, or nil.
func (o *Orchestrator) Venue() *domain.VenueSelection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.venue
}

// Recompute snapshots the current state, runs the pipeline, and applies
// the result if no newer trigger has started in the meantime.
func (o *Orchestrator) Recompute(ctx context.Context) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	corpus := o.corpus
	searchResults := o.searchResults
	query := o.query
	filters := o.filters
	venue := o.venue
	viewport := o.viewport
	o.mu.Unlock()

	followState := o.loadFollows(ctx, filters)

	results := o.pipeline.ComputeResults(ctx, corpus, query, filters, venue, &viewport, followState, searchResults)

	o.mu.Lock()
	if seq != o.seq {
		// A newer trigger superseded this computation while a
		// centroid resolution was in flight; drop the stale result.
		o.mu.Unlock()
		return
	}
	o.results = results
	handler := o.onResults
	o.mu.Unlock()

	if handler != nil {
		handler(results)
	}
}

func (o *Orchestrator) loadFollows(ctx context.Context, filters domain.FilterState) domain.FollowState {
	if !filters.FollowingOnly || o.follows == nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.followState
	}

	state, err := o.follows.Follows(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("follow state unavailable, using last snapshot")
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.followState
	}

	o.mu.Lock()
	o.followState = state
	o.mu.Unlock()
	return state
}

// populateAndRefresh calls the population service and, on success,
// re-queries the storage layer for the target region and feeds the
// fresh corpus through the pipeline. On any failure the previous corpus
// stays untouched and the error is surfaced through the error handler.
func (o *Orchestrator) populateAndRefresh(ctx context.Context, center domain.GeoPoint, radiusMiles float64) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.mu.Unlock()

	if o.populator != nil {
		count, err := o.populator.PopulateArea(ctx, center.Latitude, center.Longitude, radiusMiles, o.populateLimit)
		if err != nil {
			o.log.Warn().Err(err).Msg("population call failed, keeping prior corpus")
			o.reportError(err)
			return
		}
		o.log.Debug().Int("ingested", count).
			Float64("lat", center.Latitude).Float64("lon", center.Longitude).
			Msg("population call complete")
	}

	rows, err := o.repo.QueryRegion(ctx, domain.RegionQuery{
		Center:      &center,
		RadiusMiles: radiusMiles,
	})
	if err != nil {
		o.log.Warn().Err(err).Msg("region query failed, keeping prior corpus")
		o.reportError(err)
		return
	}

	// Selected city chips may reference stale spellings once fresh data
	// lands; remap them onto the canonical entries.
	var entries []cities.Entry
	if index, cerr := o.repo.CityIndex(ctx); cerr == nil {
		entries = cities.Normalize(index)
	}

	o.mu.Lock()
	if seq != o.seq {
		o.mu.Unlock()
		return
	}
	o.corpus = rows
	if len(entries) > 0 && len(o.filters.Cities) > 0 {
		o.filters.Cities = cities.Reconcile(o.filters.Cities, entries)
	}
	o.mu.Unlock()

	o.Recompute(ctx)
}

// SetCorpus replaces the corpus wholesale, for callers that load events
// through their own query path.
func (o *Orchestrator) SetCorpus(ctx context.Context, corpus []domain.Event) {
	o.mu.Lock()
	o.corpus = corpus
	o.mu.Unlock()

	o.Recompute(ctx)
}

func (o *Orchestrator) reportError(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}

func nearlyEqual(a, b domain.GeoPoint) bool {
	return math.Abs(a.Latitude-b.Latitude) < centerEpsilon &&
		math.Abs(a.Longitude-b.Longitude) < centerEpsilon
}
