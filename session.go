package evolatent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
	"github.com/hupe1980/evolatent/render"
	"github.com/hupe1980/evolatent/store"
)

// Transition kinds reported to the logger and metrics.
const (
	KindInitial  = "initial"
	KindGlobal   = "global"
	KindRegional = "regional"
)

// Session drives one interactive latent-evolution run.
//
// A session owns the state machine, the mutation engine and the persisted
// step history. Selection and region edits are cheap and may be issued from
// any goroutine; at most one Generate or ApplyRegionalMutation runs at a time
// and a concurrent request fails fast with ErrBusy.
type Session struct {
	opts     options
	engine   *mutation.Engine
	renderer render.Renderer
	store    *store.Store
	logger   *Logger
	metrics  MetricsCollector

	// inflight admits a single transition.
	inflight *semaphore.Weighted

	mu        sync.RWMutex
	state     State
	prompt    string
	rate      float64
	pop       latent.Population
	images    []render.Image
	selection map[int]struct{}
	regions   map[int]mutation.Rect
}

// New creates a fresh session in the Idle state that persists into st.
func New(renderer render.Renderer, st *store.Store, optFns ...Option) (*Session, error) {
	if renderer == nil {
		return nil, errors.New("evolatent: renderer is required")
	}
	if st == nil {
		return nil, errors.New("evolatent: store is required")
	}

	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.source == nil {
		o.source = latent.NewSource(time.Now().UnixNano())
	}

	engine, err := mutation.New(
		latent.NewSpace(o.shape, o.source),
		mutation.WithPopulationSize(o.populationSize),
		mutation.WithImageSize(o.imageWidth, o.imageHeight),
		mutation.WithDecay(o.decay, o.decayFactor),
	)
	if err != nil {
		return nil, err
	}

	return &Session{
		opts:      o,
		engine:    engine,
		renderer:  renderer,
		store:     st,
		logger:    o.logger,
		metrics:   o.metricsCollector,
		inflight:  semaphore.NewWeighted(1),
		state:     State{Phase: Idle},
		rate:      o.mutationRate,
		selection: make(map[int]struct{}),
		regions:   make(map[int]mutation.Rect),
	}, nil
}

// Resume reopens the latest complete step of st and returns a session in
// Ready(n) with the persisted prompt, population and mutation rate.
//
// Shape and population size come from the step record and override the
// corresponding options. Selection records lost by a crash after a step was
// committed are restored into the log first. It returns ErrNotFound when
// st holds no complete step.
func Resume(ctx context.Context, st *store.Store, renderer render.Renderer, optFns ...Option) (*Session, error) {
	if st == nil {
		return nil, errors.New("evolatent: store is required")
	}

	restored, err := st.RecoverLog(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := st.LatestStep(ctx)
	if err != nil {
		return nil, err
	}

	pop, err := st.LoadPopulation(ctx, rec.Step)
	if err != nil {
		return nil, err
	}

	images := make([]render.Image, len(pop))
	for i := range pop {
		data, err := st.LoadImage(ctx, rec.Step, i)
		if err != nil {
			return nil, err
		}
		images[i] = render.Image{Data: data, MimeType: mimeFor(rec.ImageExt), Ext: rec.ImageExt}
	}

	optFns = append(slices.Clone(optFns),
		WithShape(rec.Shape),
		WithPopulationSize(rec.PopulationSize),
	)
	s, err := New(renderer, st, optFns...)
	if err != nil {
		return nil, err
	}

	s.state = State{Phase: Ready, Step: rec.Step, HasStep: true}
	s.prompt = rec.Prompt
	s.rate = rec.MutationRate
	s.pop = pop
	s.images = images
	s.logger.WithSession(st.ID()).InfoContext(ctx, "session resumed",
		"step", rec.Step,
		"mutation_rate", rec.MutationRate,
		"restored_selections", restored,
	)
	return s, nil
}

// ID returns the session id of the backing store.
func (s *Session) ID() string { return s.store.ID() }

// Store returns the backing store.
func (s *Session) Store() *store.Store { return s.store }

// State returns a snapshot of the state machine.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Prompt returns the current prompt.
func (s *Session) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// MutationRate returns the rate the next global mutation uses.
func (s *Session) MutationRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// PopulationSize returns the number of candidates per step.
func (s *Session) PopulationSize() int { return s.engine.PopulationSize() }

// Population returns a copy of the latents of the current step.
func (s *Session) Population() latent.Population {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pop.Clone()
}

// Images returns the rendered images of the current step.
func (s *Session) Images() []render.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.images)
}

// SetPrompt sets the prompt used by the next transition. Selection and
// regions survive a prompt change.
func (s *Session) SetPrompt(prompt string) error {
	if prompt == "" {
		return ErrPromptRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == Generating {
		return ErrBusy
	}
	s.prompt = prompt
	s.state.Phase = PromptSet
	return nil
}

// Select toggles candidate i into the selection.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditable(i); err != nil {
		return err
	}
	s.selection[i] = struct{}{}
	return nil
}

// Deselect removes candidate i from the selection.
func (s *Session) Deselect(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditable(i); err != nil {
		return err
	}
	delete(s.selection, i)
	return nil
}

// SetSelection replaces the selection with ids. Duplicates are ignored.
func (s *Session) SetSelection(ids ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range ids {
		if err := s.checkEditable(i); err != nil {
			return err
		}
	}
	clear(s.selection)
	for _, i := range ids {
		s.selection[i] = struct{}{}
	}
	return nil
}

// Selection returns the selected candidate indices in ascending order.
func (s *Session) Selection() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.selection))
}

// SetRegion attaches the crop rectangle r (image pixels) to candidate i,
// replacing an earlier one. A rectangle that maps to an empty latent region
// is rejected with ErrEmptyRegion.
func (s *Session) SetRegion(i int, r mutation.Rect) error {
	if _, err := s.engine.Grid().ToLatent(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditable(i); err != nil {
		return err
	}
	s.regions[i] = r
	return nil
}

// ClearRegion removes the crop rectangle of candidate i.
func (s *Session) ClearRegion(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditable(i); err != nil {
		return err
	}
	delete(s.regions, i)
	return nil
}

// Regions returns a copy of the crop rectangles by candidate index.
func (s *Session) Regions() map[int]mutation.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.regions)
}

// checkEditable must be called with s.mu held.
func (s *Session) checkEditable(i int) error {
	if s.state.Phase == Generating {
		return ErrBusy
	}
	if !s.state.HasStep {
		return fmt.Errorf("%w: no population to select from", ErrInvalidState)
	}
	if i < 0 || i >= len(s.pop) {
		return fmt.Errorf("%w: candidate %d of %d", ErrIndexOutOfRange, i, len(s.pop))
	}
	return nil
}

// Generate advances the session by one step.
//
// Without a previous step it samples and renders the initial population.
// Otherwise it derives a new population from the selected candidates of the
// latest step by global mutation, persists it and records the selection.
// On any failure the session keeps its prior state and no new step is
// left marked complete.
func (s *Session) Generate(ctx context.Context) error {
	if !s.inflight.TryAcquire(1) {
		s.reject(ctx, "generate", ErrBusy)
		return ErrBusy
	}
	defer s.inflight.Release(1)

	s.mu.Lock()
	prior := s.state
	prompt := s.prompt
	rate := s.rate
	selected := slices.Sorted(maps.Keys(s.selection))
	switch {
	case prompt == "":
		s.mu.Unlock()
		s.reject(ctx, "generate", ErrPromptRequired)
		return ErrPromptRequired
	case prior.HasStep && len(selected) == 0:
		s.mu.Unlock()
		s.reject(ctx, "generate", ErrSelectionRequired)
		return ErrSelectionRequired
	}
	s.state.Phase = Generating
	s.mu.Unlock()

	if !prior.HasStep {
		return s.advance(ctx, transition{
			kind:   KindInitial,
			prior:  prior,
			prompt: prompt,
			rate:   rate,
			mutate: func() (latent.Population, float64, error) {
				pop, err := s.engine.Initial()
				return pop, rate, err
			},
		})
	}

	return s.advance(ctx, transition{
		kind:   KindGlobal,
		prior:  prior,
		prompt: prompt,
		rate:   rate,
		mutate: func() (latent.Population, float64, error) {
			parents := make(latent.Population, 0, len(selected))
			for _, i := range selected {
				v, err := s.store.LoadLatent(ctx, prior.Step, i)
				if err != nil {
					return nil, 0, &IOError{Step: prior.Step, Op: "load", cause: err}
				}
				parents = append(parents, v)
			}
			return s.engine.Global(parents, rate)
		},
		record: &store.SelectionRecord{
			Step:         prior.Step,
			SelectedIDs:  selected,
			MutationType: store.MutationGlobal,
		},
	})
}

// ApplyRegionalMutation resamples the crop region of every candidate that
// carries one and passes the others through unchanged. The mutation rate is
// not changed.
func (s *Session) ApplyRegionalMutation(ctx context.Context) error {
	if !s.inflight.TryAcquire(1) {
		s.reject(ctx, "regional", ErrBusy)
		return ErrBusy
	}
	defer s.inflight.Release(1)

	s.mu.Lock()
	prior := s.state
	prompt := s.prompt
	rate := s.rate
	regions := maps.Clone(s.regions)
	switch {
	case !prior.HasStep:
		s.mu.Unlock()
		err := fmt.Errorf("%w: no population to mutate", ErrInvalidState)
		s.reject(ctx, "regional", err)
		return err
	case prompt == "":
		s.mu.Unlock()
		s.reject(ctx, "regional", ErrPromptRequired)
		return ErrPromptRequired
	case len(regions) == 0:
		s.mu.Unlock()
		s.reject(ctx, "regional", ErrRegionRequired)
		return ErrRegionRequired
	}
	s.state.Phase = Generating
	s.mu.Unlock()

	ids := slices.Sorted(maps.Keys(regions))
	rects := make([]store.CandidateRect, 0, len(ids))
	for _, i := range ids {
		rects = append(rects, store.CandidateRect{ImageID: i, Rect: regions[i]})
	}

	return s.advance(ctx, transition{
		kind:   KindRegional,
		prior:  prior,
		prompt: prompt,
		rate:   rate,
		mutate: func() (latent.Population, float64, error) {
			pop, err := s.store.LoadPopulation(ctx, prior.Step)
			if err != nil {
				return nil, 0, &IOError{Step: prior.Step, Op: "load", cause: err}
			}
			out, err := s.engine.RegionalPopulation(pop, regions)
			return out, rate, err
		},
		record: &store.SelectionRecord{
			Step:         prior.Step,
			SelectedIDs:  ids,
			MutationType: store.MutationRegional,
			CropRects:    rects,
		},
	})
}

type transition struct {
	kind   string
	prior  State
	prompt string
	rate   float64
	mutate func() (latent.Population, float64, error)
	// record is appended to the selection log after the step is persisted.
	record *store.SelectionRecord
}

// advance runs mutate, render, persist and log in that order and commits
// the in-memory state only when all of them succeeded.
func (s *Session) advance(ctx context.Context, t transition) (err error) {
	step := t.prior.nextStep()
	logger := s.logger.WithStep(step)
	start := time.Now()

	defer func() {
		s.metrics.RecordGenerate(t.kind, time.Since(start), err)
		logger.LogGenerate(ctx, t.kind, step, t.rate, err)
		if err != nil {
			s.mu.Lock()
			s.state = t.prior
			s.mu.Unlock()
		}
	}()

	id, err := s.store.EnsureRoot(ctx)
	if err != nil {
		return &IOError{Step: step, Op: "create session", cause: err}
	}
	logger = logger.WithSession(id)

	pop, nextRate, err := t.mutate()
	if err != nil {
		return err
	}

	renderStart := time.Now()
	results, err := s.renderer.Render(ctx, t.prompt, pop)
	if err == nil {
		err = render.CheckResults(pop, results)
	}
	s.metrics.RecordRender(len(pop), time.Since(renderStart), err)
	logger.LogRender(ctx, len(pop), time.Since(renderStart), err)
	if err != nil {
		return &RenderError{Step: step, cause: err}
	}

	images := make([]render.Image, len(results))
	data := make([][]byte, len(results))
	for i, r := range results {
		images[i] = r.Image
		data[i] = r.Image.Data
	}

	var rec *store.SelectionRecord
	if t.record != nil {
		r := *t.record
		r.CreatedAt = s.opts.now().UTC()
		rec = &r
	}

	persistStart := time.Now()
	n, err := s.store.PersistStep(ctx, store.StepRecord{
		Step:         step,
		Prompt:       t.prompt,
		MutationRate: nextRate,
		ImageExt:     images[0].Ext,
		Selection:    rec,
	}, pop, data)
	s.metrics.RecordPersist(step, n, time.Since(persistStart), err)
	logger.LogPersist(ctx, step, n, err)
	if err != nil {
		return &IOError{Step: step, Op: "persist", cause: err}
	}

	if rec != nil {
		if err := s.store.AppendSelection(ctx, *rec); err != nil {
			if derr := s.store.DiscardStep(context.WithoutCancel(ctx), step); derr != nil {
				logger.ErrorContext(ctx, "discard step failed", "error", derr)
			}
			return &IOError{Step: step, Op: "append selection", cause: err}
		}
	}

	s.mu.Lock()
	s.state = State{Phase: Ready, Step: step, HasStep: true}
	s.pop = pop
	s.images = images
	s.rate = nextRate
	clear(s.selection)
	clear(s.regions)
	s.mu.Unlock()

	if nextRate != t.rate || t.kind == KindInitial {
		s.metrics.RecordMutationRate(nextRate)
	}
	return nil
}

func (s *Session) reject(ctx context.Context, op string, err error) {
	s.metrics.RecordRejected(reasonFor(err))
	s.logger.LogRejected(ctx, op, err)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrSelectionRequired):
		return "selection_required"
	case errors.Is(err, ErrRegionRequired):
		return "region_required"
	case errors.Is(err, ErrPromptRequired):
		return "prompt_required"
	default:
		return "invalid_state"
	}
}

func mimeFor(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
