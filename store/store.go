package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/evolatent/blobstore"
	"github.com/hupe1980/evolatent/codec"
	"github.com/hupe1980/evolatent/internal/resource"
	"github.com/hupe1980/evolatent/latent"
)

// Store is the durable record of one session.
type Store struct {
	blobs blobstore.BlobStore
	opts  options
	rc    *resource.Controller

	// writer serializes every mutation of the session's blobs.
	writer *semaphore.Weighted

	mu  sync.RWMutex
	id  string
	log []SelectionRecord
}

// New returns a Store for a fresh session on blobs. The session id is
// assigned by the first EnsureRoot (directly or through a write).
func New(blobs blobstore.BlobStore, optFns ...Option) *Store {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		blobs: blobs,
		opts:  opts,
		rc: resource.NewController(resource.Config{
			MaxParallelWrites:  int64(opts.maxParallelWrites),
			IOLimitBytesPerSec: opts.ioLimit,
		}),
		writer: semaphore.NewWeighted(1),
		id:     opts.sessionID,
	}
}

// Open reopens the persisted session id and loads its selection log.
// It returns ErrNotFound if nothing was ever written for id.
func Open(ctx context.Context, blobs blobstore.BlobStore, id string, optFns ...Option) (*Store, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("store: invalid session id %q", id)
	}
	names, err := blobs.List(ctx, id+"/")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}

	s := New(blobs, append(optFns, WithSessionID(id))...)

	data, err := blobstore.ReadAll(ctx, blobs, logPath(id))
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if err := s.opts.codec.Unmarshal(data, &s.log); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", logName, err)
		}
	}
	return s, nil
}

// Sessions lists the ids of all sessions stored in blobs.
func Sessions(ctx context.Context, blobs blobstore.BlobStore) ([]string, error) {
	names, err := blobs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range names {
		id, rest, ok := strings.Cut(name, "/")
		if !ok || (rest != logName && !strings.HasSuffix(rest, "/"+markerName)) {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ID returns the session id, or "" before the root exists.
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blobstore.BlobStore { return s.blobs }

// EnsureRoot creates the session root on first use and returns the session
// id, which is also the root's name inside the blob store. Later calls
// return the same id.
func (s *Store) EnsureRoot(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.id == "" {
		s.id = NewSessionID(s.opts.now())
	}
	id := s.id
	s.mu.Unlock()

	if dm, ok := s.blobs.(blobstore.DirMaker); ok {
		if err := dm.MkdirAll(ctx, id); err != nil {
			return "", err
		}
	}
	return id, nil
}

// PersistStep writes the population and images of rec.Step, then commits
// the step by writing its marker. It returns the number of bytes written.
//
// images[i] is the rendered image of pop[i]. Leftovers of an earlier failed
// attempt at the same step are overwritten; a complete step is never
// touched and yields ErrStepExists.
func (s *Store) PersistStep(ctx context.Context, rec StepRecord, pop latent.Population, images [][]byte) (int64, error) {
	if rec.Step < 0 || len(pop) == 0 || len(pop) != len(images) {
		return 0, fmt.Errorf("%w: step %d with %d latents and %d images", ErrInvalidStep, rec.Step, len(pop), len(images))
	}

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer s.writer.Release(1)

	id, err := s.EnsureRoot(ctx)
	if err != nil {
		return 0, err
	}

	exists, err := blobstore.Exists(ctx, s.blobs, markerPath(id, rec.Step))
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %d", ErrStepExists, rec.Step)
	}

	rec.PopulationSize = len(pop)
	rec.Shape = pop[0].Shape
	if rec.ImageExt == "" {
		rec.ImageExt = s.opts.imageExt
	}
	rec.LatentEncoding = s.opts.compression.String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.opts.now().UTC()
	}

	type blob struct {
		name string
		data []byte
	}
	blobs := make([]blob, 0, 2*len(pop))
	for i, v := range pop {
		enc, err := latent.Encode(v, s.opts.compression)
		if err != nil {
			return 0, fmt.Errorf("encode latent %d: %w", i, err)
		}
		blobs = append(blobs,
			blob{imagePath(id, rec.Step, i, rec.ImageExt), images[i]},
			blob{latentPath(id, rec.Step, i), enc},
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rc.MaxParallelWrites())
	for _, b := range blobs {
		g.Go(func() error {
			return s.put(gctx, b.name, b.data)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	marker, err := codec.MarshalPretty(s.opts.codec, rec)
	if err != nil {
		return 0, err
	}
	if err := s.put(ctx, markerPath(id, rec.Step), marker); err != nil {
		return 0, err
	}

	total := int64(len(marker))
	for _, b := range blobs {
		total += int64(len(b.data))
	}
	return total, nil
}

func (s *Store) put(ctx context.Context, name string, data []byte) error {
	if err := s.rc.AcquireWrite(ctx); err != nil {
		return err
	}
	defer s.rc.ReleaseWrite()

	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// DiscardStep un-commits a step: the marker goes first, then the candidate
// files. Discarding a missing step is a no-op.
func (s *Store) DiscardStep(ctx context.Context, step int) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	id := s.ID()
	if id == "" {
		return nil
	}
	if err := s.blobs.Delete(ctx, markerPath(id, step)); err != nil {
		return err
	}
	names, err := s.blobs.List(ctx, stepDir(id, step)+"/")
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.blobs.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// LoadStep returns the marker of a complete step.
func (s *Store) LoadStep(ctx context.Context, step int) (StepRecord, error) {
	id := s.ID()
	if id == "" || step < 0 {
		return StepRecord{}, fmt.Errorf("%w: step %d", ErrNotFound, step)
	}
	data, err := blobstore.ReadAll(ctx, s.blobs, markerPath(id, step))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return StepRecord{}, fmt.Errorf("%w: step %d", ErrNotFound, step)
		}
		return StepRecord{}, err
	}
	var rec StepRecord
	if err := s.opts.codec.Unmarshal(data, &rec); err != nil {
		return StepRecord{}, fmt.Errorf("store: decode step %d: %w", step, err)
	}
	return rec, nil
}

// LoadLatent reads candidate i of a complete step.
func (s *Store) LoadLatent(ctx context.Context, step, i int) (latent.Vector, error) {
	rec, err := s.LoadStep(ctx, step)
	if err != nil {
		return latent.Vector{}, err
	}
	if i < 0 || i >= rec.PopulationSize {
		return latent.Vector{}, fmt.Errorf("%w: candidate %d of step %d", ErrNotFound, i, step)
	}
	return s.readLatent(ctx, step, i)
}

func (s *Store) readLatent(ctx context.Context, step, i int) (latent.Vector, error) {
	data, err := blobstore.ReadAll(ctx, s.blobs, latentPath(s.ID(), step, i))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return latent.Vector{}, fmt.Errorf("%w: latent %d of step %d", ErrNotFound, i, step)
		}
		return latent.Vector{}, err
	}
	return latent.Decode(data)
}

// LoadPopulation reads every candidate latent of a complete step.
func (s *Store) LoadPopulation(ctx context.Context, step int) (latent.Population, error) {
	rec, err := s.LoadStep(ctx, step)
	if err != nil {
		return nil, err
	}

	pop := make(latent.Population, rec.PopulationSize)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rc.MaxParallelWrites())
	for i := range pop {
		g.Go(func() error {
			v, err := s.readLatent(gctx, step, i)
			if err != nil {
				return err
			}
			pop[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pop, nil
}

// LoadImage returns the rendered image of candidate i of a complete step.
func (s *Store) LoadImage(ctx context.Context, step, i int) ([]byte, error) {
	rec, err := s.LoadStep(ctx, step)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= rec.PopulationSize {
		return nil, fmt.Errorf("%w: candidate %d of step %d", ErrNotFound, i, step)
	}
	return blobstore.ReadAll(ctx, s.blobs, imagePath(s.ID(), step, i, rec.ImageExt))
}

// ImageName returns the blob name of a candidate image.
func (s *Store) ImageName(step, i int, ext string) string {
	return imagePath(s.ID(), step, i, ext)
}

// Steps returns the indices of all complete steps in ascending order.
func (s *Store) Steps(ctx context.Context) ([]int, error) {
	id := s.ID()
	if id == "" {
		return nil, nil
	}
	names, err := s.blobs.List(ctx, id+"/"+stepPrefix)
	if err != nil {
		return nil, err
	}
	var steps []int
	for _, name := range names {
		if n, ok := parseMarker(id, name); ok {
			steps = append(steps, n)
		}
	}
	sort.Ints(steps)
	return steps, nil
}

// LatestStep returns the marker of the highest complete step, or
// ErrNotFound for a session without steps.
func (s *Store) LatestStep(ctx context.Context) (StepRecord, error) {
	steps, err := s.Steps(ctx)
	if err != nil {
		return StepRecord{}, err
	}
	if len(steps) == 0 {
		return StepRecord{}, fmt.Errorf("%w: no complete step", ErrNotFound)
	}
	return s.LoadStep(ctx, steps[len(steps)-1])
}

// AppendSelection appends rec to the selection log and rewrites
// user_log.json in full. The in-memory log only changes when the write
// succeeds.
func (s *Store) AppendSelection(ctx context.Context, rec SelectionRecord) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	id, err := s.EnsureRoot(ctx)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.opts.now().UTC()
	}

	s.mu.RLock()
	next := append(slices.Clone(s.log), rec)
	s.mu.RUnlock()

	data, err := codec.MarshalPretty(s.opts.codec, next)
	if err != nil {
		return err
	}
	if err := s.put(ctx, logPath(id), data); err != nil {
		return err
	}

	s.mu.Lock()
	s.log = next
	s.mu.Unlock()
	return nil
}

// RecoverLog appends the selection records carried by complete step
// markers that are missing from the log, which happens when a process dies
// between committing a step and appending its record. It returns the number
// of records restored.
func (s *Store) RecoverLog(ctx context.Context) (int, error) {
	steps, err := s.Steps(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	have := make(map[int]struct{}, len(s.log))
	for _, rec := range s.log {
		have[rec.Step] = struct{}{}
	}
	s.mu.RUnlock()

	var missing []SelectionRecord
	for _, step := range steps {
		rec, err := s.LoadStep(ctx, step)
		if err != nil {
			return 0, err
		}
		if rec.Selection == nil {
			continue
		}
		if _, ok := have[rec.Selection.Step]; ok {
			continue
		}
		missing = append(missing, *rec.Selection)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer s.writer.Release(1)

	s.mu.RLock()
	next := append(slices.Clone(s.log), missing...)
	s.mu.RUnlock()
	sort.SliceStable(next, func(i, j int) bool { return next[i].Step < next[j].Step })

	data, err := codec.MarshalPretty(s.opts.codec, next)
	if err != nil {
		return 0, err
	}
	if err := s.put(ctx, logPath(s.ID()), data); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.log = next
	s.mu.Unlock()
	return len(missing), nil
}

// Selections returns a copy of the selection log.
func (s *Store) Selections() []SelectionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.log)
}
