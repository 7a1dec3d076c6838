package jobs

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"imagestudio/internal/domain"
	"imagestudio/internal/media"
	"imagestudio/internal/providers/gemini"
	"imagestudio/internal/storage"
)

type memJobs struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*domain.Job
	lastLimit int
	failErr   error
	staleIDs  []int64
	staleAt   time.Time
}

func newMemJobs() *memJobs {
	return &memJobs{rows: map[int64]*domain.Job{}}
}

func (m *memJobs) Create(ctx context.Context, prompt string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now()
	job := &domain.Job{ID: m.nextID, Prompt: prompt, Status: domain.JobStatusProcessing, CreatedAt: now, UpdatedAt: now}
	m.rows[job.ID] = job
	copied := *job
	return &copied, nil
}

func (m *memJobs) transition(id int64, status domain.JobStatus, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	if status == domain.JobStatusCompleted {
		job.ResultText = &text
	} else {
		job.ErrorMessage = &text
	}
	return true, nil
}

func (m *memJobs) Complete(ctx context.Context, id int64, resultText string) (bool, error) {
	return m.transition(id, domain.JobStatusCompleted, resultText)
}

func (m *memJobs) Fail(ctx context.Context, id int64, message string) (bool, error) {
	if m.failErr != nil {
		return false, m.failErr
	}
	return m.transition(id, domain.JobStatusError, message)
}

func (m *memJobs) FailStale(ctx context.Context, before time.Time, message string) ([]int64, error) {
	m.staleAt = before
	for _, id := range m.staleIDs {
		if _, err := m.transition(id, domain.JobStatusError, message); err != nil {
			return nil, err
		}
	}
	return m.staleIDs, nil
}

func (m *memJobs) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memJobs) List(ctx context.Context, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	out := make([]domain.Job, 0, len(m.rows))
	for _, job := range m.rows {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobs) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memAssets struct {
	mu         sync.Mutex
	nextID     int64
	rows       []domain.ImageAsset
	createErr  error
	lastKind   domain.AssetKind
	lastLimit  int
	failOnKind domain.AssetKind
}

func (m *memAssets) Create(ctx context.Context, asset *domain.ImageAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil && (m.failOnKind == "" || m.failOnKind == asset.Kind) {
		return m.createErr
	}
	m.nextID++
	asset.ID = m.nextID
	asset.CreatedAt = time.Now()
	m.rows = append(m.rows, *asset)
	return nil
}

func (m *memAssets) GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			copied := a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAssets) ListByJobIDs(ctx context.Context, jobIDs []int64) (map[int64][]domain.ImageAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range jobIDs {
		want[id] = true
	}
	out := map[int64][]domain.ImageAsset{}
	for _, a := range m.rows {
		if want[a.JobID] {
			out[a.JobID] = append(out[a.JobID], a)
		}
	}
	return out, nil
}

func (m *memAssets) List(ctx context.Context, kind domain.AssetKind, limit int) ([]domain.ImageAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKind, m.lastLimit = kind, limit
	var out []domain.ImageAsset
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if kind == "" || m.rows[i].Kind == kind {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memAssets) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.rows {
		if a.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memAssets) byKind(jobID int64, kind domain.AssetKind) []domain.ImageAsset {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ImageAsset
	for _, a := range m.rows {
		if a.JobID == jobID && a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

type memStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	seq      int
	storeErr error
	removed  []string
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Store(ctx context.Context, data []byte, mimeType string, kind domain.AssetKind, prefix string) (storage.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return storage.StoredFile{}, m.storeErr
	}
	m.seq++
	dir := "uploads"
	if kind == domain.AssetKindOutput {
		dir = "outputs"
	}
	name := fmt.Sprintf("%s_%04d%s", prefix, m.seq, media.ExtensionFor(mimeType))
	rel := dir + "/" + name
	m.files[rel] = append([]byte(nil), data...)
	return storage.StoredFile{FileName: name, RelativePath: rel}, nil
}

func (m *memStore) Remove(ctx context.Context, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, relPath)
	delete(m.files, relPath)
	return nil
}

// step is one element yielded by a scripted generator.
type step struct {
	chunk gemini.Chunk
	err   error
	// block waits for ctx cancellation and yields its error.
	block bool
	// before runs ahead of the step.
	before func()
}

type scriptedGenerator struct {
	steps        []step
	gotPrompt    string
	gotInputs    []media.Payload
	stoppedEarly bool
}

func (g *scriptedGenerator) Stream(ctx context.Context, prompt string, inputs []media.Payload) iter.Seq2[gemini.Chunk, error] {
	g.gotPrompt, g.gotInputs = prompt, inputs
	return func(yield func(gemini.Chunk, error) bool) {
		for _, s := range g.steps {
			if s.before != nil {
				s.before()
			}
			if s.block {
				<-ctx.Done()
				yield(gemini.Chunk{}, ctx.Err())
				return
			}
			if !yield(s.chunk, s.err) {
				g.stoppedEarly = true
				return
			}
			if s.err != nil {
				return
			}
		}
	}
}

type stubFactory struct {
	gen   gemini.Generator
	err   error
	calls int
}

func (f *stubFactory) NewGenerator(ctx context.Context) (gemini.Generator, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.gen, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.JobEvent
	err    error
}

func (r *recordingEvents) Publish(ctx context.Context, event domain.JobEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

var errBoom = errors.New("boom")

func textChunk(s string) step { return step{chunk: gemini.Chunk{Text: s}} }

func imageChunk(mimeType string, data ...byte) step {
	return step{chunk: gemini.Chunk{MIMEType: mimeType, Data: data}}
}
