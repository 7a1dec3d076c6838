// Package jobs runs generation jobs end to end: it records the job, stores
// the input images, drains the model stream and records the outcome.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/media"
	"imagestudio/internal/providers/gemini"
	"imagestudio/internal/storage"
)

const (
	DefaultJobLimit   = 20
	MaxJobLimit       = 100
	DefaultAssetLimit = 50
	MaxAssetLimit     = 200

	// StaleJobMessage is recorded on jobs failed by FailStale.
	StaleJobMessage = "interrupted before completion"

	defaultTimeout = 5 * time.Minute
	eventTimeout   = 5 * time.Second
)

// ErrJobInProgress is returned when deleting a job that is still processing.
var ErrJobInProgress = errors.New("job is still processing")

// ErrJobNoLongerProcessing is returned when a job was moved to a terminal
// state, typically by the stale job sweeper, while its stream was running.
var ErrJobNoLongerProcessing = domain.Wrap(domain.ErrGeneration, errors.New("job is no longer processing"))

// AssetStore writes and removes image files.
type AssetStore interface {
	Store(ctx context.Context, data []byte, mimeType string, kind domain.AssetKind, prefix string) (storage.StoredFile, error)
	Remove(ctx context.Context, relPath string) error
}

// GeneratorFactory yields a model stream handle, or an error when no
// credential is available.
type GeneratorFactory interface {
	NewGenerator(ctx context.Context) (gemini.Generator, error)
}

// EventPublisher announces terminal job transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.JobEvent) error
}

// Deps wires a Service.
type Deps struct {
	Jobs       domain.JobRepository
	Assets     domain.AssetRepository
	Store      AssetStore
	Generators GeneratorFactory
	Events     EventPublisher
	Logger     infra.Logger
	// Timeout bounds a single generation stream.
	Timeout time.Duration
}

type Service struct {
	jobs       domain.JobRepository
	assets     domain.AssetRepository
	store      AssetStore
	generators GeneratorFactory
	events     EventPublisher
	consumer   *Consumer
	logger     infra.Logger
	timeout    time.Duration
	now        func() time.Time
}

func NewService(d Deps) *Service {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		jobs:       d.Jobs,
		assets:     d.Assets,
		store:      d.Store,
		generators: d.Generators,
		events:     d.Events,
		consumer:   NewConsumer(d.Logger),
		logger:     d.Logger,
		timeout:    timeout,
		now:        time.Now,
	}
}

// SubmitRequest is a prompt plus optional data URL encoded input images.
type SubmitRequest struct {
	Prompt string
	Images []string
}

// SubmitResult is the outcome of a submission. On failure it holds whatever
// outputs were persisted before the failure.
type SubmitResult struct {
	JobID   int64
	Outputs []OutputImage
	Text    string
}

// JobError is a failure recorded on an existing job.
type JobError struct {
	JobID int64
	Err   error
}

func (e *JobError) Error() string { return e.Err.Error() }
func (e *JobError) Unwrap() error { return e.Err }

// Submit runs one job synchronously. Once the job row exists every failure
// is written to it before Submit returns a *JobError.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	prompt := normalizePrompt(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrPromptRequired
	}

	job, err := s.jobs.Create(ctx, prompt)
	if err != nil {
		return nil, domain.Wrap(domain.ErrStorage, fmt.Errorf("create job: %w", err))
	}
	logger := s.logger.With().Int64("job_id", job.ID).Logger()
	logger.Info().Int("inputs", len(req.Images)).Msg("job started")

	inputs := make([]media.Payload, 0, len(req.Images))
	for idx, encoded := range req.Images {
		img, err := media.Decode(encoded)
		if err != nil {
			return nil, s.fail(ctx, job.ID, domain.Wrap(domain.ErrValidation, err), 0)
		}
		prefix := fmt.Sprintf("job%d_input%d", job.ID, idx)
		if _, err := s.persist(ctx, job.ID, domain.AssetKindInput, prefix, img); err != nil {
			return nil, s.fail(ctx, job.ID, err, 0)
		}
		inputs = append(inputs, img)
	}

	gen, err := s.generators.NewGenerator(ctx)
	if err != nil {
		return nil, s.fail(ctx, job.ID, domain.Wrap(domain.ErrCredential, err), 0)
	}

	streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	outputPrefix := fmt.Sprintf("job%d_output", job.ID)
	res, err := s.consumer.Run(streamCtx, gen, prompt, inputs, func(ctx context.Context, img media.Payload) (domain.ImageAsset, error) {
		// A received image is kept even if the deadline passes meanwhile.
		return s.persist(context.WithoutCancel(ctx), job.ID, domain.AssetKindOutput, outputPrefix, img)
	})
	result := &SubmitResult{JobID: job.ID, Outputs: res.Outputs, Text: res.Text}
	if err != nil {
		return result, s.fail(ctx, job.ID, err, len(res.Outputs))
	}

	updated, err := s.jobs.Complete(context.WithoutCancel(ctx), job.ID, res.Text)
	if err != nil {
		return result, s.fail(ctx, job.ID, domain.Wrap(domain.ErrStorage, fmt.Errorf("complete job: %w", err)), len(res.Outputs))
	}
	if !updated {
		// Whoever ended the job already recorded and announced it.
		logger.Warn().Int("outputs", len(res.Outputs)).Msg("job ended elsewhere before completion")
		return result, &JobError{JobID: job.ID, Err: ErrJobNoLongerProcessing}
	}
	logger.Info().Int("outputs", len(res.Outputs)).Int("text_len", len(res.Text)).Msg("job completed")
	s.publish(ctx, domain.JobEvent{JobID: job.ID, Status: domain.JobStatusCompleted, Outputs: len(res.Outputs)})
	return result, nil
}

func (s *Service) persist(ctx context.Context, jobID int64, kind domain.AssetKind, prefix string, img media.Payload) (domain.ImageAsset, error) {
	stored, err := s.store.Store(ctx, img.Data, img.MIMEType, kind, prefix)
	if err != nil {
		return domain.ImageAsset{}, domain.Wrap(domain.ErrStorage, fmt.Errorf("store %s image: %w", kind, err))
	}
	asset := &domain.ImageAsset{
		JobID:    jobID,
		Kind:     kind,
		FileName: stored.FileName,
		FilePath: stored.RelativePath,
		FileURL:  domain.FileURLFor(stored.RelativePath),
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), stored.RelativePath); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", stored.RelativePath).Msg("remove unrecorded file")
		}
		return domain.ImageAsset{}, domain.Wrap(domain.ErrStorage, fmt.Errorf("record %s image: %w", kind, err))
	}
	return *asset, nil
}

// fail records cause on the job and returns it as a *JobError.
func (s *Service) fail(ctx context.Context, jobID int64, cause error, outputs int) error {
	ctx = context.WithoutCancel(ctx)
	message := cause.Error()
	if _, err := s.jobs.Fail(ctx, jobID, message); err != nil {
		s.logger.Error().Err(err).Int64("job_id", jobID).Msg("record job failure")
	}
	s.logger.Warn().Err(cause).Int64("job_id", jobID).Int("outputs", outputs).Msg("job failed")
	s.publish(ctx, domain.JobEvent{JobID: jobID, Status: domain.JobStatusError, ErrorMessage: message, Outputs: outputs})
	return &JobError{JobID: jobID, Err: cause}
}

func (s *Service) publish(ctx context.Context, event domain.JobEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Int64("job_id", event.JobID).Msg("publish job event")
	}
}

// Get returns a job with its assets.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	assets, err := s.assets.ListByJobIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	job.Assets = nonNil(assets[id])
	return job, nil
}

// List returns the most recent jobs with their assets.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Job, error) {
	jobs, err := s.jobs.List(ctx, ClampLimit(limit, MaxJobLimit))
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []domain.Job{}, nil
	}
	ids := make([]int64, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].ID
	}
	assets, err := s.assets.ListByJobIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i].Assets = nonNil(assets[jobs[i].ID])
	}
	return jobs, nil
}

// ListAssets returns the newest assets, optionally filtered by kind. Unknown
// kinds are ignored.
func (s *Service) ListAssets(ctx context.Context, kind string, limit int) ([]domain.ImageAsset, error) {
	filter, _ := domain.ParseAssetKind(kind)
	assets, err := s.assets.List(ctx, filter, ClampLimit(limit, MaxAssetLimit))
	if err != nil {
		return nil, err
	}
	return nonNil(assets), nil
}

// DeleteAsset removes the record, then the file. File removal is best
// effort.
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, asset.FilePath)
	return nil
}

// DeleteJob removes a finished job, its asset records and their files.
func (s *Service) DeleteJob(ctx context.Context, id int64) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return ErrJobInProgress
	}
	if err := s.jobs.Delete(ctx, id); err != nil {
		return err
	}
	for _, asset := range job.Assets {
		s.removeFile(ctx, asset.FilePath)
	}
	return nil
}

// FailStale marks jobs that have been processing since before olderThan ago
// as failed. It returns the number of jobs affected.
func (s *Service) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	ids, err := s.jobs.FailStale(ctx, s.now().Add(-olderThan), StaleJobMessage)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.publish(ctx, domain.JobEvent{JobID: id, Status: domain.JobStatusError, ErrorMessage: StaleJobMessage})
	}
	return len(ids), nil
}

func (s *Service) removeFile(ctx context.Context, relPath string) {
	if err := s.store.Remove(ctx, relPath); err != nil {
		s.logger.Warn().Err(err).Str("path", relPath).Msg("remove asset file")
	}
}

// ClampLimit bounds limit to [1, upper].
func ClampLimit(limit, upper int) int {
	if limit < 1 {
		return 1
	}
	if limit > upper {
		return upper
	}
	return limit
}

func normalizePrompt(prompt string) string {
	return norm.NFC.String(strings.TrimSpace(prompt))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
