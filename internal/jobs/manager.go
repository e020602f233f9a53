package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ticketlens/backend/internal/models"
	"github.com/ticketlens/backend/internal/service"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("job queue is full")
)

// SubmitRequest is the payload of one analysis job: a staged input file
// plus optional per-job provider overrides.
type SubmitRequest struct {
	FilePath string
	Provider string
	APIKey   string
}

// AnalyzeFunc runs the pipeline for one job. The progress callback
// receives (processed, total) as threads complete.
type AnalyzeFunc func(ctx context.Context, req SubmitRequest, progress func(current, total int)) (*models.AnalysisReport, error)

type task struct {
	id  string
	req SubmitRequest
}

// Manager owns the asynchronous job lifecycle. Submit registers a
// processing job and queues it; a small fixed pool of workers drains the
// queue, so at most that many analyses run concurrently. Each job moves
// to exactly one terminal status and stays there.
type Manager struct {
	store   Store
	analyze AnalyzeFunc
	tasks   chan task
	workers int
	logger  zerolog.Logger
}

func NewManager(store Store, analyze AnalyzeFunc, workers, queueSize int, logger zerolog.Logger) *Manager {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Manager{
		store:   store,
		analyze: analyze,
		tasks:   make(chan task, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled;
// queued jobs are abandoned at shutdown, matching the process-lifetime
// scope of the registry.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.workers; i++ {
		go m.worker(ctx)
	}
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.tasks:
			m.execute(ctx, t)
		}
	}
}

// Submit registers a new processing job and returns its id without
// waiting for execution.
func (m *Manager) Submit(req SubmitRequest) (string, error) {
	id := uuid.NewString()
	m.store.Create(models.Job{
		ID:        id,
		Status:    models.JobStatusProcessing,
		CreatedAt: time.Now().UTC(),
	})

	select {
	case m.tasks <- task{id: id, req: req}:
	default:
		m.store.Delete(id)
		return "", ErrQueueFull
	}

	m.logger.Info().Str("job_id", id).Msg("job submitted")
	return id, nil
}

// Poll returns a point-in-time snapshot of the job. A caller may observe
// "processing" flip to a terminal status between polls; that is the
// expected poll-until-terminal pattern, not an error.
func (m *Manager) Poll(id string) (models.Job, error) {
	job, ok := m.store.Get(id)
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return job, nil
}

// Cleanup removes the job record permanently.
func (m *Manager) Cleanup(id string) error {
	if !m.store.Delete(id) {
		return ErrJobNotFound
	}
	return nil
}

func (m *Manager) execute(ctx context.Context, t task) {
	defer func() {
		if t.req.FilePath != "" {
			if err := os.Remove(t.req.FilePath); err != nil && !os.IsNotExist(err) {
				m.logger.Warn().Err(err).Str("path", t.req.FilePath).Msg("failed to remove staged file")
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("job_id", t.id).Interface("panic", r).Msg("job panicked")
			m.finish(t.id, nil, fmt.Errorf("job panicked: %v", r))
		}
	}()

	progress := func(current, total int) {
		m.store.Update(t.id, func(j *models.Job) {
			j.CurrentTicket = current
			j.TotalTickets = total
			if total > 0 {
				j.ProgressPercentage = float64(current) / float64(total) * 100
			}
		})
	}

	result, err := m.analyze(ctx, t.req, progress)
	m.finish(t.id, result, err)
}

// finish performs the single terminal transition. A job already in a
// terminal state (or deleted mid-flight by Cleanup) is left untouched.
func (m *Manager) finish(id string, result *models.AnalysisReport, err error) {
	now := time.Now().UTC()
	m.store.Update(id, func(j *models.Job) {
		if j.Status != models.JobStatusProcessing {
			return
		}
		j.FinishedAt = &now
		if err != nil {
			j.Status = models.JobStatusError
			j.Error = err.Error()
			j.ErrorKind = errorKind(err)
			return
		}
		j.Status = models.JobStatusCompleted
		j.Result = result
	})

	if err != nil {
		m.logger.Error().Err(err).Str("job_id", id).Msg("job failed")
		return
	}
	m.logger.Info().Str("job_id", id).Msg("job completed")
}

func errorKind(err error) string {
	var schemaErr *service.SchemaError
	if errors.As(err, &schemaErr) {
		return "schema_error"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "execution_error"
}
