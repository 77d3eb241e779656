package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// ErrSuperseded is the outcome of a submission discarded by a newer one.
var ErrSuperseded = errors.New("query superseded by a newer submission")

// Defaults for the simulated query processor.
const (
	DefaultSimulatedDelay     = 1500 * time.Millisecond
	DefaultFailureProbability = 0.1
	DefaultHistoryLimit       = 10
)

// QueryEvent names the transition that produced a state.
type QueryEvent string

const (
	QueryEventSubmitted      QueryEvent = "submitted"
	QueryEventSucceeded      QueryEvent = "succeeded"
	QueryEventFailed         QueryEvent = "failed"
	QueryEventResultsCleared QueryEvent = "results_cleared"
	QueryEventHistoryCleared QueryEvent = "history_cleared"
	QueryEventRestored       QueryEvent = "restored"
)

// QueryObserver is called after every transition with a copy of the new state.
// Calls are serialized in transition order. An observer may read State but must
// not call mutating methods of the same service.
type QueryObserver func(event QueryEvent, state models.QueriesState)

// QueryService owns the query slice: submission lifecycle, current result, bounded history.
type QueryService interface {
	// Submit enters Loading synchronously and resolves after the simulated delay.
	Submit(text string) (*Submission, error)
	// ClearResults drops the current result and error. History and loading are untouched.
	ClearResults()
	// ClearHistory empties history. Result, error and loading are untouched.
	ClearHistory()
	// RestoreHistory replaces history with previously saved items, capped at the limit.
	RestoreHistory(items []models.QueryHistoryItem)
	// State returns a copy of the slice.
	State() models.QueriesState
	// Close abandons pending resolutions and waits for their goroutines to exit.
	Close()
}

// QueryServiceConfig configures a QueryService. Zero values take the defaults.
type QueryServiceConfig struct {
	SimulatedDelay time.Duration
	HistoryLimit   int
	Policy         SubmissionPolicy
	Failure        FailurePolicy
	Clock          Clock
	Observer       QueryObserver
	// NewID generates history item ids. Defaults to time-ordered UUIDv7 strings.
	NewID func() string
}

// Submission is the handle of one submitted query.
type Submission struct {
	Text string

	done      chan struct{}
	cancel    chan struct{}
	cancelled bool // guarded by queryService.mu
	result    *models.QueryResult
	err       error
}

// Done is closed once the submission has resolved, failed, or been discarded.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the derived result, or the error that replaced it.
// Only meaningful after Done is closed.
func (s *Submission) Outcome() (*models.QueryResult, error) {
	return s.result.Clone(), s.err
}

// Wait blocks until the submission settles or ctx is done.
func (s *Submission) Wait(ctx context.Context) (*models.QueryResult, error) {
	select {
	case <-s.done:
		return s.Outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Submission) finish(result *models.QueryResult, err error) {
	s.result = result
	s.err = err
	close(s.done)
}

type queryService struct {
	delay    time.Duration
	limit    int
	policy   SubmissionPolicy
	failure  FailurePolicy
	clock    Clock
	observer QueryObserver
	newID    func() string
	logger   *zap.Logger

	// notifyMu orders observer calls; it is always taken before mu.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    models.QueriesState
	pending  map[*Submission]struct{}
	closed   bool

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueryService creates the query slice in its Idle state.
func NewQueryService(cfg QueryServiceConfig, logger *zap.Logger) QueryService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.NewID == nil {
		cfg.NewID = newHistoryID
	}
	return &queryService{
		delay:    cfg.SimulatedDelay,
		limit:    cfg.HistoryLimit,
		policy:   cfg.Policy,
		failure:  cfg.Failure,
		clock:    cfg.Clock,
		observer: cfg.Observer,
		newID:    cfg.NewID,
		logger:   logger.Named("query-service"),
		state:    models.QueriesState{History: []models.QueryHistoryItem{}},
		pending:  make(map[*Submission]struct{}),
		closing:  make(chan struct{}),
	}
}

var _ QueryService = (*queryService)(nil)

func newHistoryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *queryService) Submit(text string) (*Submission, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.ErrClosed
	}
	if s.policy == PolicyReject && len(s.pending) > 0 {
		s.mu.Unlock()
		s.logger.Debug("Rejected query while another is pending",
			zap.String("query", logging.TruncateQuery(text)))
		return nil, apperrors.ErrQueryPending
	}
	if s.policy == PolicySupersede {
		// Cancelled submissions leave pending at once so a later Submit never
		// closes their channel again.
		for prev := range s.pending {
			prev.cancelled = true
			close(prev.cancel)
			delete(s.pending, prev)
		}
	}

	sub := &Submission{
		Text:   text,
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
	s.pending[sub] = struct{}{}

	s.state.IsLoading = true
	s.state.LastError = nil
	s.state.CurrentQueryText = &sub.Text
	snapshot := s.state.Clone()

	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("Query submitted",
		zap.String("query", logging.TruncateQuery(text)),
		zap.Stringer("policy", s.policy))

	go s.resolve(sub)
	s.notify(QueryEventSubmitted, snapshot)
	return sub, nil
}

func (s *queryService) resolve(sub *Submission) {
	defer s.wg.Done()

	select {
	case <-s.clock.After(s.delay):
	case <-sub.cancel:
		s.discard(sub, ErrSuperseded)
		return
	case <-s.closing:
		s.discard(sub, apperrors.ErrClosed)
		return
	}

	// The result is derived first; the failure draw may then discard it.
	result := ClassifyQuery(sub.Text)
	failed := s.failure.ShouldFail()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	delete(s.pending, sub)
	if sub.cancelled {
		s.mu.Unlock()
		sub.finish(nil, ErrSuperseded)
		return
	}

	s.state.IsLoading = false
	event := QueryEventSucceeded
	if failed {
		msg := apperrors.QueryProcessingMessage
		s.state.LastError = &msg
		event = QueryEventFailed
	} else {
		s.state.CurrentResult = result
		item := models.QueryHistoryItem{
			ID:        s.newID(),
			Text:      sub.Text,
			Timestamp: s.clock.Now().UnixMilli(),
		}
		s.state.History = models.PrependCapped(s.state.History, item, s.limit)
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if failed {
		s.logger.Warn("Query processing failed",
			zap.String("query", logging.TruncateQuery(sub.Text)))
		sub.finish(nil, apperrors.ErrQueryProcessing)
	} else {
		s.logger.Info("Query processed",
			zap.String("query", logging.TruncateQuery(sub.Text)),
			zap.String("chart_type", string(result.ChartType)),
			zap.Int("history_len", len(snapshot.History)))
		sub.finish(result.Clone(), nil)
	}
	s.notify(event, snapshot)
}

// discard settles a submission that never reached resolution.
func (s *queryService) discard(sub *Submission, err error) {
	s.mu.Lock()
	delete(s.pending, sub)
	s.mu.Unlock()
	sub.finish(nil, err)
}

func (s *queryService) ClearResults() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state.CurrentResult = nil
	s.state.LastError = nil
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.notify(QueryEventResultsCleared, snapshot)
}

func (s *queryService) ClearHistory() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state.History = []models.QueryHistoryItem{}
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.logger.Debug("Query history cleared")
	s.notify(QueryEventHistoryCleared, snapshot)
}

func (s *queryService) RestoreHistory(items []models.QueryHistoryItem) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	restored := append([]models.QueryHistoryItem{}, items...)
	if len(restored) > s.limit {
		restored = restored[:s.limit]
	}

	s.mu.Lock()
	s.state.History = restored
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.notify(QueryEventRestored, snapshot)
}

func (s *queryService) State() models.QueriesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *queryService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.closing)
	})
	s.wg.Wait()
}

func (s *queryService) notify(event QueryEvent, state models.QueriesState) {
	if s.observer != nil {
		s.observer(event, state)
	}
}
