package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/repositories"
)

// historyPersister writes saved history in the background so query transitions
// never wait on storage. Only the latest pending write is kept.
type historyPersister struct {
	repo        repositories.QueryHistoryRepository
	dashboardID string
	timeout     time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	pending *pendingWrite
	signal  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type pendingWrite struct {
	items  []models.QueryHistoryItem
	delete bool
}

func newHistoryPersister(repo repositories.QueryHistoryRepository, dashboardID string, timeout time.Duration, logger *zap.Logger) *historyPersister {
	ctx, cancel := context.WithCancel(context.Background())
	p := &historyPersister{
		repo:        repo,
		dashboardID: dashboardID,
		timeout:     timeout,
		logger:      logger,
		signal:      make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *historyPersister) save(items []models.QueryHistoryItem) {
	p.enqueue(&pendingWrite{items: append([]models.QueryHistoryItem{}, items...)})
}

func (p *historyPersister) remove() {
	p.enqueue(&pendingWrite{delete: true})
}

func (p *historyPersister) enqueue(w *pendingWrite) {
	p.mu.Lock()
	p.pending = w
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *historyPersister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.signal:
			p.flush()
		case <-p.ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *historyPersister) flush() {
	p.mu.Lock()
	w := p.pending
	p.pending = nil
	p.mu.Unlock()

	if w == nil {
		return
	}

	// Writes outlive the persister's own cancellation so the final flush completes.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var err error
	if w.delete {
		err = p.repo.Delete(ctx, p.dashboardID)
	} else {
		err = p.repo.Save(ctx, p.dashboardID, w.items)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("Failed to persist query history",
			zap.String("dashboard_id", p.dashboardID),
			zap.Bool("delete", w.delete),
			zap.String("error", logging.SanitizeError(err)))
	}
}

// close flushes the last pending write and stops the worker.
func (p *historyPersister) close() {
	p.cancel()
	<-p.done
}
