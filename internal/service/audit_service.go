package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/audit"
)

// AuditService provides async audit logging with a buffered channel and
// background worker. Evaluations are recorded without blocking the PDP
// evaluation hot path: Record only ever touches a channel send, never the
// store itself.
//
// Not every decision is equally disposable under load. A dropped Permit
// record is an observability gap; a dropped Deny or Indeterminate record
// is a compliance gap, since the audit trail is the only place a PEP or
// an auditor can later recover why access was refused (the "request
// more attributes and retry" loop depends on that Status surviving
// somewhere). AuditService therefore treats Deny/Indeterminate records
// as compliance-critical: they get a longer send-timeout before being
// dropped, a louder drop log, and they force an out-of-band flush of
// whatever batch they land in rather than waiting for it to fill.
type AuditService struct {
	store         audit.AuditStore
	auditChan     chan audit.AuditRecord
	done          chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	channelSize int           // capacity of auditChan, tracked for monitoring
	sendTimeout time.Duration // 0 = drop immediately, >0 = block up to this duration

	// priorityTimeout is the send-timeout applied to compliance-critical
	// (Deny/Indeterminate) records instead of sendTimeout; it is never
	// shorter than sendTimeout regardless of what's configured.
	priorityTimeout time.Duration

	dropCount         atomic.Int64 // total records dropped
	criticalDropCount atomic.Int64 // of which were compliance-critical

	warningThreshold int          // percent (0-100) of channelSize that triggers a depth warning
	lastWarning      atomic.Int64 // rate-limits warning logs (Unix nanos)

	// adaptiveFlushThreshold is the depth % that triggers faster ticker-driven
	// flushing, independent of the per-record critical-record flush above.
	adaptiveFlushThreshold int
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) {
		s.batchSize = size
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) {
		s.flushInterval = interval
	}
}

// WithChannelSize sets the size of the audit channel buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		s.auditChan = make(chan audit.AuditRecord, size)
		s.channelSize = size
	}
}

// WithSendTimeout sets the backpressure timeout applied to ordinary
// (Permit/NotApplicable) records.
// 0 = drop immediately (no blocking), >0 = block up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.sendTimeout = timeout
	}
}

// WithPriorityTimeout sets the backpressure timeout applied to
// compliance-critical (Deny/Indeterminate) records. Defaults to 5x the
// default send timeout (500ms); a value shorter than sendTimeout is
// raised to sendTimeout, so a denial's audit record survives a burst
// that would have dropped an ordinary Permit record.
func WithPriorityTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.priorityTimeout = timeout
	}
}

// WithWarningThreshold sets the channel depth warning percentage (0-100).
// A warning is logged when channel depth exceeds this percentage of capacity.
func WithWarningThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.warningThreshold = percent
	}
}

// WithAdaptiveFlushThreshold sets the channel depth % that triggers faster flushing.
// When channel depth exceeds this %, flush interval is reduced to 1/4 normal.
// Default is 80%. Set to 0 to disable adaptive flushing.
func WithAdaptiveFlushThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.adaptiveFlushThreshold = percent
	}
}

// NewAuditService creates a new AuditService with the given store and options.
func NewAuditService(store audit.AuditStore, logger *slog.Logger, opts ...AuditOption) *AuditService {
	const defaultChannelSize = 1000
	const defaultSendTimeout = 100 * time.Millisecond
	s := &AuditService{
		store:                  store,
		auditChan:              make(chan audit.AuditRecord, defaultChannelSize),
		done:                   make(chan struct{}),
		logger:                 logger,
		batchSize:              100,
		flushInterval:          time.Second,
		channelSize:            defaultChannelSize,
		sendTimeout:            defaultSendTimeout,
		priorityTimeout:        5 * defaultSendTimeout,
		warningThreshold:       80, // warn at 80% full
		adaptiveFlushThreshold: 80, // speed up flush at 80% full
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.priorityTimeout < s.sendTimeout {
		s.priorityTimeout = s.sendTimeout
	}

	return s
}

// Start begins the background worker that batches and writes audit records.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// isCompliancePriority reports whether record's decision makes it
// compliance-critical: a Deny or Indeterminate is the kind of outcome
// a PEP or auditor needs to be able to reconstruct later, unlike a
// routine Permit.
func isCompliancePriority(record audit.AuditRecord) bool {
	return record.Decision == audit.DecisionDeny || record.Decision == audit.DecisionIndeterminate
}

// Record sends an audit record to the background worker.
// Applies backpressure: attempts a fast non-blocking send, then blocks up
// to sendTimeout (or priorityTimeout for a Deny/Indeterminate record)
// before dropping it.
func (s *AuditService) Record(record audit.AuditRecord) {
	critical := isCompliancePriority(record)

	if s.warningThreshold > 0 {
		depth := len(s.auditChan)
		threshold := s.channelSize * s.warningThreshold / 100
		if depth >= threshold {
			s.warnChannelDepth(depth)
		}
	}

	select {
	case s.auditChan <- record:
		return
	default:
		// channel full, fall through to backpressure handling
	}

	timeout := s.sendTimeout
	if critical {
		timeout = s.priorityTimeout
	}

	if timeout <= 0 {
		s.recordDrop(record, critical)
		return
	}

	select {
	case s.auditChan <- record:
		return
	case <-time.After(timeout):
		s.recordDrop(record, critical)
	}
}

// recordDrop increments the drop counters and logs the drop. A
// compliance-critical drop is logged at Error level with the decision
// attached, since losing a Deny/Indeterminate record silently would
// defeat the audit trail's purpose.
func (s *AuditService) recordDrop(record audit.AuditRecord, critical bool) {
	drops := s.dropCount.Add(1)
	if critical {
		criticalDrops := s.criticalDropCount.Add(1)
		s.logger.Error("compliance-critical audit record dropped",
			"decision", record.Decision,
			"action", record.Action,
			"request_id", record.RequestID,
			"total_drops", drops,
			"total_critical_drops", criticalDrops,
		)
		return
	}
	s.logger.Warn("audit record dropped",
		"action", record.Action,
		"request_id", record.RequestID,
		"total_drops", drops,
	)
}

// warnChannelDepth logs warning about channel capacity (rate-limited to once per second).
func (s *AuditService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()

	if now-last < int64(time.Second) {
		return
	}

	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("audit channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns total dropped records (for metrics/alerting).
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// CriticalDroppedRecords returns the subset of dropped records that were
// compliance-critical (Deny/Indeterminate decisions).
func (s *AuditService) CriticalDroppedRecords() int64 {
	return s.criticalDropCount.Load()
}

// ChannelDepth returns current channel usage (for monitoring).
func (s *AuditService) ChannelDepth() int {
	return len(s.auditChan)
}

// ChannelCapacity returns channel buffer size (for percentage calculation).
func (s *AuditService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop and waits for it to finish.
// Pending records are flushed before returning.
func (s *AuditService) Stop() {
	close(s.auditChan)
	s.wg.Wait()
}

// worker is the background goroutine that collects and flushes audit records.
func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.AuditRecord, 0, s.batchSize)
	batchHasPriority := false
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	fastMode := false

	for {
		select {
		case record, ok := <-s.auditChan:
			if !ok {
				if len(batch) > 0 {
					flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
					s.flush(flushCtx, batch)
					flushCancel()
				}
				return
			}
			batch = append(batch, record)
			if isCompliancePriority(record) {
				batchHasPriority = true
			}

			// A Deny/Indeterminate record never waits out the rest of the
			// batch: flush as soon as one lands, regardless of batchSize.
			shouldFlush := len(batch) >= s.batchSize || batchHasPriority

			if !shouldFlush && s.adaptiveFlushThreshold > 0 && len(batch) > 0 {
				depth := len(s.auditChan)
				depthPercent := depth * 100 / s.channelSize
				if depthPercent >= s.adaptiveFlushThreshold {
					shouldFlush = true
				}
			}

			if shouldFlush {
				s.flush(ctx, batch)
				batch = batch[:0]
				batchHasPriority = false
			}

			if s.adaptiveFlushThreshold > 0 {
				depth := len(s.auditChan)
				depthPercent := depth * 100 / s.channelSize

				if depthPercent >= s.adaptiveFlushThreshold && !fastMode {
					ticker.Reset(s.flushInterval / 4)
					fastMode = true
					s.logger.Debug("audit adaptive flush: entering fast mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval/4,
					)
				} else if depthPercent < s.adaptiveFlushThreshold && fastMode {
					ticker.Reset(s.flushInterval)
					fastMode = false
					s.logger.Debug("audit adaptive flush: returning to normal mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval,
					)
				}
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
				batchHasPriority = false
			}

		case <-ctx.Done():
			for record := range s.auditChan {
				batch = append(batch, record)
			}
			if len(batch) > 0 {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.flush(flushCtx, batch)
				flushCancel()
			}
			return
		}
	}
}

// flush writes a batch of records to the store.
// Errors are logged but not propagated — a failed audit write must never
// turn into a failed policy evaluation; the PDP's decision already left
// the building by the time flush runs.
func (s *AuditService) flush(ctx context.Context, batch []audit.AuditRecord) {
	if err := s.store.Append(ctx, batch...); err != nil {
		s.logger.Error("failed to write audit batch",
			"error", err,
			"count", len(batch),
		)
	}
}
