package recalc

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	qualitydomain "github.com/railzwaylabs/biochar/internal/quality/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ReasonBatchQuality = "batch_quality_changed"
	ReasonStaleSweep   = "stale_inputs"
	ReasonRequested    = "requested"
)

// QualityNotifier enqueues recalculation of every saved period covering a batch whose quality
// changed.
type QualityNotifier struct {
	db         *gorm.DB
	log        *zap.Logger
	queue      *Queue
	periodRepo perioddomain.Repository
}

func NewQualityNotifier(db *gorm.DB, log *zap.Logger, queue *Queue, periodRepo perioddomain.Repository) qualitydomain.ChangeNotifier {
	return &QualityNotifier{
		db:         db,
		log:        log.Named("recalc.notifier"),
		queue:      queue,
		periodRepo: periodRepo,
	}
}

func (n *QualityNotifier) BatchQualityChanged(ctx context.Context, facilityID int64, productionDate time.Time) {
	ctx = context.WithoutCancel(ctx)
	ids, err := n.periodRepo.ListSavedCovering(ctx, n.db, facilityID, productionDate)
	if err != nil {
		n.log.Warn("failed to find periods covering batch", zap.Int64("facility_id", facilityID), zap.Error(err))
		return
	}
	for _, id := range ids {
		if _, err := n.queue.Enqueue(ctx, Job{MonitoringPeriodID: id, Reason: ReasonBatchQuality}); err != nil {
			n.log.Warn("failed to enqueue recalculation",
				zap.Int64("monitoring_period_id", id),
				zap.Error(err),
			)
		}
	}
}

func formatID(id int64) string {
	return snowflake.ID(id).String()
}
