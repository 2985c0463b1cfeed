package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/quality/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Methodology *methodology.Holder
	Repo        domain.Repository
	RecordsRepo recordsdomain.Repository
	PeriodRepo  perioddomain.Repository
	Notifier    domain.ChangeNotifier `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	methodology *methodology.Holder
	repo        domain.Repository
	recordsRepo recordsdomain.Repository
	periodRepo  perioddomain.Repository
	notifier    domain.ChangeNotifier
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("quality.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		methodology: p.Methodology,
		repo:        p.Repo,
		recordsRepo: p.RecordsRepo,
		periodRepo:  p.PeriodRepo,
		notifier:    p.Notifier,
	}
}

// RecordLabTest stores a measurement and re-derives the batch's quality from whichever test is now
// authoritative. A test with zero organic carbon is kept with an undefined ratio and fails the
// threshold.
func (s *Service) RecordLabTest(ctx context.Context, req domain.RecordRequest) (*domain.Response, error) {
	batchID, err := parseID(req.BatchID)
	if err != nil {
		return nil, domain.ErrInvalidBatch
	}
	if req.TestDate.IsZero() {
		return nil, domain.ErrInvalidTestDate
	}

	eval, err := domain.Evaluate(s.methodology.Current(), req.TotalCarbonPercent, req.InorganicCarbonPercent, req.HydrogenPercent)
	if err != nil && !errors.Is(err, domain.ErrUndefinedHCorg) {
		return nil, err
	}

	now := s.clock.Now(ctx)
	test := &domain.LabTest{
		ID:                     s.genID.Generate().Int64(),
		BatchID:                batchID,
		TestDate:               truncateDay(req.TestDate),
		LabName:                trimmedPtr(req.LabName),
		TotalCarbonPercent:     req.TotalCarbonPercent,
		InorganicCarbonPercent: req.InorganicCarbonPercent,
		HydrogenPercent:        req.HydrogenPercent,
		OrganicCarbonPercent:   eval.OrganicCarbonPercent,
		HCorgRatio:             eval.HCorgRatio,
		PassesQualityThreshold: eval.PassesQualityThreshold,
		CreatedAt:              now,
	}

	var batch *recordsdomain.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err = s.recordsRepo.FindBatchForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound
		}
		if err := s.repo.Insert(ctx, tx, test); err != nil {
			return err
		}
		return s.refreshBatchQuality(ctx, tx, batch, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("lab test recorded",
		zap.Int64("lab_test_id", test.ID),
		zap.Int64("batch_id", batchID),
		zap.Bool("passes_quality_threshold", test.PassesQualityThreshold),
	)
	s.notify(ctx, batch)

	resp := toResponse(test, batch.QualityTestID != nil && *batch.QualityTestID == test.ID)
	return &resp, nil
}

func (s *Service) DeleteLabTest(ctx context.Context, id string) error {
	testID, err := parseID(id)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	var batch *recordsdomain.ProductionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		test, err := s.repo.FindByID(ctx, tx, testID)
		if err != nil {
			return err
		}
		if test == nil {
			return domain.ErrNotFound
		}
		batch, err = s.recordsRepo.FindBatchForUpdate(ctx, tx, test.BatchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound
		}
		if err := s.repo.Delete(ctx, tx, testID); err != nil {
			return err
		}
		return s.refreshBatchQuality(ctx, tx, batch, now)
	})
	if err != nil {
		return err
	}

	s.log.Info("lab test deleted", zap.Int64("lab_test_id", testID), zap.Int64("batch_id", batch.ID))
	s.notify(ctx, batch)
	return nil
}

func (s *Service) ListByBatch(ctx context.Context, batchID string) ([]domain.Response, error) {
	id, err := parseID(batchID)
	if err != nil {
		return nil, domain.ErrInvalidBatch
	}
	items, err := s.repo.ListByBatch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i], i == 0))
	}
	return out, nil
}

// refreshBatchQuality copies the authoritative test onto the batch, or resets the batch to pending
// when no test remains. Saved periods covering the batch are flagged stale in the same transaction.
func (s *Service) refreshBatchQuality(ctx context.Context, tx *gorm.DB, batch *recordsdomain.ProductionBatch, now time.Time) error {
	latest, err := s.repo.FindLatestForBatch(ctx, tx, batch.ID)
	if err != nil {
		return err
	}

	if latest == nil {
		batch.OrganicCarbonPercent = nil
		batch.HydrogenPercent = nil
		batch.HCorgRatio = nil
		batch.QualityTestID = nil
		batch.QualityStatus = string(recordsdomain.QualityStatusPending)
	} else {
		corg, hydrogen := latest.OrganicCarbonPercent, latest.HydrogenPercent
		testID := latest.ID
		batch.OrganicCarbonPercent = &corg
		batch.HydrogenPercent = &hydrogen
		batch.HCorgRatio = latest.HCorgRatio
		batch.QualityTestID = &testID
		batch.QualityStatus = string(recordsdomain.QualityStatusFailed)
		if latest.PassesQualityThreshold {
			batch.QualityStatus = string(recordsdomain.QualityStatusPassed)
		}
	}
	batch.UpdatedAt = now

	if err := s.recordsRepo.UpdateBatchQuality(ctx, tx, batch); err != nil {
		return err
	}
	return s.periodRepo.MarkInputsChanged(ctx, tx, batch.FacilityID, batch.ProductionDate, batch.ProductionDate, now)
}

func (s *Service) notify(ctx context.Context, batch *recordsdomain.ProductionBatch) {
	if s.notifier == nil || batch == nil {
		return
	}
	s.notifier.BatchQualityChanged(ctx, batch.FacilityID, batch.ProductionDate)
}

func toResponse(t *domain.LabTest, authoritative bool) domain.Response {
	return domain.Response{
		ID:                     snowflake.ID(t.ID).String(),
		BatchID:                snowflake.ID(t.BatchID).String(),
		TestDate:               t.TestDate,
		LabName:                t.LabName,
		TotalCarbonPercent:     t.TotalCarbonPercent,
		InorganicCarbonPercent: t.InorganicCarbonPercent,
		HydrogenPercent:        t.HydrogenPercent,
		OrganicCarbonPercent:   t.OrganicCarbonPercent,
		HCorgRatio:             t.HCorgRatio,
		PassesQualityThreshold: t.PassesQualityThreshold,
		Authoritative:          authoritative,
		CreatedAt:              t.CreatedAt,
	}
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
