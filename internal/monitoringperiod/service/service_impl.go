package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
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
	Repo        domain.Repository
	RecordsRepo recordsdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	recordsRepo recordsdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("monitoringperiod.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		recordsRepo: p.RecordsRepo,
	}
}

// Create opens a monitoring period. The facility row is locked while the overlap check runs so two
// concurrent requests cannot both claim the same days.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	facilityID, err := parseID(req.FacilityID)
	if err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, domain.ErrInvalidRange
	}
	start := truncateDay(req.StartDate)
	end := truncateDay(req.EndDate)
	if end.Before(start) {
		return nil, domain.ErrInvalidRange
	}

	now := s.clock.Now(ctx)
	period := &domain.MonitoringPeriod{
		ID:         s.genID.Generate().Int64(),
		FacilityID: facilityID,
		StartDate:  start,
		EndDate:    end,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		facility, err := s.recordsRepo.FindFacilityForUpdate(ctx, tx, facilityID)
		if err != nil {
			return err
		}
		if facility == nil {
			return domain.ErrFacilityNotFound
		}

		existing, err := s.repo.FindOverlapping(ctx, tx, facilityID, start, end)
		if err != nil {
			return err
		}
		if existing != nil {
			s.log.Info("rejected overlapping monitoring period",
				zap.Int64("facility_id", facilityID),
				zap.Int64("existing_period_id", existing.ID),
			)
			return domain.ErrOverlap
		}
		return s.repo.Insert(ctx, tx, period)
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.toResponse(period)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	periodID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	period, err := s.repo.FindByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	resp, err := s.toResponse(period)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) ListByFacility(ctx context.Context, facilityID string) ([]domain.Response, error) {
	id, err := parseID(facilityID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByFacility(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		resp, err := s.toResponse(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// toResponse renders a period for the API. Stored warnings that cannot be decoded fail the read.
func (s *Service) toResponse(p *domain.MonitoringPeriod) (domain.Response, error) {
	resp := domain.Response{
		ID:                      snowflake.ID(p.ID).String(),
		FacilityID:              snowflake.ID(p.FacilityID).String(),
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		CStoredTCO2e:            p.CStoredTCO2e,
		CBaselineTCO2e:          p.CBaselineTCO2e,
		CLossTCO2e:              p.CLossTCO2e,
		PersistenceFraction:     p.PersistenceFraction,
		EProjectTCO2e:           p.EProjectTCO2e,
		ELeakageTCO2e:           p.ELeakageTCO2e,
		NetCORCsTCO2e:           p.NetCORCsTCO2e,
		ProductionBatchCount:    p.ProductionBatchCount,
		SequestrationEventCount: p.SequestrationEventCount,
		MethodologyVersion:      p.MethodologyVersion,
		Warnings:                []methodology.Caveat{},
		CalculatedAt:            p.CalculatedAt,
		Version:                 p.Version,
		CreatedAt:               p.CreatedAt,
	}
	if len(p.Warnings) > 0 {
		if err := json.Unmarshal(p.Warnings, &resp.Warnings); err != nil {
			s.log.Error("failed to decode saved warnings",
				zap.Int64("monitoring_period_id", p.ID),
				zap.Error(err),
			)
			return domain.Response{}, fmt.Errorf("decode warnings of monitoring period %d: %w", p.ID, err)
		}
	}
	if p.CalculatedAt != nil && p.InputsChangedAt != nil {
		resp.Stale = p.InputsChangedAt.After(*p.CalculatedAt)
	}
	return resp, nil
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
