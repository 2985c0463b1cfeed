package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/records/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	PeriodRepo perioddomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	periodRepo perioddomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("records.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		periodRepo: p.PeriodRepo,
	}
}

func (s *Service) CreateFacility(ctx context.Context, req domain.CreateFacilityRequest) (*domain.FacilityResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	scenario, err := methodology.ParseBaselineScenario(req.BaselineScenario)
	if err != nil {
		return nil, err
	}
	if req.BaselineStorageTCO2e < 0 || req.EmbodiedEmissionsTCO2e < 0 || req.InfrastructureLifetimeYears < 0 {
		return nil, domain.ErrInvalidBaselineStorage
	}

	now := s.clock.Now(ctx)
	f := &domain.Facility{
		ID:                          s.genID.Generate().Int64(),
		Code:                        code,
		Name:                        name,
		BaselineScenario:            string(scenario),
		BaselineStorageTCO2e:        req.BaselineStorageTCO2e,
		EmbodiedEmissionsTCO2e:      req.EmbodiedEmissionsTCO2e,
		InfrastructureLifetimeYears: req.InfrastructureLifetimeYears,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	if err := s.repo.InsertFacility(ctx, s.db, f); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateFacilityCode
		}
		return nil, err
	}
	resp := toFacilityResponse(f)
	return &resp, nil
}

func (s *Service) GetFacility(ctx context.Context, id string) (*domain.FacilityResponse, error) {
	facilityID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	f, err := s.repo.FindFacility(ctx, s.db, facilityID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrFacilityNotFound
	}
	resp := toFacilityResponse(f)
	return &resp, nil
}

func (s *Service) CreateBatch(ctx context.Context, req domain.CreateBatchRequest) (*domain.BatchResponse, error) {
	facilityID, err := parseID(req.FacilityID)
	if err != nil {
		return nil, err
	}
	if req.ProductionDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	status := domain.BatchStatus(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.BatchStatusComplete
	}
	if status != domain.BatchStatusComplete && status != domain.BatchStatusInProgress {
		return nil, domain.ErrInvalidStatus
	}
	if negative(req.FeedstockInputTonnes, req.BiocharOutputTonnes, req.StackCH4Kg, req.StackN2OKg) {
		return nil, domain.ErrInvalidQuantity
	}
	if req.DryMassTonnes != nil && negative(*req.DryMassTonnes) {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now(ctx)
	b := &domain.ProductionBatch{
		ID:                   s.genID.Generate().Int64(),
		FacilityID:           facilityID,
		BatchCode:            strings.TrimSpace(req.BatchCode),
		ProductionDate:       truncateDay(req.ProductionDate),
		Status:               string(status),
		FeedstockInputTonnes: req.FeedstockInputTonnes,
		BiocharOutputTonnes:  req.BiocharOutputTonnes,
		DryMassTonnes:        req.DryMassTonnes,
		PeakTemperatureC:     req.PeakTemperatureC,
		ResidenceTimeMinutes: req.ResidenceTimeMinutes,
		StackCH4Kg:           req.StackCH4Kg,
		StackN2OKg:           req.StackN2OKg,
		QualityStatus:        string(domain.QualityStatusPending),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if b.BatchCode == "" {
		b.BatchCode = snowflake.ID(b.ID).String()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireFacility(ctx, tx, facilityID); err != nil {
			return err
		}
		if err := s.repo.InsertBatch(ctx, tx, b); err != nil {
			return err
		}
		return s.periodRepo.MarkInputsChanged(ctx, tx, facilityID, b.ProductionDate, b.ProductionDate, now)
	})
	if err != nil {
		return nil, err
	}

	resp := toBatchResponse(b)
	return &resp, nil
}

func (s *Service) GetBatch(ctx context.Context, id string) (*domain.BatchResponse, error) {
	batchID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.FindBatch(ctx, s.db, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrBatchNotFound
	}
	resp := toBatchResponse(b)
	return &resp, nil
}

func (s *Service) CreateDelivery(ctx context.Context, req domain.CreateDeliveryRequest) (*domain.FeedstockDelivery, error) {
	facilityID, err := parseID(req.FacilityID)
	if err != nil {
		return nil, err
	}
	if req.DeliveryDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if req.MassTonnes <= 0 || negative(req.TransportDistanceKm) {
		return nil, domain.ErrInvalidQuantity
	}

	d := &domain.FeedstockDelivery{
		ID:                  s.genID.Generate().Int64(),
		FacilityID:          facilityID,
		DeliveryDate:        truncateDay(req.DeliveryDate),
		FeedstockType:       strings.TrimSpace(req.FeedstockType),
		MassTonnes:          req.MassTonnes,
		TransportDistanceKm: req.TransportDistanceKm,
		CreatedAt:           s.clock.Now(ctx),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireFacility(ctx, tx, facilityID); err != nil {
			return err
		}
		return s.repo.InsertDelivery(ctx, tx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateAllocation assigns part of a delivery to a batch. The delivery row is locked so concurrent
// allocations cannot push it past 100%.
func (s *Service) CreateAllocation(ctx context.Context, req domain.CreateAllocationRequest) (*domain.FeedstockAllocation, error) {
	deliveryID, err := parseID(req.DeliveryID)
	if err != nil {
		return nil, err
	}
	batchID, err := parseID(req.BatchID)
	if err != nil {
		return nil, err
	}
	if req.Percentage <= 0 || req.Percentage > 100 {
		return nil, domain.ErrInvalidPercentage
	}

	var out *domain.FeedstockAllocation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.repo.FindDeliveryForUpdate(ctx, tx, deliveryID)
		if err != nil {
			return err
		}
		if delivery == nil {
			return domain.ErrDeliveryNotFound
		}
		batch, err := s.repo.FindBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound
		}
		if batch.FacilityID != delivery.FacilityID {
			return domain.ErrFacilityMismatch
		}

		allocated, err := s.repo.SumAllocatedPercentage(ctx, tx, deliveryID)
		if err != nil {
			return err
		}
		if allocated+req.Percentage > 100+1e-9 {
			return domain.ErrOverAllocated
		}

		now := s.clock.Now(ctx)
		out = &domain.FeedstockAllocation{
			ID:               s.genID.Generate().Int64(),
			DeliveryID:       deliveryID,
			BatchID:          batchID,
			Percentage:       req.Percentage,
			WeightUsedTonnes: delivery.MassTonnes * req.Percentage / 100,
			DistanceKm:       delivery.TransportDistanceKm,
			CreatedAt:        now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, out); err != nil {
			return err
		}
		return s.periodRepo.MarkInputsChanged(ctx, tx, batch.FacilityID, batch.ProductionDate, batch.ProductionDate, now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateEnergyUsage(ctx context.Context, req domain.CreateEnergyUsageRequest) (*domain.EnergyUsage, error) {
	facilityID, err := parseID(req.FacilityID)
	if err != nil {
		return nil, err
	}
	scope := domain.EnergyScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if scope != domain.EnergyScopeProduction && scope != domain.EnergyScopeOther {
		return nil, domain.ErrInvalidScope
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return nil, domain.ErrInvalidDate
	}
	if negative(req.Quantity) {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now(ctx)
	u := &domain.EnergyUsage{
		ID:          s.genID.Generate().Int64(),
		FacilityID:  facilityID,
		Scope:       string(scope),
		EnergyType:  strings.ToLower(strings.TrimSpace(req.EnergyType)),
		Quantity:    req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		PeriodStart: truncateDay(req.PeriodStart),
		PeriodEnd:   truncateDay(req.PeriodEnd),
		CreatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireFacility(ctx, tx, facilityID); err != nil {
			return err
		}
		from, to := u.PeriodStart, u.PeriodEnd
		if req.BatchID != nil && strings.TrimSpace(*req.BatchID) != "" {
			batchID, err := parseID(*req.BatchID)
			if err != nil {
				return err
			}
			batch, err := s.repo.FindBatch(ctx, tx, batchID)
			if err != nil {
				return err
			}
			if batch == nil {
				return domain.ErrBatchNotFound
			}
			if batch.FacilityID != facilityID {
				return domain.ErrFacilityMismatch
			}
			u.BatchID = &batchID
			from, to = batch.ProductionDate, batch.ProductionDate
		}
		if err := s.repo.InsertEnergyUsage(ctx, tx, u); err != nil {
			return err
		}
		return s.periodRepo.MarkInputsChanged(ctx, tx, facilityID, from, to, now)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) CreateSequestrationEvent(ctx context.Context, req domain.CreateSequestrationEventRequest) (*domain.SequestrationEvent, error) {
	batchID, err := parseID(req.BatchID)
	if err != nil {
		return nil, err
	}
	if req.EventDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if req.MassTonnes <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if req.TransportDistanceKm != nil && negative(*req.TransportDistanceKm) {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now(ctx)
	e := &domain.SequestrationEvent{
		ID:                  s.genID.Generate().Int64(),
		BatchID:             batchID,
		EventDate:           truncateDay(req.EventDate),
		MassTonnes:          req.MassTonnes,
		Destination:         strings.TrimSpace(req.Destination),
		Method:              strings.TrimSpace(req.Method),
		SoilTemperatureC:    req.SoilTemperatureC,
		TransportDistanceKm: req.TransportDistanceKm,
		CreatedAt:           now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.repo.FindBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrBatchNotFound
		}
		e.FacilityID = batch.FacilityID
		if err := s.repo.InsertSequestrationEvent(ctx, tx, e); err != nil {
			return err
		}
		// The event feeds the period it happens in and the loss term of the period that produced the batch.
		if err := s.periodRepo.MarkInputsChanged(ctx, tx, batch.FacilityID, e.EventDate, e.EventDate, now); err != nil {
			return err
		}
		return s.periodRepo.MarkInputsChanged(ctx, tx, batch.FacilityID, batch.ProductionDate, batch.ProductionDate, now)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CreateLeakageAssessment(ctx context.Context, req domain.CreateLeakageAssessmentRequest) (*domain.LeakageAssessment, error) {
	facilityID, err := parseID(req.FacilityID)
	if err != nil {
		return nil, err
	}
	if req.AssessmentDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if negative(req.EcologicalFacilityTCO2e, req.EcologicalSourcingTCO2e, req.MarketAFOLUTCO2e, req.MarketEnergyMaterialTCO2e, req.ILUCTCO2e) {
		return nil, domain.ErrInvalidQuantity
	}

	now := s.clock.Now(ctx)
	a := &domain.LeakageAssessment{
		ID:                        s.genID.Generate().Int64(),
		FacilityID:                facilityID,
		AssessmentDate:            truncateDay(req.AssessmentDate),
		EcologicalFacilityTCO2e:   req.EcologicalFacilityTCO2e,
		EcologicalSourcingTCO2e:   req.EcologicalSourcingTCO2e,
		MarketAFOLUTCO2e:          req.MarketAFOLUTCO2e,
		MarketEnergyMaterialTCO2e: req.MarketEnergyMaterialTCO2e,
		ILUCTCO2e:                 req.ILUCTCO2e,
		CreatedAt:                 now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireFacility(ctx, tx, facilityID); err != nil {
			return err
		}
		if err := s.repo.InsertLeakageAssessment(ctx, tx, a); err != nil {
			return err
		}
		// Every period ending on or after the assessment may now resolve to it.
		return s.periodRepo.MarkInputsChanged(ctx, tx, facilityID, a.AssessmentDate, farFuture, now)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func (s *Service) requireFacility(ctx context.Context, tx *gorm.DB, id int64) error {
	f, err := s.repo.FindFacility(ctx, tx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return domain.ErrFacilityNotFound
	}
	return nil
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func negative(values ...float64) bool {
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toFacilityResponse(f *domain.Facility) domain.FacilityResponse {
	return domain.FacilityResponse{
		ID:                          snowflake.ID(f.ID).String(),
		Code:                        f.Code,
		Name:                        f.Name,
		BaselineScenario:            f.BaselineScenario,
		BaselineStorageTCO2e:        f.BaselineStorageTCO2e,
		EmbodiedEmissionsTCO2e:      f.EmbodiedEmissionsTCO2e,
		InfrastructureLifetimeYears: f.InfrastructureLifetimeYears,
		CreatedAt:                   f.CreatedAt,
	}
}

func toBatchResponse(b *domain.ProductionBatch) domain.BatchResponse {
	return domain.BatchResponse{
		ID:                   snowflake.ID(b.ID).String(),
		FacilityID:           snowflake.ID(b.FacilityID).String(),
		BatchCode:            b.BatchCode,
		ProductionDate:       b.ProductionDate,
		Status:               b.Status,
		FeedstockInputTonnes: b.FeedstockInputTonnes,
		BiocharOutputTonnes:  b.BiocharOutputTonnes,
		DryMassTonnes:        b.DryMassTonnes,
		StackCH4Kg:           b.StackCH4Kg,
		StackN2OKg:           b.StackN2OKg,
		OrganicCarbonPercent: b.OrganicCarbonPercent,
		HydrogenPercent:      b.HydrogenPercent,
		HCorgRatio:           b.HCorgRatio,
		QualityStatus:        b.QualityStatus,
		CreatedAt:            b.CreatedAt,
	}
}
