package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/calculation/domain"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	"github.com/railzwaylabs/biochar/internal/emissions"
	"github.com/railzwaylabs/biochar/internal/leakage"
	"github.com/railzwaylabs/biochar/internal/lock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/observability"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/railzwaylabs/biochar/internal/calculation"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Methodology *methodology.Holder
	Locker      lock.Locker
	PeriodRepo  perioddomain.Repository
	RecordsRepo recordsdomain.Repository
	Metrics     *observability.Metrics `optional:"true"`
	Tracer      trace.Tracer           `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	lockTTL     time.Duration
	methodology *methodology.Holder
	locker      lock.Locker
	periodRepo  perioddomain.Repository
	recordsRepo recordsdomain.Repository
	metrics     *observability.Metrics
	tracer      trace.Tracer
}

func New(p Params) domain.Service {
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	lockTTL := p.Config.Recalc.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("calculation.service"),
		clock:       p.Clock,
		lockTTL:     lockTTL,
		methodology: p.Methodology,
		locker:      p.Locker,
		periodRepo:  p.PeriodRepo,
		recordsRepo: p.RecordsRepo,
		metrics:     p.Metrics,
		tracer:      tracer,
	}
}

type runOptions struct {
	save          bool
	soilOverride  *float64
	fullBreakdown bool
	requireSaved  bool
}

// Calculate runs the methodology for one monitoring period. Nothing is persisted unless the request
// asks for it and the input validates; a failed calculation never leaves a partial result behind.
func (s *Service) Calculate(ctx context.Context, req domain.CalculateRequest) (*domain.CalculateResponse, error) {
	periodID, err := parseID(req.MonitoringPeriodID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, periodID, runOptions{
		save:          req.SaveResult,
		soilOverride:  req.MeanSoilTempOverride,
		fullBreakdown: req.ReturnFullBreakdown,
	})
}

// Recalculate refreshes the saved result of a period after its inputs changed.
func (s *Service) Recalculate(ctx context.Context, periodID int64) error {
	_, err := s.run(ctx, periodID, runOptions{save: true, requireSaved: true})
	return err
}

func (s *Service) run(ctx context.Context, periodID int64, opts runOptions) (resp *domain.CalculateResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "calculation.run", trace.WithAttributes(
		attribute.Int64("monitoring_period.id", periodID),
		attribute.Bool("calculation.save", opts.save),
	))
	started := time.Now()
	defer func() {
		s.observe(started, resp, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if opts.save {
		lease, err := s.locker.Acquire(ctx, lock.MonitoringPeriodKey(periodID), s.lockTTL)
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, domain.ErrCalculationInProgress
		}
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				s.log.Warn("failed to release calculation lock", zap.Int64("monitoring_period_id", periodID), zap.Error(rerr))
			}
		}()
	}

	calculatedAt := s.clock.Now(ctx)
	params := s.methodology.Current()

	period, err := s.periodRepo.FindByID(ctx, s.db, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrPeriodNotFound
	}
	if opts.requireSaved && !period.Saved() {
		return nil, domain.ErrNotSaved
	}

	loaded, err := s.load(ctx, period)
	if err != nil {
		return nil, err
	}

	agg, err := emissions.Run(params, loaded.emissions)
	if err != nil {
		if errors.Is(err, emissions.ErrZeroDryMass) {
			s.log.Info("monitoring period has no biochar to credit", zap.Int64("monitoring_period_id", periodID))
		}
		return nil, err
	}
	leak := leakage.Aggregate(loaded.leakage)
	soilTemp, soilCaveat := domain.ResolveSoilTemperature(params, opts.soilOverride, loaded.soil)

	warnings := make([]methodology.Caveat, 0, len(agg.Caveats)+len(leak.Caveats)+1)
	warnings = append(warnings, agg.Caveats...)
	warnings = append(warnings, leak.Caveats...)
	if soilCaveat != nil {
		warnings = append(warnings, *soilCaveat)
	}

	in := domain.Input{
		DryMassTonnes:              agg.DryMassTonnes,
		UnsequesteredDryMassTonnes: agg.UnsequesteredDryMassTonnes,
		OrganicCarbonPercent:       agg.OrganicCarbonPercent,
		HydrogenPercent:            agg.HydrogenPercent,
		SoilTemperatureC:           soilTemp,
		Baseline:                   loaded.baseline,
		BaselineStorageTCO2e:       loaded.facility.BaselineStorageTCO2e,
		Emissions: domain.ProjectEmissions{
			BiomassKg:          agg.Biomass.TotalKg,
			ProductionEnergyKg: agg.ProductionEnergyKg,
			EmbodiedKg:         agg.EmbodiedKg,
			EndUseKg:           agg.EndUseKg,
			StackCH4Kg:         agg.StackCH4Kg,
			StackN2OKg:         agg.StackN2OKg,
		},
		Leakage: domain.Leakage{
			EcologicalTCO2e: leak.EcologicalTCO2e,
			MarketTCO2e:     leak.MarketTCO2e,
		},
	}

	validation := domain.Validate(params, in, warnings)
	if !validation.IsValid {
		return nil, &domain.ValidationError{Validation: validation}
	}

	result, err := domain.Calculate(params, in)
	if err != nil {
		return nil, err
	}

	resp = &domain.CalculateResponse{
		Result:                  result,
		Validation:              validation,
		ProductionBatchCount:    agg.BatchCount,
		SequestrationEventCount: len(loaded.events),
	}
	if opts.fullBreakdown {
		resp.Breakdown = &domain.Breakdown{
			DryMassTonnes:              in.DryMassTonnes,
			UnsequesteredDryMassTonnes: in.UnsequesteredDryMassTonnes,
			OrganicCarbonPercent:       in.OrganicCarbonPercent,
			HydrogenPercent:            in.HydrogenPercent,
			MeanSoilTemperatureC:       soilTemp,
			BaselineScenario:           string(in.Baseline),
			BaselineStorageTCO2e:       in.BaselineStorageTCO2e,
			Emissions:                  in.Emissions,
			Biomass:                    agg.Biomass,
			Leakage:                    leak,
			PeriodDays:                 period.Days(),
		}
	}

	if !opts.save {
		return resp, nil
	}

	err = s.periodRepo.SaveResult(ctx, s.db, period.ID, period.Version, perioddomain.Result{
		CStoredTCO2e:            result.CStoredTCO2e,
		CBaselineTCO2e:          result.CBaselineTCO2e,
		CLossTCO2e:              result.CLossTCO2e,
		PersistenceFraction:     result.PersistenceFraction,
		HCorgRatio:              result.HCorgRatio,
		EProjectTCO2e:           result.EProjectTCO2e,
		ELeakageTCO2e:           result.ELeakageTCO2e,
		NetCORCsTCO2e:           result.NetCORCsTCO2e,
		DryMassTonnes:           in.DryMassTonnes,
		MeanSoilTemperatureC:    soilTemp,
		ProductionBatchCount:    resp.ProductionBatchCount,
		SequestrationEventCount: resp.SequestrationEventCount,
		MethodologyVersion:      result.MethodologyVersion,
		Warnings:                validation.Warnings,
		CalculatedAt:            calculatedAt,
	})
	if err != nil {
		return nil, err
	}
	resp.Saved = true

	s.log.Info("monitoring period calculated",
		zap.Int64("monitoring_period_id", period.ID),
		zap.Float64("net_corcs_tco2e", result.NetCORCsTCO2e),
		zap.Int("warnings", len(validation.Warnings)),
		zap.String("methodology_version", result.MethodologyVersion),
	)
	return resp, nil
}

type periodData struct {
	facility  *recordsdomain.Facility
	baseline  methodology.BaselineScenario
	emissions emissions.Input
	events    []recordsdomain.SequestrationEvent
	soil      []domain.SoilSample
	leakage   *leakage.Assessment
}

// load gathers every record feeding a period. Only complete batches produced inside the period
// count; sequestered mass is credited against a batch when recorded on or before the period end.
func (s *Service) load(ctx context.Context, period *perioddomain.MonitoringPeriod) (*periodData, error) {
	facility, err := s.recordsRepo.FindFacility(ctx, s.db, period.FacilityID)
	if err != nil {
		return nil, err
	}
	if facility == nil {
		return nil, domain.ErrFacilityNotFound
	}
	baseline, err := methodology.ParseBaselineScenario(facility.BaselineScenario)
	if err != nil {
		return nil, fmt.Errorf("%w: facility %s has %q", domain.ErrUnknownBaseline, facility.Code, facility.BaselineScenario)
	}

	batches, err := s.recordsRepo.ListCompleteBatches(ctx, s.db, facility.ID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	batchIDs := make([]int64, 0, len(batches))
	for _, b := range batches {
		batchIDs = append(batchIDs, b.ID)
	}

	allocations, err := s.recordsRepo.ListAllocationsByBatches(ctx, s.db, batchIDs)
	if err != nil {
		return nil, err
	}
	byBatch := make(map[int64][]emissions.Allocation, len(batches))
	for _, a := range allocations {
		byBatch[a.BatchID] = append(byBatch[a.BatchID], emissions.Allocation{
			DistanceKm:       a.DistanceKm,
			WeightUsedTonnes: a.WeightUsedTonnes,
		})
	}

	sequestered, err := s.recordsRepo.SumSequesteredByBatch(ctx, s.db, batchIDs, period.EndDate)
	if err != nil {
		return nil, err
	}

	usages, err := s.recordsRepo.ListEnergyUsages(ctx, s.db, facility.ID, batchIDs, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}

	events, err := s.recordsRepo.ListSequestrationEvents(ctx, s.db, facility.ID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}

	assessment, err := s.recordsRepo.FindLatestLeakageAssessment(ctx, s.db, facility.ID, period.EndDate)
	if err != nil {
		return nil, err
	}

	out := &periodData{
		facility: facility,
		baseline: baseline,
		events:   events,
		emissions: emissions.Input{
			Batches:       make([]emissions.Batch, 0, len(batches)),
			Energy:        make([]emissions.Energy, 0, len(usages)),
			Sequestration: make([]emissions.Sequestration, 0, len(events)),
			Embodied: emissions.Embodied{
				TotalTCO2e:    facility.EmbodiedEmissionsTCO2e,
				LifetimeYears: facility.InfrastructureLifetimeYears,
				PeriodDays:    period.Days(),
			},
		},
		soil: make([]domain.SoilSample, 0, len(events)),
	}

	for _, b := range batches {
		out.emissions.Batches = append(out.emissions.Batches, emissions.Batch{
			ID:                   b.ID,
			OutputTonnes:         b.BiocharOutputTonnes,
			DryMassTonnes:        b.DryMassTonnes,
			OrganicCarbonPercent: b.OrganicCarbonPercent,
			HydrogenPercent:      b.HydrogenPercent,
			StackCH4Kg:           b.StackCH4Kg,
			StackN2OKg:           b.StackN2OKg,
			SequesteredTonnes:    sequestered[b.ID],
			Allocations:          byBatch[b.ID],
		})
	}
	for _, u := range usages {
		out.emissions.Energy = append(out.emissions.Energy, emissions.Energy{
			ID:         u.ID,
			EnergyType: u.EnergyType,
			Quantity:   u.Quantity,
		})
	}
	for _, e := range events {
		out.emissions.Sequestration = append(out.emissions.Sequestration, emissions.Sequestration{
			MassTonnes:          e.MassTonnes,
			TransportDistanceKm: e.TransportDistanceKm,
		})
		out.soil = append(out.soil, domain.SoilSample{
			MassTonnes:       e.MassTonnes,
			SoilTemperatureC: e.SoilTemperatureC,
		})
	}

	if assessment != nil {
		out.leakage = &leakage.Assessment{
			EcologicalFacility:   assessment.EcologicalFacilityTCO2e,
			EcologicalSourcing:   assessment.EcologicalSourcingTCO2e,
			MarketAFOLU:          assessment.MarketAFOLUTCO2e,
			MarketEnergyMaterial: assessment.MarketEnergyMaterialTCO2e,
			ILUC:                 assessment.ILUCTCO2e,
		}
	}
	return out, nil
}

func (s *Service) observe(started time.Time, resp *domain.CalculateResponse, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.CalculationDuration.Observe(time.Since(started).Seconds())

	var validationErr *domain.ValidationError
	outcome := "ok"
	switch {
	case errors.As(err, &validationErr):
		outcome = "invalid"
	case errors.Is(err, domain.ErrZeroDryMass):
		outcome = "zero_dry_mass"
	case errors.Is(err, domain.ErrCalculationInProgress):
		outcome = "locked"
	case err != nil:
		outcome = "error"
	}
	s.metrics.Calculations.WithLabelValues(outcome).Inc()
	if resp != nil && resp.Saved {
		s.metrics.NetCORCs.Observe(resp.Result.NetCORCsTCO2e)
	}
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}
