package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/corc/certificate"
	"github.com/railzwaylabs/biochar/internal/corc/domain"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/observability"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	PeriodRepo  perioddomain.Repository
	RecordsRepo recordsdomain.Repository
	Audit       auditdomain.Recorder
	Metrics     *observability.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	periodRepo  perioddomain.Repository
	recordsRepo recordsdomain.Repository
	audit       auditdomain.Recorder
	metrics     *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("corc.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		periodRepo:  p.PeriodRepo,
		recordsRepo: p.RecordsRepo,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

// Create drafts a certificate from a saved monitoring period, freezing the period's result and
// linking the batches and sequestration events it was derived from.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionCreate, err) }()

	periodID, err := parseID(req.MonitoringPeriodID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	var created *domain.CORCIssuance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := s.periodRepo.FindByIDForUpdate(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if period == nil {
			return domain.ErrPeriodNotFound
		}
		if !period.Saved() {
			return domain.ErrPeriodNotCalculated
		}

		existing, err := s.repo.FindByMonitoringPeriod(ctx, tx, periodID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyIssued
		}

		facility, err := s.recordsRepo.FindFacilityForUpdate(ctx, tx, period.FacilityID)
		if err != nil {
			return err
		}
		if facility == nil {
			return domain.ErrFacilityNotFound
		}

		year := period.EndDate.Year()
		seq, err := s.repo.NextSerialSeq(ctx, tx, facility.ID, year)
		if err != nil {
			return err
		}

		breakdown, err := freeze(period)
		if err != nil {
			return err
		}

		created = &domain.CORCIssuance{
			ID:                  s.genID.Generate().Int64(),
			FacilityID:          facility.ID,
			MonitoringPeriodID:  period.ID,
			SerialNumber:        SerialNumber(facility.Code, year, seq),
			SerialYear:          year,
			SerialSeq:           seq,
			Status:              string(domain.StatusDraft),
			NetCORCsTCO2e:       *period.NetCORCsTCO2e,
			CStoredTCO2e:        deref(period.CStoredTCO2e),
			CBaselineTCO2e:      deref(period.CBaselineTCO2e),
			CLossTCO2e:          deref(period.CLossTCO2e),
			EProjectTCO2e:       deref(period.EProjectTCO2e),
			ELeakageTCO2e:       deref(period.ELeakageTCO2e),
			PersistenceFraction: deref(period.PersistenceFraction),
			Breakdown:           breakdown,
			Notes:               trimmedPtr(req.Notes),
			Version:             1,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if period.MethodologyVersion != nil {
			created.MethodologyVersion = *period.MethodologyVersion
		}
		if err := s.repo.Insert(ctx, tx, created); err != nil {
			return err
		}

		batches, err := s.recordsRepo.ListCompleteBatches(ctx, tx, facility.ID, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		batchIDs := make([]int64, 0, len(batches))
		for _, b := range batches {
			batchIDs = append(batchIDs, b.ID)
		}
		if err := s.repo.InsertBatchLinks(ctx, tx, created.ID, batchIDs); err != nil {
			return err
		}

		events, err := s.recordsRepo.ListSequestrationEvents(ctx, tx, facility.ID, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		eventIDs := make([]int64, 0, len(events))
		for _, e := range events {
			eventIDs = append(eventIDs, e.ID)
		}
		if err := s.repo.InsertEventLinks(ctx, tx, created.ID, eventIDs); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "corc.create",
			TargetType: domain.Entity,
			TargetID:   created.ID,
			ToStatus:   created.Status,
			Metadata: map[string]any{
				"serial_number":        created.SerialNumber,
				"monitoring_period_id": snowflake.ID(period.ID).String(),
				"net_corcs_tco2e":      created.NetCORCsTCO2e,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("corc drafted",
		zap.Int64("corc_id", created.ID),
		zap.String("serial_number", created.SerialNumber),
		zap.Int64("monitoring_period_id", periodID),
		zap.Float64("net_corcs_tco2e", created.NetCORCsTCO2e),
	)
	return s.load(ctx, s.db, created.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	corcID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, corcID)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	var filter domain.ListFilter
	if strings.TrimSpace(req.FacilityID) != "" {
		facilityID, err := parseID(req.FacilityID)
		if err != nil {
			return nil, err
		}
		filter.FacilityID = &facilityID
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := parseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i], nil, nil))
	}
	return out, nil
}

// Update edits notes and the prospective owner of a draft.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionUpdate, err) }()

	corcID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Notes != nil {
		updates["notes"] = trimmedPtr(req.Notes)
	}
	if req.OwnerName != nil {
		updates["owner_name"] = trimmedPtr(req.OwnerName)
	}
	if req.OwnerAccountID != nil {
		updates["owner_account_id"] = trimmedPtr(req.OwnerAccountID)
	}

	err = s.transition(ctx, corcID, domain.ActionUpdate, func(c *domain.CORCIssuance) (map[string]any, error) {
		if err := domain.CanEdit(c, domain.ActionUpdate); err != nil {
			return nil, err
		}
		return updates, nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, corcID)
}

// Delete removes a draft. Issued and retired certificates are permanent.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionDelete, err) }()

	corcID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, corcID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if err := domain.CanEdit(c, domain.ActionDelete); err != nil {
			return err
		}
		if err := s.repo.DeleteVersioned(ctx, tx, c.ID, c.Version); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "corc.delete",
			TargetType: domain.Entity,
			TargetID:   c.ID,
			FromStatus: c.Status,
			Metadata:   map[string]any{"serial_number": c.SerialNumber},
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("corc deleted", zap.Int64("corc_id", corcID))
	return nil
}

// Issue moves a draft with a positive net removal to issued.
func (s *Service) Issue(ctx context.Context, id string, req domain.IssueRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionIssue, err) }()

	corcID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(req.OwnerName)
	account := strings.TrimSpace(req.OwnerAccountID)
	if owner == "" || account == "" {
		return nil, domain.ErrInvalidOwner
	}
	if req.IssuanceDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	issuedOn := truncateDay(req.IssuanceDate)

	err = s.transition(ctx, corcID, domain.ActionIssue, func(c *domain.CORCIssuance) (map[string]any, error) {
		if err := domain.CanIssue(c); err != nil {
			return nil, err
		}
		return map[string]any{
			"status":           string(domain.StatusIssued),
			"issuance_date":    issuedOn,
			"owner_name":       owner,
			"owner_account_id": account,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("corc issued", zap.Int64("corc_id", corcID), zap.String("owner_account_id", account))
	return s.load(ctx, s.db, corcID)
}

// Retire moves an issued certificate to retired on behalf of a beneficiary.
func (s *Service) Retire(ctx context.Context, id string, req domain.RetireRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionRetire, err) }()

	corcID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	beneficiary := strings.TrimSpace(req.RetirementBeneficiary)
	if beneficiary == "" {
		return nil, domain.ErrInvalidBeneficiary
	}
	if req.RetirementDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	retiredOn := truncateDay(req.RetirementDate)

	err = s.transition(ctx, corcID, domain.ActionRetire, func(c *domain.CORCIssuance) (map[string]any, error) {
		if err := domain.CanRetire(c); err != nil {
			return nil, err
		}
		if c.IssuanceDate != nil && retiredOn.Before(truncateDay(*c.IssuanceDate)) {
			return nil, domain.ErrInvalidDate
		}
		updates := map[string]any{
			"status":                 string(domain.StatusRetired),
			"retirement_date":        retiredOn,
			"retirement_beneficiary": beneficiary,
		}
		if req.Notes != nil {
			updates["notes"] = trimmedPtr(req.Notes)
		}
		return updates, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("corc retired", zap.Int64("corc_id", corcID), zap.String("beneficiary", beneficiary))
	return s.load(ctx, s.db, corcID)
}

// Certificate renders the PDF for any status. Drafts are marked as such.
func (s *Service) Certificate(ctx context.Context, id string) ([]byte, error) {
	corcID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, s.db, corcID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	facility, err := s.recordsRepo.FindFacility(ctx, s.db, c.FacilityID)
	if err != nil {
		return nil, err
	}
	if facility == nil {
		return nil, domain.ErrFacilityNotFound
	}

	var frozen domain.FrozenBreakdown
	if len(c.Breakdown) > 0 {
		if err := json.Unmarshal(c.Breakdown, &frozen); err != nil {
			return nil, fmt.Errorf("decode corc breakdown: %w", err)
		}
	}

	return certificate.Render(certificate.Data{
		SerialNumber:          c.SerialNumber,
		Status:                c.Status,
		FacilityCode:          facility.Code,
		FacilityName:          facility.Name,
		PeriodStart:           frozen.PeriodStart,
		PeriodEnd:             frozen.PeriodEnd,
		NetCORCsTCO2e:         c.NetCORCsTCO2e,
		CStoredTCO2e:          c.CStoredTCO2e,
		CBaselineTCO2e:        c.CBaselineTCO2e,
		CLossTCO2e:            c.CLossTCO2e,
		EProjectTCO2e:         c.EProjectTCO2e,
		ELeakageTCO2e:         c.ELeakageTCO2e,
		PersistenceFraction:   c.PersistenceFraction,
		MethodologyVersion:    c.MethodologyVersion,
		OwnerName:             c.OwnerName,
		OwnerAccountID:        c.OwnerAccountID,
		IssuanceDate:          c.IssuanceDate,
		RetirementDate:        c.RetirementDate,
		RetirementBeneficiary: c.RetirementBeneficiary,
		GeneratedAt:           s.clock.Now(ctx),
	})
}

type guardFunc func(c *domain.CORCIssuance) (map[string]any, error)

// transition locks the row, lets guard decide the updates, and applies them against the version that
// was read.
func (s *Service) transition(ctx context.Context, id int64, action string, guard guardFunc) error {
	now := s.clock.Now(ctx)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		updates, err := guard(c)
		if err != nil {
			return err
		}
		updates["updated_at"] = now
		if err := s.repo.UpdateVersioned(ctx, tx, c.ID, c.Version, updates); err != nil {
			return err
		}

		toStatus := c.Status
		if status, ok := updates["status"].(string); ok {
			toStatus = status
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "corc." + action,
			TargetType: domain.Entity,
			TargetID:   c.ID,
			FromStatus: c.Status,
			ToStatus:   toStatus,
			Metadata:   map[string]any{"serial_number": c.SerialNumber, "version": c.Version + 1},
		})
	})
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id int64) (*domain.Response, error) {
	c, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	batchIDs, err := s.repo.ListBatchLinks(ctx, db, id)
	if err != nil {
		return nil, err
	}
	eventIDs, err := s.repo.ListEventLinks(ctx, db, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(c, batchIDs, eventIDs)
	return &resp, nil
}

// SerialNumber formats CORC-<FACILITY>-<YEAR>-<SEQ>.
func SerialNumber(facilityCode string, year, seq int) string {
	return fmt.Sprintf("CORC-%s-%d-%04d", strings.ToUpper(slug.Make(facilityCode)), year, seq)
}

func freeze(p *perioddomain.MonitoringPeriod) (datatypes.JSON, error) {
	payload, err := json.Marshal(domain.FrozenBreakdown{
		PeriodStart:             p.StartDate,
		PeriodEnd:               p.EndDate,
		DryMassTonnes:           p.DryMassTonnes,
		HCorgRatio:              p.HCorgRatio,
		MeanSoilTemperatureC:    p.MeanSoilTemperatureC,
		ProductionBatchCount:    p.ProductionBatchCount,
		SequestrationEventCount: p.SequestrationEventCount,
		CalculatedAt:            p.CalculatedAt,
		Warnings:                p.Warnings,
	})
	if err != nil {
		return nil, fmt.Errorf("encode corc breakdown: %w", err)
	}
	return datatypes.JSON(payload), nil
}

func toResponse(c *domain.CORCIssuance, batchIDs, eventIDs []int64) domain.Response {
	resp := domain.Response{
		ID:                    snowflake.ID(c.ID).String(),
		SerialNumber:          c.SerialNumber,
		FacilityID:            snowflake.ID(c.FacilityID).String(),
		MonitoringPeriodID:    snowflake.ID(c.MonitoringPeriodID).String(),
		Status:                domain.Status(c.Status),
		NetCORCsTCO2e:         c.NetCORCsTCO2e,
		CStoredTCO2e:          c.CStoredTCO2e,
		CBaselineTCO2e:        c.CBaselineTCO2e,
		CLossTCO2e:            c.CLossTCO2e,
		EProjectTCO2e:         c.EProjectTCO2e,
		ELeakageTCO2e:         c.ELeakageTCO2e,
		PersistenceFraction:   c.PersistenceFraction,
		MethodologyVersion:    c.MethodologyVersion,
		BatchIDs:              formatIDs(batchIDs),
		SequestrationEventIDs: formatIDs(eventIDs),
		OwnerName:             c.OwnerName,
		OwnerAccountID:        c.OwnerAccountID,
		IssuanceDate:          c.IssuanceDate,
		RetirementDate:        c.RetirementDate,
		RetirementBeneficiary: c.RetirementBeneficiary,
		Notes:                 c.Notes,
		Version:               c.Version,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
	if len(c.Breakdown) > 0 {
		var frozen domain.FrozenBreakdown
		if err := json.Unmarshal(c.Breakdown, &frozen); err == nil {
			resp.Breakdown = &frozen
		}
	}
	return resp
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, snowflake.ID(id).String())
	}
	return out
}

func parseStatus(value string) (domain.Status, error) {
	switch status := domain.Status(strings.ToLower(strings.TrimSpace(value))); status {
	case domain.StatusDraft, domain.StatusIssued, domain.StatusRetired:
		return status, nil
	default:
		return "", domain.ErrInvalidStatus
	}
}

func parseID(value string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id.Int64(), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
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
