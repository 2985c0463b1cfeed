package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
	"github.com/railzwaylabs/biochar/internal/bcu/domain"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/observability"
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
	Audit       auditdomain.Recorder
	Metrics     *observability.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	recordsRepo recordsdomain.Repository
	audit       auditdomain.Recorder
	metrics     *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("bcu.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		recordsRepo: p.RecordsRepo,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

// Create registers an already-issued legacy unit.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionCreate, err) }()

	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		return nil, domain.ErrInvalidSerial
	}
	if !(req.QuantityTCO2e > 0) {
		return nil, domain.ErrInvalidQuantity
	}
	owner := strings.TrimSpace(req.OwnerName)
	account := strings.TrimSpace(req.OwnerAccountID)
	if owner == "" || account == "" {
		return nil, domain.ErrInvalidOwner
	}
	if req.IssuanceDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	var facilityID *int64
	if req.FacilityID != nil && strings.TrimSpace(*req.FacilityID) != "" {
		id, err := parseID(*req.FacilityID)
		if err != nil {
			return nil, err
		}
		facilityID = &id
	}

	now := s.clock.Now(ctx)
	unit := &domain.BCU{
		ID:             s.genID.Generate().Int64(),
		FacilityID:     facilityID,
		SerialNumber:   serial,
		Status:         string(domain.StatusIssued),
		QuantityTCO2e:  req.QuantityTCO2e,
		OwnerName:      owner,
		OwnerAccountID: account,
		IssuanceDate:   truncateDay(req.IssuanceDate),
		Notes:          trimmedPtr(req.Notes),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if facilityID != nil {
			facility, err := s.recordsRepo.FindFacility(ctx, tx, *facilityID)
			if err != nil {
				return err
			}
			if facility == nil {
				return domain.ErrFacilityNotFound
			}
		}
		existing, err := s.repo.FindBySerial(ctx, tx, serial)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateSerial
		}
		if err := s.repo.Insert(ctx, tx, unit); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateSerial
			}
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "bcu.create",
			TargetType: domain.Entity,
			TargetID:   unit.ID,
			ToStatus:   unit.Status,
			Metadata:   map[string]any{"serial_number": serial, "quantity_tco2e": unit.QuantityTCO2e},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bcu registered", zap.Int64("bcu_id", unit.ID), zap.String("serial_number", serial))
	return s.load(ctx, unit.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	bcuID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, bcuID)
}

// Transfer hands the unit to a new owner and records the change. A unit can change hands any number
// of times before retirement.
func (s *Service) Transfer(ctx context.Context, id string, req domain.TransferRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionTransfer, err) }()

	bcuID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(req.OwnerName)
	account := strings.TrimSpace(req.OwnerAccountID)
	if owner == "" || account == "" {
		return nil, domain.ErrInvalidOwner
	}
	if req.TransferDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	transferDate := truncateDay(req.TransferDate)

	now := s.clock.Now(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.lock(ctx, tx, bcuID)
		if err != nil {
			return err
		}
		if err := domain.CanTransfer(unit); err != nil {
			return err
		}
		if unit.OwnerAccountID == account {
			return domain.ErrSameOwner
		}
		if transferDate.Before(unit.IssuanceDate) {
			return domain.ErrInvalidDate
		}

		if err := s.repo.InsertTransfer(ctx, tx, &domain.BCUTransfer{
			ID:                 s.genID.Generate().Int64(),
			BCUID:              unit.ID,
			FromOwnerName:      unit.OwnerName,
			FromOwnerAccountID: unit.OwnerAccountID,
			ToOwnerName:        owner,
			ToOwnerAccountID:   account,
			TransferDate:       transferDate,
			Notes:              trimmedPtr(req.Notes),
			CreatedAt:          now,
		}); err != nil {
			return err
		}

		if err := s.repo.UpdateVersioned(ctx, tx, unit.ID, unit.Version, map[string]any{
			"status":           string(domain.StatusTransferred),
			"owner_name":       owner,
			"owner_account_id": account,
			"updated_at":       now,
		}); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "bcu.transfer",
			TargetType: domain.Entity,
			TargetID:   unit.ID,
			FromStatus: unit.Status,
			ToStatus:   string(domain.StatusTransferred),
			Metadata: map[string]any{
				"from_owner_account_id": unit.OwnerAccountID,
				"to_owner_account_id":   account,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bcu transferred", zap.Int64("bcu_id", bcuID), zap.String("owner_account_id", account))
	return s.load(ctx, bcuID)
}

func (s *Service) Retire(ctx context.Context, id string, req domain.RetireRequest) (res *domain.Response, err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionRetire, err) }()

	bcuID, err := parseID(id)
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

	now := s.clock.Now(ctx)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.lock(ctx, tx, bcuID)
		if err != nil {
			return err
		}
		if err := domain.CanRetire(unit); err != nil {
			return err
		}
		if retiredOn.Before(unit.IssuanceDate) {
			return domain.ErrInvalidDate
		}

		updates := map[string]any{
			"status":                 string(domain.StatusRetired),
			"retirement_date":        retiredOn,
			"retirement_beneficiary": beneficiary,
			"updated_at":             now,
		}
		if req.Notes != nil {
			updates["notes"] = trimmedPtr(req.Notes)
		}
		if err := s.repo.UpdateVersioned(ctx, tx, unit.ID, unit.Version, updates); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "bcu.retire",
			TargetType: domain.Entity,
			TargetID:   unit.ID,
			FromStatus: unit.Status,
			ToStatus:   string(domain.StatusRetired),
			Metadata:   map[string]any{"beneficiary": beneficiary},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bcu retired", zap.Int64("bcu_id", bcuID))
	return s.load(ctx, bcuID)
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveTransition(domain.Entity, domain.ActionDelete, err) }()

	bcuID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := s.lock(ctx, tx, bcuID)
		if err != nil {
			return err
		}
		if err := domain.CanDelete(unit); err != nil {
			return err
		}
		if err := s.repo.DeleteVersioned(ctx, tx, unit.ID, unit.Version); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "bcu.delete",
			TargetType: domain.Entity,
			TargetID:   unit.ID,
			FromStatus: unit.Status,
			Metadata:   map[string]any{"serial_number": unit.SerialNumber},
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("bcu deleted", zap.Int64("bcu_id", bcuID))
	return nil
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, id int64) (*domain.BCU, error) {
	unit, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	return unit, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Response, error) {
	unit, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	transfers, err := s.repo.ListTransfers(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(unit, transfers)
	return &resp, nil
}

func toResponse(b *domain.BCU, transfers []domain.BCUTransfer) domain.Response {
	resp := domain.Response{
		ID:                    snowflake.ID(b.ID).String(),
		SerialNumber:          b.SerialNumber,
		Status:                domain.Status(b.Status),
		QuantityTCO2e:         b.QuantityTCO2e,
		OwnerName:             b.OwnerName,
		OwnerAccountID:        b.OwnerAccountID,
		IssuanceDate:          b.IssuanceDate,
		RetirementDate:        b.RetirementDate,
		RetirementBeneficiary: b.RetirementBeneficiary,
		Notes:                 b.Notes,
		Transfers:             make([]domain.TransferResponse, 0, len(transfers)),
		Version:               b.Version,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
	if b.FacilityID != nil {
		facilityID := snowflake.ID(*b.FacilityID).String()
		resp.FacilityID = &facilityID
	}
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, domain.TransferResponse{
			ID:                 snowflake.ID(t.ID).String(),
			FromOwnerName:      t.FromOwnerName,
			FromOwnerAccountID: t.FromOwnerAccountID,
			ToOwnerName:        t.ToOwnerName,
			ToOwnerAccountID:   t.ToOwnerAccountID,
			TransferDate:       t.TransferDate,
			Notes:              t.Notes,
		})
	}
	return resp
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
