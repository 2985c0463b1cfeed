package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/audit/domain"
	"github.com/railzwaylabs/biochar/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func NewRecorder(s *Service) domain.Recorder { return s }

func NewExportService(s *Service) domain.ExportService { return s }

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry domain.Entry) error {
	log := &domain.AuditLog{
		ID:         s.genID.Generate().Int64(),
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		FromStatus: optional(entry.FromStatus),
		ToStatus:   optional(entry.ToStatus),
		Actor:      optional(entry.Actor),
		CreatedAt:  s.clock.Now(ctx),
	}
	if len(entry.Metadata) > 0 {
		log.Metadata = entry.Metadata
	}
	if err := s.repo.Insert(ctx, tx, log); err != nil {
		s.log.Error("failed to write audit log",
			zap.String("action", entry.Action),
			zap.Int64("target_id", entry.TargetID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
