package domain

import (
	"context"
	"errors"
	"time"
)

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportRequest struct {
	StartDate  time.Time
	EndDate    time.Time
	Format     ExportFormat
	TargetType string
	TargetID   *int64
	Actions    []string
}

// ExportResult carries the rendered trail and a sha256 of it for integrity checks.
type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}

type ExportService interface {
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}

var (
	ErrInvalidFormat = errors.New("invalid_export_format")
	ErrInvalidRange  = errors.New("invalid_export_range")
)
