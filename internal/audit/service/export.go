package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/audit/domain"
)

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	if !req.EndDate.IsZero() && !req.StartDate.IsZero() && !req.EndDate.After(req.StartDate) {
		return nil, domain.ErrInvalidRange
	}

	logs, err := s.repo.List(ctx, s.db, domain.ListFilter{
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Actions:    req.Actions,
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case domain.ExportFormatCSV:
		data, err = formatCSV(logs)
	case domain.ExportFormatJSON:
		data, err = formatJSON(logs)
	default:
		return nil, domain.ErrInvalidFormat
	}
	if err != nil {
		return nil, err
	}

	return &domain.ExportResult{
		Data:     data,
		Checksum: checksum(data),
		Format:   req.Format,
		Count:    len(logs),
	}, nil
}

func formatCSV(logs []domain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"timestamp", "action", "target_type", "target_id", "from_status", "to_status", "actor", "metadata"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, log := range logs {
		metadata := ""
		if len(log.Metadata) > 0 {
			raw, err := json.Marshal(log.Metadata)
			if err != nil {
				return nil, err
			}
			metadata = string(raw)
		}
		row := []string{
			log.CreatedAt.UTC().Format(time.RFC3339),
			log.Action,
			log.TargetType,
			snowflake.ID(log.TargetID).String(),
			deref(log.FromStatus),
			deref(log.ToStatus),
			deref(log.Actor),
			metadata,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type exportRecord struct {
	Timestamp  string         `json:"timestamp"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	FromStatus string         `json:"from_status,omitempty"`
	ToStatus   string         `json:"to_status,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func formatJSON(logs []domain.AuditLog) ([]byte, error) {
	records := make([]exportRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, exportRecord{
			Timestamp:  log.CreatedAt.UTC().Format(time.RFC3339),
			Action:     log.Action,
			TargetType: log.TargetType,
			TargetID:   snowflake.ID(log.TargetID).String(),
			FromStatus: deref(log.FromStatus),
			ToStatus:   deref(log.ToStatus),
			Actor:      deref(log.Actor),
			Metadata:   log.Metadata,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
