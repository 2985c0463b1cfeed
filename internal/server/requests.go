package server

import (
	"bytes"
	"encoding/json"
	"time"

	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	qualitydomain "github.com/railzwaylabs/biochar/internal/quality/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
)

// Date accepts an RFC3339 timestamp or a plain "2006-01-02" date, read as UTC midnight.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// The request types below embed the domain request and shadow its date fields with Date.

type createBCURequest struct {
	bcudomain.CreateRequest
	IssuanceDate Date `json:"issuance_date"`
}

func (r createBCURequest) toDomain() bcudomain.CreateRequest {
	req := r.CreateRequest
	req.IssuanceDate = r.IssuanceDate.Time
	return req
}

type transferBCURequest struct {
	bcudomain.TransferRequest
	TransferDate Date `json:"transfer_date"`
}

func (r transferBCURequest) toDomain() bcudomain.TransferRequest {
	req := r.TransferRequest
	req.TransferDate = r.TransferDate.Time
	return req
}

type retireBCURequest struct {
	bcudomain.RetireRequest
	RetirementDate Date `json:"retirement_date"`
}

func (r retireBCURequest) toDomain() bcudomain.RetireRequest {
	req := r.RetireRequest
	req.RetirementDate = r.RetirementDate.Time
	return req
}

type issueCORCRequest struct {
	corcdomain.IssueRequest
	IssuanceDate Date `json:"issuance_date"`
}

func (r issueCORCRequest) toDomain() corcdomain.IssueRequest {
	req := r.IssueRequest
	req.IssuanceDate = r.IssuanceDate.Time
	return req
}

type retireCORCRequest struct {
	corcdomain.RetireRequest
	RetirementDate Date `json:"retirement_date"`
}

func (r retireCORCRequest) toDomain() corcdomain.RetireRequest {
	req := r.RetireRequest
	req.RetirementDate = r.RetirementDate.Time
	return req
}

type createPeriodRequest struct {
	perioddomain.CreateRequest
	StartDate Date `json:"start_date"`
	EndDate   Date `json:"end_date"`
}

func (r createPeriodRequest) toDomain() perioddomain.CreateRequest {
	req := r.CreateRequest
	req.StartDate = r.StartDate.Time
	req.EndDate = r.EndDate.Time
	return req
}

type recordLabTestRequest struct {
	qualitydomain.RecordRequest
	TestDate Date `json:"test_date"`
}

func (r recordLabTestRequest) toDomain() qualitydomain.RecordRequest {
	req := r.RecordRequest
	req.TestDate = r.TestDate.Time
	return req
}

type createBatchRequest struct {
	recordsdomain.CreateBatchRequest
	ProductionDate Date `json:"production_date"`
}

func (r createBatchRequest) toDomain() recordsdomain.CreateBatchRequest {
	req := r.CreateBatchRequest
	req.ProductionDate = r.ProductionDate.Time
	return req
}

type createDeliveryRequest struct {
	recordsdomain.CreateDeliveryRequest
	DeliveryDate Date `json:"delivery_date"`
}

func (r createDeliveryRequest) toDomain() recordsdomain.CreateDeliveryRequest {
	req := r.CreateDeliveryRequest
	req.DeliveryDate = r.DeliveryDate.Time
	return req
}

type createEnergyUsageRequest struct {
	recordsdomain.CreateEnergyUsageRequest
	PeriodStart Date `json:"period_start"`
	PeriodEnd   Date `json:"period_end"`
}

func (r createEnergyUsageRequest) toDomain() recordsdomain.CreateEnergyUsageRequest {
	req := r.CreateEnergyUsageRequest
	req.PeriodStart = r.PeriodStart.Time
	req.PeriodEnd = r.PeriodEnd.Time
	return req
}

type createSequestrationEventRequest struct {
	recordsdomain.CreateSequestrationEventRequest
	EventDate Date `json:"event_date"`
}

func (r createSequestrationEventRequest) toDomain() recordsdomain.CreateSequestrationEventRequest {
	req := r.CreateSequestrationEventRequest
	req.EventDate = r.EventDate.Time
	return req
}

type createLeakageAssessmentRequest struct {
	recordsdomain.CreateLeakageAssessmentRequest
	AssessmentDate Date `json:"assessment_date"`
}

func (r createLeakageAssessmentRequest) toDomain() recordsdomain.CreateLeakageAssessmentRequest {
	req := r.CreateLeakageAssessmentRequest
	req.AssessmentDate = r.AssessmentDate.Time
	return req
}
