package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func Ptr[T any](v T) *T {
	return &v
}

// Fixtures inserts rows directly, bypassing service validation.
type Fixtures struct {
	T     *testing.T
	DB    *gorm.DB
	GenID *snowflake.Node
	Now   time.Time
}

func NewFixtures(t *testing.T, db *gorm.DB, genID *snowflake.Node) *Fixtures {
	return &Fixtures{T: t, DB: db, GenID: genID, Now: Day(2024, time.June, 1)}
}

func (f *Fixtures) Facility(code string, mutate ...func(*recordsdomain.Facility)) *recordsdomain.Facility {
	f.T.Helper()
	row := &recordsdomain.Facility{
		ID:               f.GenID.Generate().Int64(),
		Code:             code,
		Name:             code + " pyrolysis site",
		BaselineScenario: "new_build",
		CreatedAt:        f.Now,
		UpdatedAt:        f.Now,
	}
	for _, m := range mutate {
		m(row)
	}
	require.NoError(f.T, f.DB.Create(row).Error)
	return row
}

// Batch inserts a complete batch with measured quality unless mutate clears it.
func (f *Fixtures) Batch(facilityID int64, date time.Time, dryMass float64, mutate ...func(*recordsdomain.ProductionBatch)) *recordsdomain.ProductionBatch {
	f.T.Helper()
	row := &recordsdomain.ProductionBatch{
		ID:                   f.GenID.Generate().Int64(),
		FacilityID:           facilityID,
		BatchCode:            "B-" + date.Format("20060102"),
		ProductionDate:       date,
		Status:               string(recordsdomain.BatchStatusComplete),
		FeedstockInputTonnes: dryMass * 3,
		BiocharOutputTonnes:  dryMass,
		DryMassTonnes:        Ptr(dryMass),
		OrganicCarbonPercent: Ptr(80.0),
		HydrogenPercent:      Ptr(2.0),
		QualityStatus:        string(recordsdomain.QualityStatusPassed),
		CreatedAt:            f.Now,
		UpdatedAt:            f.Now,
	}
	for _, m := range mutate {
		m(row)
	}
	require.NoError(f.T, f.DB.Create(row).Error)
	return row
}

func (f *Fixtures) Sequestration(facilityID, batchID int64, date time.Time, mass float64, mutate ...func(*recordsdomain.SequestrationEvent)) *recordsdomain.SequestrationEvent {
	f.T.Helper()
	row := &recordsdomain.SequestrationEvent{
		ID:          f.GenID.Generate().Int64(),
		FacilityID:  facilityID,
		BatchID:     batchID,
		EventDate:   date,
		MassTonnes:  mass,
		Destination: "field 7",
		Method:      "soil_incorporation",
		CreatedAt:   f.Now,
	}
	for _, m := range mutate {
		m(row)
	}
	require.NoError(f.T, f.DB.Create(row).Error)
	return row
}

func (f *Fixtures) Period(facilityID int64, start, end time.Time, mutate ...func(*perioddomain.MonitoringPeriod)) *perioddomain.MonitoringPeriod {
	f.T.Helper()
	row := &perioddomain.MonitoringPeriod{
		ID:         f.GenID.Generate().Int64(),
		FacilityID: facilityID,
		StartDate:  start,
		EndDate:    end,
		Version:    1,
		CreatedAt:  f.Now,
		UpdatedAt:  f.Now,
	}
	for _, m := range mutate {
		m(row)
	}
	require.NoError(f.T, f.DB.Create(row).Error)
	return row
}

// SavedPeriod inserts a period that already carries a calculation result.
func (f *Fixtures) SavedPeriod(facilityID int64, start, end time.Time, net float64) *perioddomain.MonitoringPeriod {
	f.T.Helper()
	return f.Period(facilityID, start, end, func(p *perioddomain.MonitoringPeriod) {
		calculated := f.Now
		p.CStoredTCO2e = Ptr(net + 100)
		p.CBaselineTCO2e = Ptr(0.0)
		p.CLossTCO2e = Ptr(40.0)
		p.PersistenceFraction = Ptr(0.75)
		p.HCorgRatio = Ptr(0.37)
		p.EProjectTCO2e = Ptr(50.0)
		p.ELeakageTCO2e = Ptr(10.0)
		p.NetCORCsTCO2e = Ptr(net)
		p.DryMassTonnes = Ptr(2000.0)
		p.MeanSoilTemperatureC = Ptr(15.0)
		p.ProductionBatchCount = Ptr(0)
		p.SequestrationEventCount = Ptr(0)
		p.MethodologyVersion = Ptr("puro-biochar-2022.v1")
		p.CalculatedAt = &calculated
	})
}
