package domain

import "time"

// LabTest is one laboratory measurement of a production batch. The most recent test by TestDate
// (ties broken by ID) is authoritative for the batch.
type LabTest struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement:false"`
	BatchID                int64     `gorm:"not null;index"`
	TestDate               time.Time `gorm:"not null"`
	LabName                *string
	TotalCarbonPercent     float64   `gorm:"not null"`
	InorganicCarbonPercent float64   `gorm:"not null"`
	HydrogenPercent        float64   `gorm:"not null"`
	OrganicCarbonPercent   float64   `gorm:"not null"`
	HCorgRatio             *float64  `gorm:"column:hcorg_ratio"`
	PassesQualityThreshold bool      `gorm:"not null"`
	CreatedAt              time.Time `gorm:"not null"`
}

func (LabTest) TableName() string { return "lab_tests" }
