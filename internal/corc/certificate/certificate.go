// Package certificate renders a CORC as a printable PDF.
package certificate

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Data is everything printed on a certificate.
type Data struct {
	SerialNumber          string
	Status                string
	FacilityCode          string
	FacilityName          string
	PeriodStart           time.Time
	PeriodEnd             time.Time
	NetCORCsTCO2e         float64
	CStoredTCO2e          float64
	CBaselineTCO2e        float64
	CLossTCO2e            float64
	EProjectTCO2e         float64
	ELeakageTCO2e         float64
	PersistenceFraction   float64
	MethodologyVersion    string
	OwnerName             *string
	OwnerAccountID        *string
	IssuanceDate          *time.Time
	RetirementDate        *time.Time
	RetirementBeneficiary *string
	GeneratedAt           time.Time
}

var (
	titleStyle = props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Center}
	subStyle   = props.Text{Size: 10, Align: align.Center}
	labelStyle = props.Text{Size: 10, Style: fontstyle.Bold}
	valueStyle = props.Text{Size: 10}
	numStyle   = props.Text{Size: 10, Align: align.Right}
)

// Render builds the PDF. Drafts carry a DRAFT marker and are not valid certificates.
func Render(d Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithCreationDate(d.GeneratedAt).
		Build()
	m := maroto.New(cfg)

	m.AddRows(text.NewRow(12, "CO2 Removal Certificate", titleStyle))
	m.AddRows(text.NewRow(6, d.SerialNumber, subStyle))
	if d.Status == "draft" {
		m.AddRows(text.NewRow(8, "DRAFT", props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}))
	}
	m.AddRows(line.NewRow(4))

	m.AddRows(
		field("Status", d.Status),
		field("Facility", fmt.Sprintf("%s (%s)", d.FacilityName, d.FacilityCode)),
		field("Monitoring period", d.PeriodStart.Format(dateLayout)+" to "+d.PeriodEnd.Format(dateLayout)),
		field("Methodology", d.MethodologyVersion),
	)
	m.AddRows(line.NewRow(4))

	m.AddRows(
		amount("Stored carbon", d.CStoredTCO2e),
		amount("Baseline storage", -d.CBaselineTCO2e),
		amount("Loss", -d.CLossTCO2e),
		amount("Project emissions", -d.EProjectTCO2e),
		amount("Leakage", -d.ELeakageTCO2e),
	)
	m.AddRow(8,
		text.NewCol(6, "Net removal", labelStyle),
		text.NewCol(6, FormatTonnes(d.NetCORCsTCO2e)+" tCO2e", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRows(field("Persistence fraction", decimal.NewFromFloat(d.PersistenceFraction*100).StringFixed(2)+" %"))
	m.AddRows(line.NewRow(4))

	if d.OwnerName != nil {
		owner := *d.OwnerName
		if d.OwnerAccountID != nil {
			owner += " / " + *d.OwnerAccountID
		}
		m.AddRows(field("Owner", owner))
	}
	if d.IssuanceDate != nil {
		m.AddRows(field("Issued", d.IssuanceDate.Format(dateLayout)))
	}
	if d.RetirementDate != nil {
		m.AddRows(field("Retired", d.RetirementDate.Format(dateLayout)))
	}
	if d.RetirementBeneficiary != nil {
		m.AddRows(field("Beneficiary", *d.RetirementBeneficiary))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return doc.GetBytes(), nil
}

// FormatTonnes prints a tonnage with three decimals.
func FormatTonnes(v float64) string {
	return decimal.NewFromFloat(v).Round(3).StringFixed(3)
}

func field(label, value string) core.Row {
	return row.New(6).Add(
		text.NewCol(5, label, labelStyle),
		text.NewCol(7, value, valueStyle),
	)
}

func amount(label string, v float64) core.Row {
	return row.New(6).Add(
		text.NewCol(6, label, valueStyle),
		text.NewCol(6, FormatTonnes(v)+" tCO2e", numStyle),
	)
}
