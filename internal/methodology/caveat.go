package methodology

// Caveat codes raised when a calculation falls back to a methodology default instead of measured data.
const (
	CaveatDefaultQualityValues      = "default_quality_values"
	CaveatDefaultSoilTemperature    = "default_soil_temperature"
	CaveatMissingLeakageAssessment  = "missing_leakage_assessment"
	CaveatUnknownEnergyType         = "unknown_energy_type"
	CaveatMissingInfrastructureLife = "missing_infrastructure_lifetime"
	CaveatUnsequesteredBiochar      = "unsequestered_biochar"
)

// Caveat is a non-fatal condition that lowers the credibility of a result and must reach the caller.
type Caveat struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
