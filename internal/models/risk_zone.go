package models

// RiskLevel - уровень риска зоны
type RiskLevel string

const (
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskZone - аннотация риска, производная от активных инцидентов
type RiskZone struct {
	Area          string    `json:"area"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Reason        string    `json:"reason"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	IncidentCount int       `json:"incident_count"`
}
