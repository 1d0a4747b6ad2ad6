package risk

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shenikar/safety_alert_system/internal/models"
)

const (
	metersPerDegreeLat = 111320.0
	highRiskThreshold  = 4
	minClusterSize     = 2
)

// DensityAnalyzer группирует активные инциденты по ячейкам координатной
// сетки и помечает ячейки с кучностью инцидентов как зоны риска.
type DensityAnalyzer struct {
	cellSizeMeters float64
}

// NewDensityAnalyzer создает анализатор с заданным размером ячейки в метрах
func NewDensityAnalyzer(cellSizeMeters float64) *DensityAnalyzer {
	if cellSizeMeters <= 0 {
		cellSizeMeters = 500
	}
	return &DensityAnalyzer{cellSizeMeters: cellSizeMeters}
}

type cell struct {
	latIdx, lngIdx int
}

// Analyze возвращает зоны риска для снапшота активных инцидентов
func (a *DensityAnalyzer) Analyze(ctx context.Context, incidents []*models.Incident) ([]models.RiskZone, error) {
	if len(incidents) == 0 {
		return nil, nil
	}

	clusters := make(map[cell][]*models.Incident)
	for _, incident := range incidents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := a.cellOf(incident.Latitude, incident.Longitude)
		clusters[c] = append(clusters[c], incident)
	}

	zones := make([]models.RiskZone, 0, len(clusters))
	for c, members := range clusters {
		if len(members) < minClusterSize {
			continue
		}

		var sumLat, sumLng float64
		for _, incident := range members {
			sumLat += incident.Latitude
			sumLng += incident.Longitude
		}

		level := models.RiskMedium
		if len(members) >= highRiskThreshold {
			level = models.RiskHigh
		}

		zones = append(zones, models.RiskZone{
			Area:          fmt.Sprintf("cell_%d_%d", c.latIdx, c.lngIdx),
			RiskLevel:     level,
			Reason:        fmt.Sprintf("%d active incidents within %.0f m", len(members), a.cellSizeMeters),
			Latitude:      sumLat / float64(len(members)),
			Longitude:     sumLng / float64(len(members)),
			IncidentCount: len(members),
		})
	}

	sort.Slice(zones, func(i, j int) bool {
		return zones[i].IncidentCount > zones[j].IncidentCount
	})
	return zones, nil
}

// cellOf возвращает ячейку сетки для координат. Долгота масштабируется
// косинусом широты, чтобы ячейки оставались примерно квадратными.
func (a *DensityAnalyzer) cellOf(lat, lng float64) cell {
	latStep := a.cellSizeMeters / metersPerDegreeLat
	lngStep := latStep / math.Max(math.Cos(lat*math.Pi/180), 0.01)
	return cell{
		latIdx: int(math.Floor(lat / latStep)),
		lngIdx: int(math.Floor(lng / lngStep)),
	}
}
