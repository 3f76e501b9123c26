package weather

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"agrisa-ops/internal/models"
)

// Observation is one province-day of fetched data.
type Observation struct {
	Province string
	Date     models.Date
	Summary  *DaySummary
}

type column struct {
	header string
	value  func(*DaySummary) float64
}

var datasetColumns = map[models.WeatherDataset][]column{
	models.DatasetDailySummary: {
		{"temp_min_c", func(s *DaySummary) float64 { return s.Temperature.Min }},
		{"temp_max_c", func(s *DaySummary) float64 { return s.Temperature.Max }},
		{"precipitation_mm", func(s *DaySummary) float64 { return s.Precipitation.Total }},
		{"humidity_afternoon_pct", func(s *DaySummary) float64 { return s.Humidity.Afternoon }},
		{"cloud_cover_afternoon_pct", func(s *DaySummary) float64 { return s.CloudCover.Afternoon }},
		{"pressure_afternoon_hpa", func(s *DaySummary) float64 { return s.Pressure.Afternoon }},
		{"wind_max_speed_ms", func(s *DaySummary) float64 { return s.Wind.Max.Speed }},
	},
	models.DatasetDailyPrecipitation: {
		{"precipitation_mm", func(s *DaySummary) float64 { return s.Precipitation.Total }},
	},
	models.DatasetDailyTemperature: {
		{"temp_min_c", func(s *DaySummary) float64 { return s.Temperature.Min }},
		{"temp_max_c", func(s *DaySummary) float64 { return s.Temperature.Max }},
		{"temp_morning_c", func(s *DaySummary) float64 { return s.Temperature.Morning }},
		{"temp_afternoon_c", func(s *DaySummary) float64 { return s.Temperature.Afternoon }},
		{"temp_evening_c", func(s *DaySummary) float64 { return s.Temperature.Evening }},
		{"temp_night_c", func(s *DaySummary) float64 { return s.Temperature.Night }},
	},
}

// RenderCSV writes observations sorted by province then date, with the
// columns of dataset after province, date, lat and lon.
func RenderCSV(dataset models.WeatherDataset, observations []Observation) ([]byte, error) {
	columns, ok := datasetColumns[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dataset %q", models.ErrInvalidParameter, dataset)
	}

	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Province != sorted[j].Province {
			return sorted[i].Province < sorted[j].Province
		}
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"province", "date", "lat", "lon"}
	for _, c := range columns {
		header = append(header, c.header)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, obs := range sorted {
		if obs.Summary == nil {
			return nil, fmt.Errorf("missing data for %s on %s", obs.Province, obs.Date)
		}
		record := []string{obs.Province, obs.Date.String(), formatFloat(obs.Summary.Lat), formatFloat(obs.Summary.Lon)}
		for _, c := range columns {
			record = append(record, formatFloat(c.value(obs.Summary)))
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
