package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"agrisa-ops/internal/config"
	"agrisa-ops/internal/gateway"
	"agrisa-ops/internal/models"

	"github.com/sony/gobreaker"
)

// DaySummary is the OpenWeather One Call 3.0 daily aggregation for one
// coordinate and date.
type DaySummary struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Tz         string  `json:"tz"`
	Date       string  `json:"date"`
	Units      string  `json:"units"`
	CloudCover struct {
		Afternoon float64 `json:"afternoon"`
	} `json:"cloud_cover"`
	Humidity struct {
		Afternoon float64 `json:"afternoon"`
	} `json:"humidity"`
	Precipitation struct {
		Total float64 `json:"total"`
	} `json:"precipitation"`
	Temperature struct {
		Min       float64 `json:"min"`
		Max       float64 `json:"max"`
		Afternoon float64 `json:"afternoon"`
		Night     float64 `json:"night"`
		Evening   float64 `json:"evening"`
		Morning   float64 `json:"morning"`
	} `json:"temperature"`
	Pressure struct {
		Afternoon float64 `json:"afternoon"`
	} `json:"pressure"`
	Wind struct {
		Max struct {
			Speed     float64 `json:"speed"`
			Direction float64 `json:"direction"`
		} `json:"max"`
	} `json:"wind"`
}

type DaySummaryFetcher interface {
	FetchDaySummary(ctx context.Context, lat, lon float64, date models.Date) (*DaySummary, error)
}

// OpenWeatherClient calls the day_summary endpoint behind a circuit breaker.
// Transport failures, 429 and 5xx answers count against the breaker and
// surface as ErrUnavailable. Other 4xx answers are ErrInvalidParameter.
type OpenWeatherClient struct {
	cfg     config.WeatherAPIConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewOpenWeatherClient(cfg config.WeatherAPIConfig, breakerCfg config.BreakerConfig) *OpenWeatherClient {
	return &OpenWeatherClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gateway.NewBreaker("openweather", breakerCfg),
	}
}

func (c *OpenWeatherClient) FetchDaySummary(ctx context.Context, lat, lon float64, date models.Date) (*DaySummary, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: weather API key not configured", models.ErrUnavailable)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, lat, lon, date)
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidParameter) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: openweather: %w", models.ErrUnavailable, err)
	}
	return result.(*DaySummary), nil
}

func (c *OpenWeatherClient) fetch(ctx context.Context, lat, lon float64, date models.Date) (*DaySummary, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	query.Set("date", date.String())
	query.Set("appid", c.cfg.APIKey)
	if c.cfg.Units != "" {
		query.Set("units", c.cfg.Units)
	}
	endpoint := c.cfg.BaseURL + "/onecall/day_summary?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", withoutURL(err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather API: %w", withoutURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		slog.Warn("weather API unavailable", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("weather API returned %d", resp.StatusCode)
	default:
		slog.Error("weather API rejected request", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: weather API returned %d", models.ErrInvalidParameter, resp.StatusCode)
	}

	var summary DaySummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}
	return &summary, nil
}

// withoutURL drops the request URL from a *url.Error. The query carries the
// API key and errors end up in job records.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
