package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherJobStatus_Advances(t *testing.T) {
	tests := []struct {
		from, to WeatherJobStatus
		want     bool
	}{
		{WeatherJobQueued, WeatherJobRunning, true},
		{WeatherJobQueued, WeatherJobFailed, true},
		{WeatherJobQueued, WeatherJobCompleted, true},
		{WeatherJobRunning, WeatherJobCompleted, true},
		{WeatherJobRunning, WeatherJobFailed, true},
		{WeatherJobRunning, WeatherJobQueued, false},
		{WeatherJobRunning, WeatherJobRunning, false},
		{WeatherJobCompleted, WeatherJobFailed, false},
		{WeatherJobFailed, WeatherJobCompleted, false},
		{WeatherJobQueued, WeatherJobStatus("paused"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.Advances(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestWeatherJobStatus_Predecessors(t *testing.T) {
	assert.Equal(t, []WeatherJobStatus{WeatherJobQueued}, WeatherJobRunning.Predecessors())
	assert.Equal(t, []WeatherJobStatus{WeatherJobRunning}, WeatherJobCompleted.Predecessors())
	assert.ElementsMatch(t, []WeatherJobStatus{WeatherJobQueued, WeatherJobRunning}, WeatherJobFailed.Predecessors())
	assert.Nil(t, WeatherJobQueued.Predecessors())
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2026, time.March, 4)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-04"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, d.Equal(back.Time))

	err = json.Unmarshal([]byte(`"04/03/2026"`), &back)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestDateRange_Validate(t *testing.T) {
	ok := DateRange{Start: NewDate(2026, 1, 1), End: NewDate(2026, 1, 1)}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, 1, ok.Days())

	reversed := DateRange{Start: NewDate(2026, 2, 1), End: NewDate(2026, 1, 1)}
	assert.ErrorIs(t, reversed.Validate(), ErrInvalidParameter)

	assert.ErrorIs(t, DateRange{}.Validate(), ErrInvalidParameter)
}

func TestDateRange_Each(t *testing.T) {
	r := DateRange{Start: NewDate(2026, 2, 27), End: NewDate(2026, 3, 2)}

	var days []string
	require.NoError(t, r.Each(func(d Date) error {
		days = append(days, d.String())
		return nil
	}))

	assert.Equal(t, []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}, days)
	assert.Equal(t, 4, r.Days())
}

func TestProduct_ValidateAndSeason(t *testing.T) {
	p := Product{
		CoverageStart:         NewDate(2026, 11, 1),
		CoverageEnd:           NewDate(2027, 3, 31),
		PremiumRatePerHectare: 25,
	}
	assert.NoError(t, p.Validate())
	assert.Equal(t, "2026-2027", p.DefaultSeason())

	p.PremiumRatePerHectare = -1
	assert.ErrorIs(t, p.Validate(), ErrInvalidParameter)

	p.PremiumRatePerHectare = 1
	p.CoverageEnd = NewDate(2026, 1, 1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidParameter)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.Join(errors.New("dial tcp"), ErrUnavailable)))
	assert.False(t, IsRetryable(ErrNotFound))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeInvalidParameter, ErrorCode(ErrInvalidParameter))
	assert.Equal(t, CodeInvalidReference, ErrorCode(errors.Join(errors.New("plot p9"), ErrInvalidReference)))
	assert.Equal(t, CodeNotFound, ErrorCode(ErrNotFound))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(ErrInvalidParameter))
	assert.Equal(t, 409, HTTPStatus(fmt.Errorf("%w: confirmed", ErrInvalidState)))
	assert.Equal(t, 422, HTTPStatus(ErrInvalidReference))
	assert.Equal(t, 503, HTTPStatus(ErrUnavailable))
	assert.Equal(t, 500, HTTPStatus(errors.New("boom")))
}
