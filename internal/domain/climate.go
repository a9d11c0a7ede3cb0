package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCoordinate is returned for a latitude or longitude outside the globe.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Forecaster fetches an hourly weather forecast for a coordinate.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (Forecast, error)
}

// Forecast is an hourly forecast for one location.
type Forecast struct {
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	Elevation float64        `json:"elevation"`
	Timezone  string         `json:"timezone"`
	Hours     []ForecastHour `json:"hours"`
}

// ForecastHour is one hourly step.
type ForecastHour struct {
	Time                     time.Time `json:"time"`
	Temperature              float64   `json:"temperature"`
	Precipitation            float64   `json:"precipitation"`
	PrecipitationProbability float64   `json:"precipitation_probability"`
	RelativeHumidity         float64   `json:"relative_humidity"`
	WindSpeed                float64   `json:"wind_speed"`
}

// ValidateCoordinate checks that lat and lon are finite and in range.
func ValidateCoordinate(lat, lon float64) error {
	if !finite(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat=%v", ErrInvalidCoordinate, lat)
	}
	if !finite(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lon=%v", ErrInvalidCoordinate, lon)
	}
	return nil
}
