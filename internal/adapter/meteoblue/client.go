package meteoblue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
)

// DefaultExpire is the signed URL expiry (2030-12-31) used for every request.
const DefaultExpire int64 = 1924948800

const forecastPath = "/packages/basic-1h"

// Client implements domain.Forecaster using the meteoblue packages API.
type Client struct {
	apiKey       string
	sharedSecret string
	expire       int64
	httpClient   *http.Client
	baseURL      string
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a meteoblue forecast client. Requests are signed with
// sharedSecret.
func NewClient(baseURL, apiKey, sharedSecret string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:       apiKey,
		sharedSecret: sharedSecret,
		expire:       DefaultExpire,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast fetches the hourly basic package for a coordinate.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.Forecast, error) {
	query := c.query(lat, lon)
	signed := c.baseURL + query + "&sig=" + Sign(c.sharedSecret, query)

	start := time.Now()
	fc, err := c.doRequest(ctx, signed)
	c.metrics.ClimateAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ClimateRequests.WithLabelValues("error").Inc()
		c.logger.Warn("forecast request failed", "lat", lat, "lon", lon, "error", err)
		return domain.Forecast{}, err
	}
	c.metrics.ClimateRequests.WithLabelValues("success").Inc()
	return fc, nil
}

// query builds the path and query string that gets signed. Parameter order is
// part of the signature.
func (c *Client) query(lat, lon float64) string {
	return fmt.Sprintf("%s?lat=%s&lon=%s&apikey=%s&expire=%d",
		forecastPath,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		url.QueryEscape(c.apiKey),
		c.expire,
	)
}

// Sign returns the hex HMAC-SHA256 of query under secret.
func Sign(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Forecast{}, fmt.Errorf("meteoblue API error: status %d: %s", resp.StatusCode, body)
	}

	var mbResp response
	if err := json.NewDecoder(resp.Body).Decode(&mbResp); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode response: %w", err)
	}
	return mbResp.toForecast()
}

// meteoblue API response types.

type response struct {
	Metadata metadata `json:"metadata"`
	Data1H   data1H   `json:"data_1h"`
}

type metadata struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Height        float64 `json:"height"`
	TimezoneAbbr  string  `json:"timezone_abbrevation"` // sic
	UTCTimeOffset float64 `json:"utc_timeoffset"`       // hours
}

type data1H struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature"`
	Precipitation            []float64 `json:"precipitation"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	RelativeHumidity         []float64 `json:"relativehumidity"`
	WindSpeed                []float64 `json:"windspeed"`
}

const timeLayout = "2006-01-02 15:04"

func (r response) toForecast() (domain.Forecast, error) {
	offset := int(r.Metadata.UTCTimeOffset * 3600)
	loc := time.FixedZone(r.Metadata.TimezoneAbbr, offset)

	fc := domain.Forecast{
		Lat:       r.Metadata.Latitude,
		Lon:       r.Metadata.Longitude,
		Elevation: r.Metadata.Height,
		Timezone:  r.Metadata.TimezoneAbbr,
		Hours:     make([]domain.ForecastHour, len(r.Data1H.Time)),
	}
	for i, ts := range r.Data1H.Time {
		t, err := time.ParseInLocation(timeLayout, ts, loc)
		if err != nil {
			return domain.Forecast{}, fmt.Errorf("parse forecast time %q: %w", ts, err)
		}
		fc.Hours[i] = domain.ForecastHour{
			Time:                     t,
			Temperature:              at(r.Data1H.Temperature, i),
			Precipitation:            at(r.Data1H.Precipitation, i),
			PrecipitationProbability: at(r.Data1H.PrecipitationProbability, i),
			RelativeHumidity:         at(r.Data1H.RelativeHumidity, i),
			WindSpeed:                at(r.Data1H.WindSpeed, i),
		}
	}
	return fc, nil
}

// at tolerates series shorter than the time axis.
func at(series []float64, i int) float64 {
	if i < len(series) {
		return series[i]
	}
	return 0
}
