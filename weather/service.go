// Package weather polls openweathermap and sunrise-sunset.org on a fixed
// interval and writes the results into the shared store's weather cache.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/jcpope/homehub/store"
)

const (
	weatherURL  = "https://api.openweathermap.org/data/2.5/weather"
	forecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	sunURL      = "https://api.sunrise-sunset.org/json"
	ipInfoURL   = "https://ipapi.co/json/"

	refreshInterval = 3 * time.Minute
)

type Service struct {
	httpc  *http.Client
	store  *store.Store
	apiKey string
}

func NewService(st *store.Store, apiKey string) *Service {
	return &Service{
		httpc:  &http.Client{Timeout: 10 * time.Second},
		store:  st,
		apiKey: apiKey,
	}
}

// Start fetches geolocation, does one immediate weather fetch and then
// polls every three minutes until ctx is cancelled. API failures are
// logged and the previous cache kept.
func (s *Service) Start(ctx context.Context) {
	if s.apiKey == "" {
		slog.Warn("No weather API key provided, weather service disabled")
		return
	}

	s.fetchLocation(ctx)
	s.fetchAll(ctx)

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.fetchAll(ctx)
			}
		}
	}()

	slog.Info("Weather service started", "interval", refreshInterval)
}

// fetchLocation resolves the server's public geolocation for weather
// lookups and the getLocation endpoint.
func (s *Service) fetchLocation(ctx context.Context) {
	var info store.IPInfo
	if err := s.getJSON(ctx, ipInfoURL, &info); err != nil {
		slog.Warn("Failed to fetch geolocation", "error", err)
		return
	}
	if info.Latitude == 0 && info.Longitude == 0 {
		slog.Warn("Geolocation response had no coordinates")
		return
	}

	s.store.SetLocation(info)
	slog.Info("Resolved location", "city", info.City, "region", info.Region,
		"lat", info.Latitude, "lon", info.Longitude)
}

func (s *Service) fetchAll(ctx context.Context) {
	loc, ok := s.store.Location()
	if !ok {
		slog.Debug("No location data available, skipping weather fetch")
		s.fetchLocation(ctx)
		return
	}

	current, err := s.fetchCurrent(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		slog.Warn("Failed to fetch current weather", "error", err)
		return
	}

	forecast, err := s.fetchForecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		slog.Warn("Failed to fetch forecast", "error", err)
		forecast = nil
	}

	sun, err := s.fetchSunTimes(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		slog.Warn("Failed to fetch sun times", "error", err)
	}

	s.store.SetWeather(current, forecast, sun, refreshInterval)
	slog.Debug("Weather updated", "condition", current.Condition, "temp", current.Temp)
}

type owmCurrent struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
	Clouds     struct {
		All int `json:"all"`
	} `json:"clouds"`
}

func (s *Service) fetchCurrent(ctx context.Context, lat, lon float64) (store.WeatherData, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&units=metric&appid=%s", weatherURL, lat, lon, s.apiKey)

	var resp owmCurrent
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return store.WeatherData{}, err
	}

	data := store.WeatherData{
		Condition:   "Clear",
		Description: "clear sky",
		Temp:        round(resp.Main.Temp),
		FeelsLike:   round(resp.Main.FeelsLike),
		TempMin:     round(resp.Main.TempMin),
		TempMax:     round(resp.Main.TempMax),
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		WindSpeed:   round(resp.Wind.Speed * 3.6), // m/s to km/h
		WindDeg:     resp.Wind.Deg,
		Visibility:  resp.Visibility / 1000, // m to km
		Clouds:      resp.Clouds.All,
	}
	if len(resp.Weather) > 0 {
		data.Condition = resp.Weather[0].Main
		data.Description = resp.Weather[0].Description
	}
	return data, nil
}

type owmForecast struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp     float64 `json:"temp"`
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

// fetchForecast samples one entry per day, preferring the noon slot, for
// up to five days.
func (s *Service) fetchForecast(ctx context.Context, lat, lon float64) ([]store.ForecastDay, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&units=metric&appid=%s", forecastURL, lat, lon, s.apiKey)

	var resp owmForecast
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	forecast := make([]store.ForecastDay, 0, 5)
	seen := make(map[string]bool)

	for _, item := range resp.List {
		parts := strings.SplitN(item.DtTxt, " ", 2)
		if len(parts) != 2 {
			continue
		}
		date, clock := parts[0], parts[1]
		if seen[date] || !strings.HasPrefix(clock, "12:") {
			continue
		}

		day := store.ForecastDay{
			Date:      date,
			Temp:      round(item.Main.Temp),
			TempMin:   round(item.Main.TempMin),
			TempMax:   round(item.Main.TempMax),
			Condition: "Clear",
			Humidity:  item.Main.Humidity,
			WindSpeed: round(item.Wind.Speed * 3.6),
		}
		if len(item.Weather) > 0 {
			day.Condition = item.Weather[0].Main
		}
		forecast = append(forecast, day)
		seen[date] = true

		if len(forecast) >= 5 {
			break
		}
	}

	return forecast, nil
}

func (s *Service) fetchSunTimes(ctx context.Context, lat, lon float64) (store.SunTimes, error) {
	url := fmt.Sprintf("%s?lat=%f&lng=%f&formatted=0", sunURL, lat, lon)

	var resp struct {
		Results struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"results"`
	}
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return store.SunTimes{}, err
	}

	sunrise, err := time.Parse(time.RFC3339, resp.Results.Sunrise)
	if err != nil {
		return store.SunTimes{}, fmt.Errorf("parse sunrise %q: %w", resp.Results.Sunrise, err)
	}
	sunset, err := time.Parse(time.RFC3339, resp.Results.Sunset)
	if err != nil {
		return store.SunTimes{}, fmt.Errorf("parse sunset %q: %w", resp.Results.Sunset, err)
	}

	return store.SunTimes{
		Sunrise: decimalHour(sunrise.Local()),
		Sunset:  decimalHour(sunset.Local()),
	}, nil
}

func (s *Service) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "homehub/1.0")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func round(f float64) int {
	return int(math.Round(f))
}

func decimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}
