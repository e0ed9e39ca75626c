package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dashboard/config"
)

// QWeatherProvider клиент QWeather (геокодер + прогнозы)
type QWeatherProvider struct {
	apiKey  string
	geoURL  string
	apiURL  string
	lang    string
	client  *http.Client
	limiter *rate.Limiter
	retry   RetryPolicy
}

func NewQWeatherProvider(cfg *config.Config) *QWeatherProvider {
	limit := rate.Inf
	if cfg.WeatherRPS > 0 {
		limit = rate.Limit(cfg.WeatherRPS)
	}
	burst := cfg.WeatherBurst
	if burst < 1 {
		burst = 1
	}

	return &QWeatherProvider{
		apiKey: cfg.WeatherAPIKey,
		geoURL: strings.TrimRight(cfg.WeatherGeoURL, "/"),
		apiURL: strings.TrimRight(cfg.WeatherAPIURL, "/"),
		lang:   cfg.WeatherLang,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
		retry:   DefaultRetryPolicy(),
	}
}

// SetRetryPolicy заменяет политику повторов
func (p *QWeatherProvider) SetRetryPolicy(policy RetryPolicy) {
	p.retry = policy
}

func (p *QWeatherProvider) Name() string {
	return "QWeather"
}

func (p *QWeatherProvider) IsAvailable() bool {
	return p.apiKey != ""
}

func (p *QWeatherProvider) LookupCity(ctx context.Context, name string) (City, error) {
	var result struct {
		Code     string `json:"code"`
		Location []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"location"`
	}

	query := url.Values{}
	query.Set("location", name)
	if err := p.get(ctx, p.geoURL+"/v2/city/lookup", query, &result); err != nil {
		return City{}, err
	}

	// геокодер отвечает "404", если ничего не найдено
	if result.Code == "404" || (result.Code == "200" && len(result.Location) == 0) {
		return City{}, fmt.Errorf("%w: %s", ErrCityNotFound, name)
	}
	if result.Code != "200" {
		return City{}, &APIError{Endpoint: "city/lookup", Code: result.Code}
	}

	loc := result.Location[0]
	return City{ID: loc.ID, Name: loc.Name, Country: loc.Country}, nil
}

func (p *QWeatherProvider) Now(ctx context.Context, cityID string) (NowData, error) {
	var result struct {
		Code string  `json:"code"`
		Now  NowData `json:"now"`
	}
	if err := p.get(ctx, p.apiURL+"/v7/weather/now", p.forecastQuery(cityID), &result); err != nil {
		return NowData{}, err
	}
	if result.Code != "200" {
		return NowData{}, &APIError{Endpoint: "weather/now", Code: result.Code}
	}
	return result.Now, nil
}

func (p *QWeatherProvider) Daily(ctx context.Context, cityID string) ([]DailyData, error) {
	var result struct {
		Code  string      `json:"code"`
		Daily []DailyData `json:"daily"`
	}
	if err := p.get(ctx, p.apiURL+"/v7/weather/7d", p.forecastQuery(cityID), &result); err != nil {
		return nil, err
	}
	if result.Code != "200" {
		return nil, &APIError{Endpoint: "weather/7d", Code: result.Code}
	}
	if len(result.Daily) == 0 {
		return nil, errors.New("пустой прогноз на 7 дней")
	}
	return result.Daily, nil
}

func (p *QWeatherProvider) Hourly(ctx context.Context, cityID string) ([]HourlyData, error) {
	var result struct {
		Code   string       `json:"code"`
		Hourly []HourlyData `json:"hourly"`
	}
	if err := p.get(ctx, p.apiURL+"/v7/weather/24h", p.forecastQuery(cityID), &result); err != nil {
		return nil, err
	}
	if result.Code != "200" {
		return nil, &APIError{Endpoint: "weather/24h", Code: result.Code}
	}
	if len(result.Hourly) == 0 {
		return nil, errors.New("пустой почасовой прогноз")
	}
	return result.Hourly, nil
}

func (p *QWeatherProvider) forecastQuery(cityID string) url.Values {
	query := url.Values{}
	query.Set("location", cityID)
	if p.lang != "" {
		query.Set("lang", p.lang)
	}
	return query
}

// get выполняет GET с повторами и декодирует JSON в out
func (p *QWeatherProvider) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if !p.IsAvailable() {
		return fmt.Errorf("провайдер %s не настроен", p.Name())
	}
	query.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := Retry(ctx, p.retry, func(ctx context.Context) (*http.Response, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.client.Do(req.Clone(ctx))
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON: %w", err)
	}
	return nil
}

var _ WeatherProvider = (*QWeatherProvider)(nil)
