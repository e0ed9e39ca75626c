package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrCityNotFound геокодер не нашел город
var ErrCityNotFound = errors.New("город не найден")

// APIError ответ провайдера со статусом в теле, отличным от "200"
type APIError struct {
	Endpoint string
	Code     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ошибка API погоды (%s): код %s", e.Endpoint, e.Code)
}

// City результат геокодирования
type City struct {
	ID      string
	Name    string
	Country string
}

// WeatherProvider интерфейс погодного провайдера.
// Каждый метод - один сетевой запрос (с повторами внутри).
type WeatherProvider interface {
	Name() string
	LookupCity(ctx context.Context, name string) (City, error)
	Now(ctx context.Context, cityID string) (NowData, error)
	Daily(ctx context.Context, cityID string) ([]DailyData, error)
	Hourly(ctx context.Context, cityID string) ([]HourlyData, error)
}

// NowData текущая погода в формате провайдера (все значения строками)
type NowData struct {
	ObsTime   string `json:"obsTime"`
	Temp      string `json:"temp"`
	FeelsLike string `json:"feelsLike"`
	Icon      string `json:"icon"`
	Text      string `json:"text"`
	WindScale string `json:"windScale"`
	WindSpeed string `json:"windSpeed"`
	Humidity  string `json:"humidity"`
	Pressure  string `json:"pressure"`
	Vis       string `json:"vis"`
}

// DailyData один день прогноза
type DailyData struct {
	FxDate       string `json:"fxDate"`
	TempMax      string `json:"tempMax"`
	TempMin      string `json:"tempMin"`
	IconDay      string `json:"iconDay"`
	TextDay      string `json:"textDay"`
	WindScaleDay string `json:"windScaleDay"`
	WindSpeedDay string `json:"windSpeedDay"`
	Humidity     string `json:"humidity"`
	Precip       string `json:"precip"`
}

// HourlyData один час прогноза
type HourlyData struct {
	FxTime string `json:"fxTime"`
	Temp   string `json:"temp"`
	Icon   string `json:"icon"`
	Text   string `json:"text"`
	Pop    string `json:"pop"`
}
