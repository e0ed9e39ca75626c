package models

import (
	"time"
)

// WeatherSnapshot результат одного цикла получения погоды.
// Current, Daily и Hourly всегда заполняются вместе.
type WeatherSnapshot struct {
	Location  string           `json:"location"`
	Country   string           `json:"country"`
	Current   CurrentWeather   `json:"current"`
	Daily     []DailyForecast  `json:"forecast"`
	Hourly    []HourlyForecast `json:"hourly"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// CurrentWeather текущие условия
type CurrentWeather struct {
	Temperature   int       `json:"temperature"` // °C
	FeelsLike     int       `json:"feels_like"`  // ощущается как
	Condition     string    `json:"condition"`
	ConditionCode string    `json:"condition_code"`
	Icon          string    `json:"icon"`
	Humidity      int       `json:"humidity"`   // %
	WindSpeed     int       `json:"wind_speed"` // км/ч
	WindScale     string    `json:"wind_scale"` // баллы
	Pressure      int       `json:"pressure"`   // hPa
	Visibility    int       `json:"visibility"` // км
	ObservedAt    time.Time `json:"observed_at"`
}

// DailyForecast прогноз на один день
type DailyForecast struct {
	Date      string  `json:"date"`        // MM-DD
	DayOfWeek string  `json:"day_of_week"` // Пн, Вт, ...
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
	HighTemp  int     `json:"high_temp"`
	LowTemp   int     `json:"low_temp"`
	Humidity  int     `json:"humidity"`
	WindSpeed int     `json:"wind_speed"`
	WindScale string  `json:"wind_scale"`
	PrecipMM  float64 `json:"precip_mm"` // осадки, мм
}

// HourlyForecast прогноз на один час
type HourlyForecast struct {
	Time       string `json:"time"` // HH:MM
	Temp       int    `json:"temp"`
	Icon       string `json:"icon"`
	PrecipProb int    `json:"pop"` // вероятность осадков %
}

// Role роль автора сообщения в чате
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage одно сообщение переписки
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest тело запроса к провайдеру чата
type CompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}
