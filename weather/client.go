package weather

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"dashboard/config"
	"dashboard/connectivity"
	"dashboard/models"
	"dashboard/providers"
	"dashboard/store"
)

const (
	maxDaily  = 7
	maxHourly = 24
)

// Подписи дней недели на языке ответов провайдера, от воскресенья
var weekdayLabels = map[string][7]string{
	"zh": {"周日", "周一", "周二", "周三", "周四", "周五", "周六"},
	"en": {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	"ru": {"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"},
}

const defaultLang = "zh"

type Config struct {
	TTL  time.Duration
	Lang string // язык ответов провайдера (QWEATHER_LANG)
	Now  func() time.Time
}

// Client получает погоду через провайдера и кеширует результат в хранилище
type Client struct {
	provider providers.WeatherProvider
	kv       store.Store
	net      connectivity.Checker
	ttl      time.Duration
	weekdays [7]string
	now      func() time.Time
	busy     atomic.Bool
}

func NewClient(cfg Config, provider providers.WeatherProvider, kv store.Store, net connectivity.Checker) *Client {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		provider: provider,
		kv:       kv,
		net:      net,
		ttl:      ttl,
		weekdays: weekdaysFor(cfg.Lang),
		now:      now,
	}
}

// Fetch возвращает погоду для города.
// Свежая запись кеша возвращается без сетевых запросов; иначе выполняются
// четыре последовательных запроса и результат кешируется под city как есть.
func (c *Client) Fetch(ctx context.Context, city string) (*models.WeatherSnapshot, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	if cached, found := c.getFromCache(city); found {
		config.Debug("погода для %q из кеша", city)
		return cached, nil
	}

	if c.net != nil && !c.net.Online() {
		return nil, &FetchError{Kind: KindOffline, Message: msgOffline}
	}

	snapshot, err := c.fetchRemote(ctx, city)
	if err != nil {
		fetchErr := classify(err)
		config.Error("ошибка получения погоды для %q: %v", city, err)
		return nil, fetchErr
	}

	if err := c.saveToCache(city, snapshot); err != nil {
		config.Warning("не удалось сохранить кеш для %q: %v", city, err)
	}

	return snapshot, nil
}

func (c *Client) fetchRemote(ctx context.Context, city string) (*models.WeatherSnapshot, error) {
	loc, err := c.provider.LookupCity(ctx, city)
	if err != nil {
		return nil, err
	}
	now, err := c.provider.Now(ctx, loc.ID)
	if err != nil {
		return nil, err
	}
	daily, err := c.provider.Daily(ctx, loc.ID)
	if err != nil {
		return nil, err
	}
	hourly, err := c.provider.Hourly(ctx, loc.ID)
	if err != nil {
		return nil, err
	}

	return buildSnapshot(loc, now, daily, hourly, c.weekdays, c.now()), nil
}

// weekdaysFor подписи для языка; "zh-hant" и "en-US" сводятся к основному языку
func weekdaysFor(lang string) [7]string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if labels, ok := weekdayLabels[lang]; ok {
		return labels
	}
	return weekdayLabels[defaultLang]
}

func buildSnapshot(loc providers.City, now providers.NowData, daily []providers.DailyData, hourly []providers.HourlyData, weekdays [7]string, fetchedAt time.Time) *models.WeatherSnapshot {
	snapshot := &models.WeatherSnapshot{
		Location: loc.Name,
		Country:  loc.Country,
		Current: models.CurrentWeather{
			Temperature:   atoi(now.Temp),
			FeelsLike:     atoi(now.FeelsLike),
			Condition:     now.Text,
			ConditionCode: now.Icon,
			Icon:          IconFor(now.Icon),
			Humidity:      atoi(now.Humidity),
			WindSpeed:     atoi(now.WindSpeed),
			WindScale:     orZero(now.WindScale),
			Pressure:      atoi(now.Pressure),
			Visibility:    atoi(now.Vis),
			ObservedAt:    parseObsTime(now.ObsTime, fetchedAt),
		},
		FetchedAt: fetchedAt,
	}

	if len(daily) > maxDaily {
		daily = daily[:maxDaily]
	}
	for _, d := range daily {
		snapshot.Daily = append(snapshot.Daily, models.DailyForecast{
			Date:      shortDate(d.FxDate),
			DayOfWeek: dayOfWeek(d.FxDate, weekdays),
			Condition: d.TextDay,
			Icon:      IconFor(d.IconDay),
			HighTemp:  atoi(d.TempMax),
			LowTemp:   atoi(d.TempMin),
			Humidity:  atoi(d.Humidity),
			WindSpeed: atoi(d.WindSpeedDay),
			WindScale: orZero(d.WindScaleDay),
			PrecipMM:  atof(d.Precip),
		})
	}

	if len(hourly) > maxHourly {
		hourly = hourly[:maxHourly]
	}
	for _, h := range hourly {
		snapshot.Hourly = append(snapshot.Hourly, models.HourlyForecast{
			Time:       clockTime(h.FxTime),
			Temp:       atoi(h.Temp),
			Icon:       IconFor(h.Icon),
			PrecipProb: atoi(h.Pop),
		})
	}

	return snapshot
}

// atoi разбирает целое; дробная часть отбрасывается, мусор дает 0
func atoi(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// shortDate "2024-05-01" -> "05-01"
func shortDate(fxDate string) string {
	if len(fxDate) >= 10 {
		return fxDate[5:10]
	}
	return fxDate
}

// clockTime "2024-05-01T13:00+08:00" -> "13:00"
func clockTime(fxTime string) string {
	if len(fxTime) >= 16 {
		return fxTime[11:16]
	}
	return fxTime
}

func dayOfWeek(fxDate string, weekdays [7]string) string {
	d, err := time.Parse(time.DateOnly, fxDate)
	if err != nil {
		return ""
	}
	return weekdays[d.Weekday()]
}

func parseObsTime(obs string, fallback time.Time) time.Time {
	if t, err := time.Parse("2006-01-02T15:04Z07:00", obs); err == nil {
		return t
	}
	return fallback
}
