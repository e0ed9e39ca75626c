package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dashboard/chat"
	"dashboard/config"
	"dashboard/connectivity"
	"dashboard/models"
	"dashboard/providers"
	"dashboard/store"
	"dashboard/weather"
)

var cfg *config.Config

func main() {
	// Загружаем конфигурацию
	var err error
	cfg, err = config.Load()
	if err != nil {
		config.ErrorLogger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logCloser, err := config.SetupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		config.ErrorLogger.Fatalf("Ошибка настройки логов: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rootCmd = &cobra.Command{
		Use:           "dashboard",
		Short:         "Личная панель: погода и ИИ-чат",
		Long:          "Погода QWeather с кешем и повторами, потоковый чат с ассистентом",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Погода
	var weatherCmd = &cobra.Command{
		Use:   "weather [город]",
		Short: "Показать погоду для города",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			city := cfg.DefaultCity
			if len(args) == 1 {
				city = args[0]
			}
			output, _ := cmd.Flags().GetString("output")
			offline, _ := cmd.Flags().GetBool("offline")
			return getWeatherCLI(cmd.Context(), city, output, offline)
		},
	}
	weatherCmd.Flags().StringP("output", "o", "text", "Формат вывода (text, json)")
	weatherCmd.Flags().Bool("offline", false, "Не обращаться к сети, только кеш")

	// Интерактивный чат
	var chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Интерактивный чат с ассистентом",
		Long:  "Enter отправляет сообщение, \\ в конце строки переносит ввод. Команды: /clear, /history, /weather [город], /exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatREPL(cmd.Context(), os.Stdin, os.Stdout)
		},
	}

	var askCmd = &cobra.Command{
		Use:   "ask [сообщение]",
		Short: "Отправить одно сообщение ассистенту",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ask(cmd.Context(), strings.Join(args, " "))
		},
	}

	var historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Показать сохраненную переписку",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *chat.Session) error {
				printTranscript(os.Stdout, s.Transcript())
				return nil
			})
		},
	}

	var clearChatCmd = &cobra.Command{
		Use:   "clear-chat",
		Short: "Очистить переписку",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(s *chat.Session) error {
				if err := s.Clear(); err != nil {
					return err
				}
				fmt.Println("✅ Переписка очищена")
				return nil
			})
		},
	}

	// Команда для очистки кеша
	var clearCacheCmd = &cobra.Command{
		Use:   "clear-cache",
		Short: "Очистить кеш погоды",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache()
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Показать состояние провайдеров, хранилища и сети",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context())
		},
	}

	rootCmd.AddCommand(weatherCmd, chatCmd, askCmd, historyCmd, clearChatCmd, clearCacheCmd, statusCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logCloser.Close()
		os.Exit(1)
	}
}

func newWeatherClient(kv store.Store, monitor *connectivity.Monitor) *weather.Client {
	provider := providers.NewQWeatherProvider(cfg)
	return weather.NewClient(weather.Config{TTL: cfg.CacheTTL(), Lang: cfg.WeatherLang}, provider, kv, monitor)
}

func newChatSession(kv store.Store) (*chat.Session, error) {
	return chat.NewSession(chat.Config{
		Greeting:      cfg.ChatGreeting,
		SystemPrompt:  cfg.ChatSystemPrompt,
		HistoryWindow: cfg.ChatHistoryWindow,
	}, providers.NewCompletionProvider(cfg), kv)
}

// withSession открывает хранилище и сессию чата на время fn
func withSession(fn func(s *chat.Session) error) error {
	kv, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	s, err := newChatSession(kv)
	if err != nil {
		return err
	}
	return fn(s)
}

// getWeatherCLI получает погоду через CLI
func getWeatherCLI(ctx context.Context, city, output string, offline bool) error {
	if !offline {
		if err := cfg.RequireWeather(); err != nil {
			return err
		}
	}

	kv, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	monitor := connectivity.NewMonitor(cfg.NetProbeAddr)
	if offline {
		monitor.Set(false)
	} else {
		monitor.Probe(ctx)
	}

	snapshot, err := newWeatherClient(kv, monitor).Fetch(ctx, city)
	if err != nil {
		var fetchErr *weather.FetchError
		if errors.As(err, &fetchErr) {
			return errors.New(fetchErr.Message)
		}
		return err
	}

	if output == "json" {
		data, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	printWeather(os.Stdout, snapshot)
	return nil
}

func printWeather(w io.Writer, s *models.WeatherSnapshot) {
	fmt.Fprintf(w, "🌤️  Погода: %s, %s\n", s.Location, s.Country)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Сейчас: %d°C, %s [%s]\n", s.Current.Temperature, s.Current.Condition, s.Current.Icon)
	fmt.Fprintf(w, "Ощущается как: %d°C\n", s.Current.FeelsLike)
	fmt.Fprintf(w, "Влажность: %d%%\n", s.Current.Humidity)
	fmt.Fprintf(w, "Ветер: %d км/ч, %s балл.\n", s.Current.WindSpeed, s.Current.WindScale)
	fmt.Fprintf(w, "Давление: %d hPa, видимость: %d км\n", s.Current.Pressure, s.Current.Visibility)
	fmt.Fprintf(w, "Наблюдение: %s\n", s.Current.ObservedAt.Format("02.01 15:04"))

	fmt.Fprintln(w, "\nПо часам:")
	for _, h := range s.Hourly {
		fmt.Fprintf(w, "  %s  %3d°C  осадки %d%%\n", h.Time, h.Temp, h.PrecipProb)
	}

	fmt.Fprintln(w, "\nПо дням:")
	for _, d := range s.Daily {
		fmt.Fprintf(w, "  %s %s  %3d..%d°C  %s, осадки %.1f мм\n",
			d.DayOfWeek, d.Date, d.LowTemp, d.HighTemp, d.Condition, d.PrecipMM)
	}

	fmt.Fprintf(w, "\nОбновлено: %s\n", s.FetchedAt.Format("15:04:05"))
}

func printTranscript(w io.Writer, msgs []models.ChatMessage) {
	for _, m := range msgs {
		label := "Вы"
		if m.Role == models.RoleAssistant {
			label = "Ассистент"
		}
		fmt.Fprintf(w, "%s: %s\n\n", label, m.Content)
	}
}

// ask отправляет одно сообщение и печатает ответ по мере поступления
func ask(ctx context.Context, text string) error {
	if err := cfg.RequireChat(); err != nil {
		return err
	}

	return withSession(func(s *chat.Session) error {
		reply, err := s.Send(ctx, text, func(delta string) {
			fmt.Print(delta)
		})
		if err != nil {
			if errors.Is(err, chat.ErrEmptyInput) {
				return err
			}
			fmt.Print(reply.Content)
		}
		fmt.Println()
		return nil
	})
}

// runChatREPL читает сообщения построчно; строка с \ в конце продолжается
func runChatREPL(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := cfg.RequireChat(); err != nil {
		return err
	}

	kv, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	session, err := newChatSession(kv)
	if err != nil {
		return err
	}

	monitor := connectivity.NewMonitor(cfg.NetProbeAddr)
	go monitor.Watch(ctx, cfg.NetProbeInterval)
	weatherClient := newWeatherClient(kv, monitor)

	printTranscript(out, session.Transcript())

	lines := make(chan string)
	go readLines(ctx, in, lines)

	var buf []string
	fmt.Fprint(out, "> ")
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		if strings.HasSuffix(line, "\\") {
			buf = append(buf, strings.TrimSuffix(line, "\\"))
			fmt.Fprint(out, "… ")
			continue
		}
		buf = append(buf, line)
		session.SetInput(strings.Join(buf, "\n"))
		buf = buf[:0]

		switch cmd := strings.TrimSpace(session.Input()); {
		case cmd == "/exit":
			return nil
		case cmd == "/clear":
			session.SetInput("")
			if err := session.Clear(); err != nil {
				config.Error("очистка переписки: %v", err)
			}
			printTranscript(out, session.Transcript())
		case cmd == "/history":
			session.SetInput("")
			printTranscript(out, session.Transcript())
		case cmd == "/weather" || strings.HasPrefix(cmd, "/weather "):
			session.SetInput("")
			city := strings.TrimSpace(strings.TrimPrefix(cmd, "/weather"))
			if city == "" {
				city = cfg.DefaultCity
			}
			snapshot, err := weatherClient.Fetch(ctx, city)
			if err != nil {
				var fetchErr *weather.FetchError
				if errors.As(err, &fetchErr) {
					fmt.Fprintln(out, fetchErr.Message)
				} else {
					fmt.Fprintln(out, err)
				}
				break
			}
			printWeather(out, snapshot)
		default:
			fmt.Fprint(out, "Ассистент: ")
			reply, err := session.Submit(ctx, func(delta string) {
				fmt.Fprint(out, delta)
			})
			if err != nil && !errors.Is(err, chat.ErrEmptyInput) {
				fmt.Fprint(out, reply.Content)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, "\n> ")
	}
}

// readLines передает строки из in в lines до EOF или отмены ctx, затем закрывает lines
func readLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// clearCache очищает кеш погоды
func clearCache() error {
	kv, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	n, err := newWeatherClient(kv, connectivity.NewMonitor(cfg.NetProbeAddr)).ClearCache()
	if err != nil {
		return err
	}
	fmt.Printf("✅ Кеш очищен, удалено записей: %d\n", n)
	return nil
}

// showStatus показывает состояние провайдеров, хранилища и сети
func showStatus(ctx context.Context) error {
	fmt.Println("📡 Состояние панели:")
	fmt.Println(strings.Repeat("-", 30))

	if cfg.RequireWeather() == nil {
		fmt.Println("✓ QWeather")
	} else {
		fmt.Println("✗ QWeather (не настроен)")
	}
	if cfg.RequireChat() == nil {
		fmt.Printf("✓ Чат (%s)\n", cfg.ChatModel)
	} else {
		fmt.Println("✗ Чат (не настроен)")
	}

	kv, err := store.Open(cfg)
	if err != nil {
		fmt.Printf("✗ Хранилище %s: %v\n", cfg.StoreBackend, err)
	} else {
		defer kv.Close()
		keys, _ := kv.Keys(weather.CachePrefix)
		fmt.Printf("✓ Хранилище %s, записей погоды: %d\n", cfg.StoreBackend, len(keys))
	}

	monitor := connectivity.NewMonitor(cfg.NetProbeAddr)
	if monitor.Probe(ctx) {
		fmt.Printf("✓ Сеть (%s)\n", cfg.NetProbeAddr)
	} else {
		fmt.Printf("✗ Сеть недоступна (%s)\n", cfg.NetProbeAddr)
	}
	return nil
}
