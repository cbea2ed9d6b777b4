package main

import (
	"bytes"
	"context"
	"fmt"
	"innercircle-xrp-bot/config"
	"innercircle-xrp-bot/internal/database"
	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/feed"
	"innercircle-xrp-bot/internal/store"
	"innercircle-xrp-bot/internal/telegram"
	"innercircle-xrp-bot/internal/watcher"
	"innercircle-xrp-bot/internal/xrpl"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

type BotMetrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	AlertsSent         prometheus.Counter
	PaymentsProcessed  prometheus.Counter
	ChannelsCount      prometheus.Gauge
	MessagesPerChannel *prometheus.CounterVec
	ChannelsSet        map[int64]string
	Mutex              sync.Mutex
}

var (
	metrics = NewBotMetrics()
)

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "innercircle",
			Subsystem: "xrp_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "innercircle",
			Subsystem: "xrp_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "innercircle",
			Subsystem: "xrp_bot",
			Name:      "alerts_sent",
			Help:      "The total number of launch alerts delivered",
		}),
		PaymentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "innercircle",
			Subsystem: "xrp_bot",
			Name:      "payments_processed",
			Help:      "The total number of qualifying payments processed",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "innercircle",
			Subsystem: "xrp_bot",
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "innercircle",
				Subsystem: "xrp_bot",
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per channel",
			},
			[]string{"chat_id", "chat_name"},
		),
		ChannelsSet: make(map[int64]string),
	}

	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.MessagesHandled)
	prometheus.MustRegister(metrics.AlertsSent)
	prometheus.MustRegister(metrics.PaymentsProcessed)
	prometheus.MustRegister(metrics.ChannelsCount)
	prometheus.MustRegister(metrics.MessagesPerChannel)

	return metrics
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	token := config.GetString("telegram_bot_token")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	wallet := config.GetString("xrp_wallet")
	if wallet == "" {
		log.Fatal("XRP_WALLET is required")
	}

	dataDir := config.GetString("data_dir")
	if err := database.InitDB(filepath.Join(dataDir, "bot.db")); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	LoadMetricsFromDB()

	st, err := store.New(dataDir)
	if err != nil {
		log.Fatalf("Failed to open data store: %v", err)
	}
	entitlements := entitlement.NewService(st)

	ledger := xrpl.NewClient()
	monitor := xrpl.NewMonitor(xrpl.MonitorConfig{
		Wallet:           wallet,
		MinAmountGroup:   config.GetFloat64("min_amount_group"),
		MinAmountPrivate: config.GetFloat64("min_amount_private"),
	}, ledger)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:            token,
		Debug:            config.GetBool("debug"),
		UpdatesTimeout:   60,
		Wallet:           wallet,
		MinAmountGroup:   config.GetFloat64("min_amount_group"),
		MinAmountPrivate: config.GetFloat64("min_amount_private"),
	}, telegram.Deps{
		Entitlements: entitlements,
		Launches:     feed.NewXPMarketClient(),
		Tokens:       feed.NewFirstLedgerClient(config.GetString("fl_api_key")),
		Ledger:       ledger,
		Payments:     monitor,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	launches, err := watcher.NewLaunchWatcher(watcher.LaunchWatcherOptions{
		Feed:       feed.NewXPMarketClient(),
		Audience:   entitlements,
		Notifier:   bot,
		Store:      st,
		Interval:   time.Duration(config.GetInt("poll_interval_seconds")) * time.Second,
		AlertsSent: metrics.AlertsSent,
	})
	if err != nil {
		log.Fatalf("Failed to create launch watcher: %v", err)
	}

	payments := watcher.NewPaymentHandler(watcher.PaymentHandlerOptions{
		Entitlements:      entitlements,
		Notifier:          bot,
		PaymentsProcessed: metrics.PaymentsProcessed,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	workers.Add(3)
	go func() {
		defer workers.Done()
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("payment monitor stopped: %v", err)
		}
	}()
	go func() {
		defer workers.Done()
		if err := payments.Run(ctx, monitor.Payments()); err != nil && ctx.Err() == nil {
			log.Errorf("payment handler stopped: %v", err)
		}
	}()
	go func() {
		defer workers.Done()
		if err := launches.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("launch watcher stopped: %v", err)
		}
	}()

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	go handleUpdates(bot, updates)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			SaveMetricsToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
		// In-flight store writes finish before the process exits.
		workers.Wait()
		SaveMetricsToDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message or non-command")
			continue
		}

		if len(update.Message.NewChatMembers) > 0 {
			handleGroupJoin(bot, update)
			continue
		}

		if !update.Message.IsCommand() {
			continue
		}

		metrics.MessagesHandled.Inc()

		chatID := update.Message.Chat.ID
		chatName := update.Message.Chat.Title
		if chatName == "" {
			chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
		}

		updateChannelsSet(chatID, chatName)

		metrics.MessagesPerChannel.WithLabelValues(
			fmt.Sprintf("%d", chatID), chatName,
		).Inc()

		handleCommand(bot, update)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := bot.HandleUpdate(update)
	if text == "" {
		// The handler replied on its own, e.g. /check.
		metrics.CommandsProcessed.Inc()
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		metrics.CommandsProcessed.Inc()
	}
}

// handleGroupJoin welcomes the chat when the bot itself is among the added
// members.
func handleGroupJoin(bot *telegram.Bot, update tgbotapi.Update) {
	added := false
	for _, member := range update.Message.NewChatMembers {
		if member.ID == bot.Bot.Self.ID {
			added = true
			break
		}
	}
	if !added {
		return
	}

	text := bot.HandleGroupJoin(update.Message.Chat)
	if err := bot.SendMessage(telegram.Message{ChatID: update.Message.Chat.ID, Text: text}); err != nil {
		log.Errorf("Failed to send group welcome: %v", err)
	}
}

func updateChannelsSet(chatID int64, chatName string) {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	if _, exists := metrics.ChannelsSet[chatID]; !exists {
		metrics.ChannelsSet[chatID] = chatName
		metrics.ChannelsCount.Set(float64(len(metrics.ChannelsSet)))
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func LoadMetricsFromDB() {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	commandsProcessed, _ := database.GetMetric("commands_processed")
	messagesHandled, _ := database.GetMetric("messages_handled")
	alertsSent, _ := database.GetMetric("alerts_sent")
	paymentsProcessed, _ := database.GetMetric("payments_processed")

	metrics.CommandsProcessed.Add(commandsProcessed)
	metrics.MessagesHandled.Add(messagesHandled)
	metrics.AlertsSent.Add(alertsSent)
	metrics.PaymentsProcessed.Add(paymentsProcessed)

	perChannel, _ := database.GetMetricsWithLabels("messages_per_channel")
	for chatID, names := range perChannel {
		for chatName, value := range names {
			metrics.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
		}
	}

	log.Println("Metrics loaded from database.")
}

func SaveMetricsToDB() {
	metrics.Mutex.Lock()
	defer metrics.Mutex.Unlock()

	database.SaveMetric("commands_processed", GetMetricValue(metrics.CommandsProcessed))
	database.SaveMetric("messages_handled", GetMetricValue(metrics.MessagesHandled))
	database.SaveMetric("alerts_sent", GetMetricValue(metrics.AlertsSent))
	database.SaveMetric("payments_processed", GetMetricValue(metrics.PaymentsProcessed))

	metricChan := make(chan prometheus.Metric, 64)
	go func() {
		metrics.MessagesPerChannel.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read MessagesPerChannel metric: %v", err)
			continue
		}
		var chatID, chatName string
		for _, label := range metricProto.Label {
			if label.GetName() == "chat_id" {
				chatID = label.GetValue()
			}
			if label.GetName() == "chat_name" {
				chatName = label.GetValue()
			}
		}
		database.SaveMetricWithLabels("messages_per_channel", chatID, chatName, metricProto.Counter.GetValue())
	}

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
