package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loa-bot/internal/api"
	"loa-bot/internal/config"
	"loa-bot/internal/handler"
	"loa-bot/internal/notify"
	"loa-bot/internal/platform"
	"loa-bot/internal/repository"
	"loa-bot/internal/scheduler"
	"loa-bot/internal/service"
	"loa-bot/pkg/discord"
	"loa-bot/pkg/telegram"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetBotConfig()
	logrus.Info("Config initialized...")

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.WithError(err).Fatal("Invalid store timezone")
	}

	db, err := repository.OpenSQLite(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to get database instance")
	}

	leaveRepo, err := repository.NewGormLeaveRepository(db, loc, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create leave repository")
	}

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Discord session")
	}
	client := platform.NewDiscord(session, cfg.GuildID, cfg.LOARoleID)

	var notifiers []service.Notifier
	if cfg.LogChannelID != "" {
		notifiers = append(notifiers, notify.NewChannelNotifier(client, cfg.LogChannelID))
	} else {
		logger.Warn("LOG_CHANNEL_ID not set, leave notifications go nowhere on Discord")
	}
	if cfg.TelegramEnabled() {
		tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramLogChatID, cfg.PlatformTimeout, logger.IsLevelEnabled(logrus.DebugLevel))
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Telegram client")
		}
		notifiers = append(notifiers, notify.NewTelegramNotifier(tg))
		logger.Infof("Mirroring leave notifications to Telegram chat %d", cfg.TelegramLogChatID)
	}

	leaveService := service.NewLeaveService(leaveRepo, logger)
	effects := service.NewEffectApplier(client, cfg.PlatformTimeout, logger, notifiers...)

	sweeper := scheduler.NewExpirationSweeper(leaveService, effects, logger)
	sweeper.Interval = cfg.SweepInterval

	botHandler := handler.NewHandler(client, leaveService, effects, cfg, logger)
	session.AddHandler(botHandler.OnMessageCreate)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Infof("Logged in as %s (ID %s)", r.User.Username, r.User.ID)
		sweeper.Start()
	})

	if err := session.Open(); err != nil {
		logger.WithError(err).Fatal("Failed to open Discord session")
	}

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      api.NewRouter(api.NewHandler(leaveService, sweeper), cfg.CORSAllowedOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Infof("Status API listening on %s", cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Status API failed")
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("LOA bot started. Press Ctrl+C to stop.")
	<-stop

	sweeper.Stop()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Status API forced to shut down")
		}
		cancel()
	}

	if err := session.Close(); err != nil {
		logger.WithError(err).Warn("Error closing Discord session")
	}

	if err := sqlDB.Close(); err != nil {
		logger.Infof("Error closing database: %v", err)
	}

	logger.Info("Bot stopped gracefully")
}
