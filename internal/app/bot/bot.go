// Package bot собирает приложение: хранилище, кеш, брокер, клиент
// Bot API, сервисы онбординга и служебный HTTP-сервер.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-bot/internal/cache"
	"github.com/magabrotheeeer/subscription-bot/internal/config"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/i18n"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-bot/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-bot/internal/migrations"
	"github.com/magabrotheeeer/subscription-bot/internal/services/attribution"
	"github.com/magabrotheeeer/subscription-bot/internal/services/channelgate"
	"github.com/magabrotheeeer/subscription-bot/internal/services/notification"
	"github.com/magabrotheeeer/subscription-bot/internal/services/onboarding"
	"github.com/magabrotheeeer/subscription-bot/internal/services/promo"
	"github.com/magabrotheeeer/subscription-bot/internal/services/render"
	"github.com/magabrotheeeer/subscription-bot/internal/services/subscription"
	"github.com/magabrotheeeer/subscription-bot/internal/storage/repository"
	"github.com/magabrotheeeer/subscription-bot/internal/telegram"
)

// App — собранное приложение бота.
type App struct {
	tg         *telegram.Client
	dispatcher *Dispatcher
	opsServer  *http.Server
	db         *repository.Storage
	amqpConn   *amqp.Connection
	cfg        *config.Config
	log        *slog.Logger
}

// New создаёт приложение. Недоступный RabbitMQ не мешает запуску:
// уведомления деградируют до записи в журнал.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	locales, err := i18n.Load(cfg.Onboarding.LocalesPath, cfg.Onboarding.DefaultLanguage)
	if err != nil {
		return nil, err
	}

	var amqpConn *amqp.Connection
	var amqpCh *amqp.Channel
	if cfg.RabbitConnectionString != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitConnectionString, 5, 2*time.Second)
		if err != nil {
			log.Error("rabbitmq unavailable, notifications disabled", sl.Err(err))
		} else {
			amqpCh, err = rabbitmq.SetupChannel(amqpConn, rabbitmq.GetBotEventQueues())
			if err != nil {
				log.Error("rabbitmq channel setup failed, notifications disabled", sl.Err(err))
			}
		}
	}

	tg, err := telegram.NewClient(cfg.Telegram.Token, log)
	if err != nil {
		return nil, err
	}

	renderer := render.New(tg, log)
	subsService := subscription.New(db, cacheRedis, log)
	onboardingService := onboarding.New(onboarding.Deps{
		Users:     db,
		Campaigns: db,
		Intents:   attribution.New(db, cfg.Onboarding.LegacyRefs, log),
		Gate: channelgate.New(tg, db, telegram.IsNotParticipant, telegram.IsForbidden, channelgate.Config{
			RequiredChannelID: cfg.Onboarding.RequiredChannelID,
			IsAdmin:           cfg.Onboarding.IsAdmin,
		}, log),
		Promo:    promo.New(db, log),
		Subs:     subsService,
		Notifier: notification.New(amqpCh, log),
		Renderer: renderer,
		Locales:  locales,
		Config:   cfg.Onboarding,
		Log:      log,
	})

	return &App{
		tg:         tg,
		dispatcher: NewDispatcher(onboardingService, renderer, log),
		opsServer:  newOpsServer(cfg.OpsServer, db),
		db:         db,
		amqpConn:   amqpConn,
		cfg:        cfg,
		log:        log,
	}, nil
}

// Run запускает long polling и служебный сервер и работает до отмены
// контекста. Завершение дожидается уже запущенных обработчиков.
func (a *App) Run(ctx context.Context) error {
	opsErr := make(chan error, 1)
	go func() {
		a.log.Info("ops server starting", slog.String("address", a.opsServer.Addr))
		err := a.opsServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		opsErr <- err
	}()

	updates := a.tg.UpdatesChan(a.cfg.Telegram.UpdateTimeout)
	a.log.Info("bot started", slog.String("env", a.cfg.Env))

	for {
		select {
		case <-ctx.Done():
			return a.shutdown(opsErr)
		case err := <-opsErr:
			a.tg.Stop()
			a.dispatcher.Wait()
			a.close()
			return err
		case update, ok := <-updates:
			if !ok {
				return a.shutdown(opsErr)
			}
			a.dispatcher.Dispatch(ctx, update)
		}
	}
}

func (a *App) shutdown(opsErr chan error) error {
	a.log.Info("shutting down")
	a.tg.Stop()
	a.dispatcher.Wait()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := a.opsServer.Shutdown(timeoutCtx)
	<-opsErr

	a.close()
	return err
}

func (a *App) close() {
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.log.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.db.DB.Close(); err != nil {
		a.log.Warn("failed to close database", sl.Err(err))
	}
}
