package main

import (
	"context"
	"log/slog"
	"os"

	"herald/config"
	"herald/internal/delivery"
	"herald/internal/delivery/api"
	apimiddleware "herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/router/handler"
	"herald/internal/delivery/socket"
	"herald/internal/delivery/worker"
	workerhandler "herald/internal/delivery/worker/handler"
	"herald/internal/infra/auth"
	logs "herald/internal/infra/log"
	"herald/internal/infra/notification"
	"herald/internal/infra/persistence/postgres"
	"herald/internal/infra/pubsub"
	"herald/internal/infra/realtime"
	"herald/internal/usecase"
	"herald/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		realtime.Module,
		pubsub.Module,
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewAccountRepository,
			postgres.NewNotificationRepository,
			postgres.NewDeviceRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			// Firebase is optional; nil disables device push.
			notification.NewPushService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				impl.NewAuthService,
				fx.As(new(usecase.AuthUsecase)),
				fx.As(new(usecase.IdentityResolver)),
			),
			impl.NewDeviceService,
			impl.NewNotificationService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			apimiddleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewNotificationHandler,
			handler.NewDeviceHandler,
			socket.NewAuthenticator,
			socket.NewHandler,
			workerhandler.NewRelayHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				newWorkerDeliveries,
				fx.ResultTags(`group:"deliveries,flatten"`),
			),
		),
	)
}

// newWorkerDeliveries adds the relay push server only when the worker is enabled.
func newWorkerDeliveries(params worker.ServerParams) ([]delivery.Delivery, error) {
	if params.Cfg.Worker == nil || !params.Cfg.Worker.Enabled {
		return nil, nil
	}

	srv, err := worker.NewServer(params)
	if err != nil {
		return nil, err
	}

	return []delivery.Delivery{srv}, nil
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
