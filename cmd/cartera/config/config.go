// Package config assembles the runtime dependencies of the CLI from
// flags, environment, and the optional config file.
package config

import (
	"context"

	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/service"
	"cartera-reconciler/internal/store"
	carterrors "cartera-reconciler/pkg/errors"
	"cartera-reconciler/pkg/logger"

	"github.com/spf13/viper"
)

// Runtime bundles everything a command needs.
type Runtime struct {
	Service *service.Service
	Store   store.Store
	Log     logger.Logger

	closer func()
}

// Close releases backing connections.
func (r *Runtime) Close() {
	if r.closer != nil {
		r.closer()
	}
}

// Thresholds reads the configurable day boundaries, falling back to the
// production defaults.
func Thresholds() classifier.Thresholds {
	th := classifier.DefaultThresholds()
	if viper.IsSet("upcoming-window-days") {
		th.UpcomingWindowDays = viper.GetInt("upcoming-window-days")
	}
	if viper.IsSet("current-min-days") {
		th.CurrentMinDays = viper.GetInt("current-min-days")
	}
	if viper.IsSet("alert-window-min") {
		th.AlertWindowMin = viper.GetInt("alert-window-min")
	}
	if viper.IsSet("alert-window-max") {
		th.AlertWindowMax = viper.GetInt("alert-window-max")
	}
	return th
}

// BuildRuntime constructs the store and service selected by configuration.
func BuildRuntime(ctx context.Context) (*Runtime, error) {
	log := logger.GetGlobalLogger().WithComponent("cartera")

	backend := viper.GetString("store")
	switch backend {
	case "memory":
		ms := store.NewMemStore()
		svc := service.New(ms, log,
			service.WithThresholds(Thresholds()),
			service.WithFinanced(ms.Financed()),
		)
		return &Runtime{Service: svc, Store: ms, Log: log}, nil

	case "postgres":
		dsn := viper.GetString("dsn")
		if dsn == "" {
			return nil, carterrors.ConfigurationError(carterrors.CodeMissingConfig, "dsn", nil, nil).
				WithSuggestion("set --dsn or the CARTERA_DSN environment variable")
		}
		pg, err := store.NewPGStore(ctx, dsn, log.WithComponent("store"))
		if err != nil {
			return nil, err
		}
		svc := service.New(pg, log,
			service.WithThresholds(Thresholds()),
			service.WithFinanced(pg.Financed()),
		)
		return &Runtime{Service: svc, Store: pg, Log: log, closer: pg.Close}, nil

	default:
		return nil, carterrors.ConfigurationError(carterrors.CodeInvalidConfig, "store", backend, nil).
			WithSuggestion("valid backends: postgres, memory")
	}
}
