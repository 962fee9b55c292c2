package main

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
	"github.com/AntonStoeckl/auditstore-go/auditstore/promadapters"
	"github.com/AntonStoeckl/auditstore-go/auditstore/query"
	"github.com/AntonStoeckl/auditstore-go/internal/config"
)

const (
	flagConfig          = "config"
	flagDSN             = "dsn"
	flagReplicaDSN      = "replica-dsn"
	flagDriver          = "driver"
	flagTable           = "table"
	flagRedisAddr       = "redis-addr"
	flagCacheTTL        = "cache-ttl"
	flagLogLevel        = "log-level"
	flagPrintMetrics    = "print-metrics"
	flagNewObjectChange = "new-object-changes"
	flagEventual        = "eventual"
	flagValueObjectType = "value-object-type"
)

// persistentFlagKeys binds the persistent flags to their config keys.
var persistentFlagKeys = map[string]string{
	flagDSN:        config.KeyPostgresDSN,
	flagReplicaDSN: config.KeyPostgresReplicaDSN,
	flagDriver:     config.KeyPostgresDriver,
	flagTable:      config.KeyPostgresTable,
	flagRedisAddr:  config.KeyRedisAddr,
	flagCacheTTL:   config.KeyRedisTTL,
	flagLogLevel:   config.KeyLogLevel,
}

var ErrBackendNotOpen = errors.New("backend is not open")

// app carries the state shared by the commands of one invocation.
type app struct {
	openBackend backendOpener
	buildLogger func(config.LogConfig) (*zap.Logger, error)

	cfg      config.Config
	logger   *zapLogger
	zap      *zap.Logger
	registry *prometheus.Registry
	metrics  *promadapters.MetricsCollector
	backend  *backend
}

func newApp() *app {
	return &app{
		openBackend: openPostgresBackend,
		buildLogger: buildZapLogger,
	}
}

func newRootCmd(a *app) *cobra.Command {
	var configFile string
	var printMetrics bool

	rootCmd := &cobra.Command{
		Use:           "auditquery",
		Short:         "Query the audit history of an auditstore",
		Long:          "auditquery reads snapshots and changes from a PostgreSQL backed auditstore, optionally through a Redis cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, flagConfig, "", "YAML config file")
	flags.String(flagDSN, "", "PostgreSQL DSN of the primary")
	flags.String(flagReplicaDSN, "", "PostgreSQL DSN of a read replica, serves --eventual reads")
	flags.String(flagDriver, "", "connection type: pgx, sqldb or sqlx")
	flags.String(flagTable, "", "snapshot table name")
	flags.String(flagRedisAddr, "", "Redis address, enables the snapshot cache")
	flags.Duration(flagCacheTTL, 0, "TTL of cached snapshots")
	flags.String(flagLogLevel, "", "log level: debug, info, warn or error")
	flags.BoolVar(&printMetrics, flagPrintMetrics, false, "print the collected metrics to stderr when done")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		v, err := config.NewViper(configFile)
		if err != nil {
			return err
		}

		for flagName, key := range persistentFlagKeys {
			if bindErr := v.BindPFlag(key, flags.Lookup(flagName)); bindErr != nil {
				return bindErr
			}
		}

		return a.open(cmd.Context(), v)
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if printMetrics {
			return a.writeMetrics(cmd.ErrOrStderr())
		}

		return nil
	}

	rootCmd.AddCommand(
		newSnapshotsCmd(a),
		newChangesCmd(a),
		newLatestCmd(a),
		newHistoryCmd(a),
		newMigrateCmd(a),
	)

	return rootCmd
}

// open loads the config and opens logger, metrics and backend.
func (a *app) open(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.zap, err = a.buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = newZapLogger(a.zap)

	a.registry = prometheus.NewRegistry()
	a.metrics, err = promadapters.NewMetricsCollector(
		promadapters.WithRegisterer(a.registry),
		promadapters.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.backend, err = a.openBackend(ctx, cfg, a.logger, a.metrics)

	return err
}

// close releases the backend and flushes the logger.
func (a *app) close() {
	if a.backend != nil && a.backend.close != nil {
		a.backend.close()
	}

	if a.zap != nil {
		_ = a.zap.Sync()
	}
}

func (a *app) runner(newObjectChanges bool) (*query.Runner, error) {
	if a.backend == nil {
		return nil, ErrBackendNotOpen
	}

	repository, err := history.NewExtendedRepository(
		a.backend.repository,
		history.WithLogger(a.logger),
		history.WithNewObjectChanges(newObjectChanges),
	)
	if err != nil {
		return nil, err
	}

	types, err := metamodel.NewTypeMapper()
	if err != nil {
		return nil, err
	}

	return query.NewRunner(
		repository,
		identity.NewFactory(types),
		types,
		query.WithContextualLogger(a.logger),
		query.WithMetrics(a.metrics),
	)
}

func (a *app) writeMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}

	families, err := a.registry.Gather()
	if err != nil {
		return err
	}

	for _, family := range families {
		if _, err = expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}

	return nil
}
