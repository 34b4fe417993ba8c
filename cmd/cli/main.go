package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/cmd/cli/commands"
	"github.com/lifeline-network/bloodmatch/internal/config"
	"github.com/lifeline-network/bloodmatch/pkg/clients/gmailclient"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
	"github.com/lifeline-network/bloodmatch/pkg/notify"
	"github.com/lifeline-network/bloodmatch/pkg/postgres"
	"github.com/lifeline-network/bloodmatch/pkg/utils"
	"github.com/lifeline-network/bloodmatch/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}

	// Resources released after the command runs
	dispatcher *notify.Dispatcher
	natsConn   *nats.Conn
	stop       context.CancelFunc
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bloodmatch",
		Short: "Bloodmatch CLI - Match blood requests with nearby donors",
		Long:  `A CLI tool for registering donors, creating blood requests, ranking compatible donors and tracking acceptances.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.RegisterDonorCmd(app))
	rootCmd.AddCommand(commands.FindDonorsCmd(app))
	rootCmd.AddCommand(commands.CreateRequestCmd(app))
	rootCmd.AddCommand(commands.AcceptRequestCmd(app))
	rootCmd.AddCommand(commands.CancelRequestCmd(app))
	rootCmd.AddCommand(commands.RematchRequestCmd(app))
	rootCmd.AddCommand(commands.ViewRequestCmd(app))
	rootCmd.AddCommand(commands.ListRequestsCmd(app))
	rootCmd.AddCommand(commands.NotificationsCmd(app))
	rootCmd.AddCommand(commands.StatsCmd(app))
	rootCmd.AddCommand(commands.SimulateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		// PersistentPostRun does not run when the command fails
		shutdown()
		fmt.Fprintln(os.Stderr, commands.UserMessage(err))
		os.Exit(commands.ExitCode(err))
	}
}

// initApp sets up logger, config, metrics and, unless the command is offline,
// the database, notification dispatcher and matching engine
func initApp(cmd *cobra.Command) error {
	var err error
	var ctx context.Context
	ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.Ctx = ctx
	app.Env = env

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env), zap.String("command", cmd.Name()))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Metrics = metrics.New()

	if cmd.Annotations[commands.AnnotationOffline] == "true" {
		app.Logger.Debug("Offline command, skipping database and delivery setup")
		return nil
	}

	// Connect to database
	if app.Cfg.DatabaseURL == "" {
		return errors.New("databaseURL must be set in the config for this command")
	}
	app.Logger.Info("Connecting to database")
	app.Postgres, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = app.Postgres
	app.Logger.Debug("Database connected successfully")

	if cmd.Annotations[commands.AnnotationDatabaseOnly] == "true" {
		return nil
	}

	// Initialize notification sinks
	sinks, err := initSinks()
	if err != nil {
		return err
	}

	dispatcher = notify.NewDispatcher(app.Database, app.Logger, app.Metrics, notify.Options{
		QueueSize: app.Cfg.Notifications.QueueSize,
		Workers:   app.Cfg.Notifications.Workers,
	}, sinks...)

	annotator := commands.NewAnnotator(app.Cfg.Advisor, app.Logger, app.Metrics)
	app.Engine = commands.NewEngine(app.Cfg, dispatcher, annotator, app.Logger, app.Metrics)
	app.Logger.Debug("Matching engine initialized",
		zap.Float64("auto_match_radius_km", app.Engine.AutoMatch.RadiusKm),
		zap.Int("auto_match_max_results", app.Engine.AutoMatch.MaxResults),
		zap.Bool("advisor_enabled", app.Cfg.Advisor.Enabled))

	return nil
}

// initSinks builds the configured delivery channels. With none configured
// notifications are only stored and logged.
func initSinks() ([]notify.Sink, error) {
	var sinks []notify.Sink
	cfg := app.Cfg.Notifications

	if cfg.EmailEnabled {
		app.Logger.Info("Loading OAuth client configuration")
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		app.Logger.Debug("OAuth client loaded",
			zap.String("path", oauthCfg.Path),
			zap.String("project_id", oauthCfg.Client().ProjectID))

		oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get oauth config: %w", err)
		}

		token, err := utils.GetToken(app.Ctx, oauthConfig, env, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to get oauth token: %w", err)
		}

		app.Logger.Info("Initializing gmail client")
		gmail, err := gmailclient.NewClient(app.Ctx, oauthCfg, token, gmailclient.Options{
			UserID:       cfg.GmailUserID,
			Sender:       cfg.GmailSender,
			SendInterval: cfg.SendInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail client: %w", err)
		}
		sinks = append(sinks, notify.NewEmailSink(gmail))
	}

	if cfg.NATSURL != "" {
		app.Logger.Info("Connecting to NATS", zap.String("url", cfg.NATSURL))
		conn, err := notify.ConnectNATS(cfg.NATSURL, app.Logger)
		if err != nil {
			return nil, err
		}
		natsConn = conn
		sinks = append(sinks, notify.NewNATSSink(conn, cfg.SubjectPrefix))
	}

	if len(sinks) == 0 {
		sinks = append(sinks, notify.NewLogSink(app.Logger))
	}

	return sinks, nil
}

// shutdown drains deliveries, closes connections and writes metrics
func shutdown() {
	if dispatcher != nil {
		dispatcher.Close()
		dispatcher = nil
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to drain NATS connection", zap.Error(err))
		}
		natsConn = nil
	}
	if app.Postgres != nil {
		app.Postgres.Close()
		app.Postgres = nil
	}
	if app.Cfg != nil && app.Cfg.MetricsTextfile != "" {
		if err := app.Metrics.WriteTextfile(app.Cfg.MetricsTextfile); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to write metrics textfile", zap.Error(err))
		}
	}
	if stop != nil {
		stop()
		stop = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
