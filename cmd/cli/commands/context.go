package commands

import (
	"context"
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/internal/config"
	"github.com/lifeline-network/bloodmatch/pkg/clients/advisor"
	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
	"github.com/lifeline-network/bloodmatch/pkg/db"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
	"github.com/lifeline-network/bloodmatch/pkg/postgres"
)

// Command annotations read by the root command to decide what to initialise
const (
	// AnnotationOffline marks commands that never touch the configured database
	AnnotationOffline = "offline"
	// AnnotationDatabaseOnly marks commands that need the database but no engine
	AnnotationDatabaseOnly = "databaseOnly"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Postgres *postgres.DB
	Database db.Database
	Engine   *services.Engine
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Ctx      context.Context
}

// NewEngine builds the matching engine from configuration
func NewEngine(cfg *config.Config, notifier services.Notifier, annotator services.Annotator, logger *zap.Logger, m *metrics.Metrics) *services.Engine {
	clock := matcher.SystemClock{}
	scorer := matcher.NewScorer(cfg.Matching.Weights, clock, logger)

	engine := services.NewEngine(matcher.NewRanker(scorer), clock, notifier, annotator, m)
	engine.AutoMatch = cfg.Matching.AutoMatch
	engine.Discovery = cfg.Matching.Discovery
	engine.PoolLimit = cfg.Matching.PoolLimit
	engine.DiscoveryPoolLimit = cfg.Matching.DiscoveryPoolLimit
	return engine
}

// NewAnnotator builds the advisory annotator. A disabled advisor always
// yields the fallback note.
func NewAnnotator(cfg config.AdvisorConfig, logger *zap.Logger, m *metrics.Metrics) *advisor.Annotator {
	var provider advisor.Provider = advisor.UnavailableProvider{}
	if cfg.Enabled {
		provider = advisor.NewChatProvider(cfg.BaseURL, cfg.Model, os.Getenv(cfg.APIKeyEnv), &http.Client{})
	}

	return advisor.NewAnnotator(provider, advisor.Options{
		Timeout:          cfg.Timeout,
		TopCandidates:    cfg.TopCandidates,
		FailureThreshold: cfg.FailureThreshold,
		OpenTimeout:      cfg.OpenTimeout,
	}, logger, m)
}

// UserMessage turns a service error into the text shown to the user
func UserMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return "Invalid input: " + err.Error()
	case errors.Is(err, model.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, model.ErrConflict):
		return "Rejected: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// ExitCode maps a service error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrInvalidInput):
		return 2
	case errors.Is(err, model.ErrNotFound):
		return 3
	case errors.Is(err, model.ErrConflict):
		return 4
	default:
		return 1
	}
}
