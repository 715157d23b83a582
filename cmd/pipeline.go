package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pantry-labs/enrich-cli/internal/cascade"
	"github.com/pantry-labs/enrich-cli/internal/ledger"
	"github.com/pantry-labs/enrich-cli/internal/runner"
	"github.com/pantry-labs/enrich-cli/internal/source"
	"github.com/pantry-labs/enrich-cli/internal/store"
	"github.com/pantry-labs/enrich-cli/internal/validate"
	"github.com/pantry-labs/enrich-cli/pkg/claude"
	"github.com/pantry-labs/enrich-cli/pkg/webindex"
)

// pipelineEnv bundles everything a command needs to run the pipeline.
type pipelineEnv struct {
	Store  store.Store
	Ledger *ledger.Ledger
	Runner *runner.Runner
}

func (e *pipelineEnv) Close() {
	if err := e.Ledger.Close(); err != nil {
		zap.L().Warn("ledger close", zap.Error(err))
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline builds the source cascade in trust order: curated table,
// structured knowledge query, retailer-restricted search, generic search.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	lg, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	searchClient := webindex.NewClient(cfg.WebIndex.Key,
		webindex.WithBaseURL(cfg.WebIndex.BaseURL),
		webindex.WithTimeout(time.Duration(cfg.WebIndex.TimeoutSecs)*time.Second),
	)
	claudeClient := claude.NewClient(cfg.Claude.Key)

	perMinute := cfg.Sources.RequestsPerMinute

	var sources []source.Source
	if cfg.Sources.StaticTablePath != "" {
		static, err := source.LoadStatic(cfg.Sources.StaticTablePath)
		if err != nil {
			lg.Close()
			st.Close()
			return nil, err
		}
		sources = append(sources, static)
	} else {
		sources = append(sources, source.NewStatic(nil))
	}
	sources = append(sources,
		source.NewKnowledge(claudeClient, cfg.Claude.Model, cfg.Claude.MaxTokens, perMinute),
		source.NewRetailer(searchClient, cfg.Sources.RetailerDomains, perMinute),
		source.NewWebSearch(searchClient, cfg.Sources.WebSearchMaxConf, perMinute),
	)

	validator := validate.New(cfg.Validate.MinConfidence)
	controller := cascade.New(sources, validator,
		time.Duration(cfg.Sources.LookupTimeoutSecs)*time.Second)

	return &pipelineEnv{
		Store:  st,
		Ledger: lg,
		Runner: runner.New(st, lg, controller),
	}, nil
}
