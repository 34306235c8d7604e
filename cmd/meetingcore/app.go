// Command meetingcore is the binary that runs every piece of the meeting
// intelligence core: the webhooks subscription lifecycle, the worker pool
// that fetches/summarizes/distributes meetings, and the database migration
// runner.
package main

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/meetingcore/pkg/backfill"
	"github.com/codeready-toolchain/meetingcore/pkg/config"
	"github.com/codeready-toolchain/meetingcore/pkg/database"
	"github.com/codeready-toolchain/meetingcore/pkg/discovery"
	"github.com/codeready-toolchain/meetingcore/pkg/distribute"
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/ingest"
	"github.com/codeready-toolchain/meetingcore/pkg/preferences"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/codeready-toolchain/meetingcore/pkg/relay"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
	"github.com/codeready-toolchain/meetingcore/pkg/subscription"
	"github.com/codeready-toolchain/meetingcore/pkg/summarize"
)

// app wires every subsystem over a single database client and Graph
// client. Built once per process invocation by newApp.
type app struct {
	cfg *config.Config
	db  *database.Client

	graph *graph.Client

	meetings     *store.MeetingStore
	transcripts  *store.TranscriptStore
	summaries    *store.SummaryStore
	callRecords  *store.CallRecordStore
	discovery    *store.DiscoveryStore
	distribution *store.DistributionStore
	prefsStore   *store.PreferenceStore
	subEvents    *store.SubscriptionEventStore
	backfillRuns *store.BackfillStore

	prefsChecker *preferences.Checker
	aliases      *preferences.AliasResolver

	jobs *queue.Store

	ingestHandler *ingest.Handler
	backfillSvc   *backfill.Service
}

// newApp loads configuration, opens the database, and builds every
// repository and domain collaborator. It does not start any background
// goroutine — callers decide which of those to run.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Initialize(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	dbCfg := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
	if pw, ok := config.Secret(cfg.Database.PasswordEnv); ok {
		dbCfg.Password = pw
	}

	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	graphCfg := graph.Config{
		TenantID: cfg.Graph.TenantID,
		ClientID: cfg.Graph.ClientID,
		UseBeta:  cfg.Graph.UseBeta,
	}
	if secret, ok := config.Secret(cfg.Graph.ClientSecretEnv); ok {
		graphCfg.ClientSecret = secret
	}
	graphClient := graph.NewClient(graphCfg)

	meetings := store.NewMeetingStore(dbClient.Pool)
	transcripts := store.NewTranscriptStore(dbClient.Pool)
	summaries := store.NewSummaryStore(dbClient.Pool)
	callRecords := store.NewCallRecordStore(dbClient.Pool)
	discoveryStore := store.NewDiscoveryStore(dbClient.Pool)
	distributionStore := store.NewDistributionStore(dbClient.Pool)
	prefsStore := store.NewPreferenceStore(dbClient.Pool)
	subEvents := store.NewSubscriptionEventStore(dbClient.Pool)
	backfillRuns := store.NewBackfillStore(dbClient.Pool)
	jobs := queue.NewStore(dbClient.Pool)

	prefsChecker := preferences.NewChecker(prefsStore)
	aliases := preferences.NewAliasResolver(prefsStore, graphUserLookup{graphClient})

	ingestHandler := ingest.NewHandler(meetings, callRecords, jobs, graphClient, prefsChecker)
	backfillSvc := backfill.NewService(graphClient, callRecords, backfillRuns, ingestHandler)

	return &app{
		cfg:   cfg,
		db:    dbClient,
		graph: graphClient,

		meetings:     meetings,
		transcripts:  transcripts,
		summaries:    summaries,
		callRecords:  callRecords,
		discovery:    discoveryStore,
		distribution: distributionStore,
		prefsStore:   prefsStore,
		subEvents:    subEvents,
		backfillRuns: backfillRuns,

		prefsChecker: prefsChecker,
		aliases:      aliases,

		jobs: jobs,

		ingestHandler: ingestHandler,
		backfillSvc:   backfillSvc,
	}, nil
}

func (a *app) close() {
	a.db.Close()
}

// graphUserLookup adapts *graph.Client to preferences.UserLookup, translating
// graph.User into the package-local result shape preferences compares
// against so pkg/preferences never has to import pkg/graph.
type graphUserLookup struct {
	client *graph.Client
}

func (g graphUserLookup) GetUser(ctx context.Context, idOrEmail string) (*preferences.LookupResult, error) {
	u, err := g.client.GetUser(ctx, idOrEmail)
	if err != nil {
		return nil, err
	}
	return &preferences.LookupResult{
		ID:                u.ID,
		Mail:              u.Mail,
		UserPrincipalName: u.UserPrincipalName,
		DisplayName:       u.DisplayName,
		JobTitle:          u.JobTitle,
	}, nil
}

// subscriptionManager builds the Manager from the loaded configuration.
func (a *app) subscriptionManager() *subscription.Manager {
	subCfg := subscription.Config{
		WebhookURL:         a.cfg.Subscription.WebhookURL,
		CheckInterval:      a.cfg.Subscription.CheckInterval,
		RenewThreshold:     a.cfg.Subscription.RenewThreshold,
		DailyRecreateHour:  a.cfg.Subscription.DailyRecreateHour,
		MaxCreationRetries: a.cfg.Subscription.MaxCreationRetries,
		RetryDelay:         a.cfg.Subscription.RetryDelay,
		AlertEnabled:       a.cfg.Subscription.AlertEnabled,
		AlertRecipients:    a.cfg.Subscription.AlertRecipients,
		AlertFromUserID:    a.cfg.Subscription.AlertFromUserID,
		AlertCooldown:      a.cfg.Subscription.AlertCooldown,
	}
	if cs, ok := config.Secret(a.cfg.Subscription.ClientStateEnv); ok {
		subCfg.ClientState = cs
	}
	return subscription.NewManager(subCfg, a.graph, a.subEvents)
}

// relayListener builds the relay Listener if relay delivery is enabled,
// routing decoded notification bodies straight to the ingest handler.
func (a *app) relayListener() *relay.Listener {
	if !a.cfg.Relay.Enabled {
		return nil
	}
	relayCfg := relay.Config{
		Namespace:      a.cfg.Relay.Namespace,
		ConnectionName: a.cfg.Relay.ConnectionName,
		KeyName:        a.cfg.Relay.KeyName,
		TokenTTL:       a.cfg.Relay.TokenTTL,
		ReconnectWait:  a.cfg.Relay.ReconnectWait,
	}
	if key, ok := config.Secret(a.cfg.Relay.KeyEnv); ok {
		relayCfg.Key = key
	}
	return relay.NewListener(relayCfg, a.ingestHandler)
}

// discoveryPoller builds the calendar safety-net poller.
func (a *app) discoveryPoller() *discovery.Poller {
	return discovery.NewPoller(discovery.PollerConfig{
		Interval:                      a.cfg.Discovery.PollInterval,
		MinimumMeetingDurationMinutes: a.cfg.Discovery.MinimumMeetingDurationMinutes,
		PilotModeEnabled:              a.cfg.Discovery.PilotModeEnabled,
	}, a.graph, a.discovery, a.meetings, a.jobs)
}

// distributeProcessor builds the distribute job processor.
func (a *app) distributeProcessor() *distribute.Processor {
	return distribute.NewProcessor(distribute.Config{
		TeamsChatEnabled: a.cfg.Distribution.TeamsChatEnabled,
		EmailEnabled:     a.cfg.Distribution.EmailEnabled,
		EmailFromUserID:  a.cfg.Distribution.EmailFromUserID,
		EmailFrom:        a.cfg.Distribution.EmailFrom,
	}, a.meetings, a.summaries, a.distribution, a.prefsChecker, a.graph)
}

// summarizeProcessor builds the generate_summary processor over an LLM
// client resolved from the environment. The LLM client itself stays out
// of this module's scope; newSummarizeClient (summarize_client.go) builds
// the minimal external-collaborator seam the processor calls through.
func (a *app) summarizeProcessor() *summarize.Processor {
	return summarize.NewProcessor(a.meetings, a.transcripts, a.summaries, newSummarizeClient())
}

// jobRegistry builds the ProcessorRegistry every worker pool shares.
func (a *app) jobRegistry() *queue.ProcessorRegistry {
	registry := queue.NewProcessorRegistry()
	registry.Register(queue.JobTypeFetchTranscript, ingest.NewFetchProcessor(a.meetings, a.transcripts, a.graph))
	registry.Register(queue.JobTypeGenerateSummary, a.summarizeProcessor())
	registry.Register(queue.JobTypeDistribute, a.distributeProcessor())
	return registry
}
