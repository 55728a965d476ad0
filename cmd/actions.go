package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docdigest/internal/config"
	"docdigest/internal/database"
	"docdigest/internal/domain"
	"docdigest/internal/ingest"
	"docdigest/internal/notify"
	"docdigest/internal/pipeline"
	"docdigest/internal/progress"
	"docdigest/internal/scheduler"
	"docdigest/internal/summarizer"
	"docdigest/internal/tokens"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

const progressUpdateBuffer = 64

// batchEnv holds everything one batch run needs. Watch mode reuses a single
// batchEnv across ticks, so the shared progress store rejects a document that
// is still in flight from the previous tick.
type batchEnv struct {
	cfg      config.Config
	sources  []ingest.Source
	orch     *pipeline.Orchestrator
	store    *progress.Store
	db       *database.Database
	notifier notify.Notifier
	log      *slog.Logger
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	be, cleanup, err := setupBatchEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return be.runBatch(ctx)
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	be, cleanup, err := setupBatchEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	spec := be.cfg.WatchSpec
	if cmd.IsSet("spec") {
		spec = cmd.String("spec")
	}

	sched := scheduler.New(ctx, spec, be.runBatch, be.log)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler (spec = %s): %w", spec, err)
	}
	defer sched.Stop()

	be.log.InfoContext(ctx, "Watch mode is started",
		"spec", spec,
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	<-ctx.Done()

	be.log.InfoContext(ctx, "Watch mode is stopped",
		"reason", ctx.Err())

	return nil
}

func modelsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}

	client, err := newOpenAIClient(cfg)
	if err != nil {
		return err
	}

	ids, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	for _, id := range ids {
		fmt.Println(id)
	}

	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	log := slog.Default()

	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("open run ledger (path = %s): %w", cfg.DBPath, err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()

	if runID := strings.TrimSpace(cmd.String("run")); runID != "" {
		return printRunDocuments(ctx, db, runID)
	}

	return printRuns(ctx, db, int64(cmd.Int("limit")))
}

func setupBatchEnv(ctx context.Context, cmd *cli.Command) (*batchEnv, func(), error) {
	log := slog.Default()

	cfg, err := loadBatchConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	sum, err := initSummarizer(cfg)
	if err != nil {
		return nil, nil, err
	}

	sources, err := collectSources(cmd, log)
	if err != nil {
		return nil, nil, err
	}

	be := &batchEnv{
		cfg:      cfg,
		sources:  sources,
		store:    progress.NewStore(),
		db:       initDatabase(ctx, cfg.DBPath, log),
		notifier: initNotifier(ctx, cfg, log),
		log:      log,
	}
	be.orch = pipeline.New(sum, be.store, initTokenCounter(ctx, log), log)

	cleanup := func() {
		if be.db == nil {
			return
		}

		if err := be.db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}

	return be, cleanup, nil
}

func (be *batchEnv) runBatch(ctx context.Context) error {
	startedAt := time.Now()

	documents := be.loadDocuments(ctx)
	if len(documents) == 0 {
		be.log.WarnContext(ctx, "No documents to summarize")

		return nil
	}

	run := domain.Run{
		ID:        uuid.NewString(),
		Model:     be.cfg.Model,
		StartedAt: startedAt,
		Documents: int64(len(documents)),
	}
	be.recordRunStart(ctx, run)

	updates, cancelUpdates := be.store.Subscribe(progressUpdateBuffer)
	defer cancelUpdates()
	go logProgress(ctx, be.log, updates)

	be.log.InfoContext(ctx, "Batch is started",
		"runID", run.ID,
		"documents", run.Documents,
		"model", run.Model,
		"keywords", len(be.cfg.Keywords))

	results := be.orch.Run(ctx, pipeline.Batch{
		Documents:     documents,
		Keywords:      be.cfg.Keywords,
		Model:         be.cfg.Model,
		Prompt:        be.cfg.Prompt,
		IncludePrompt: be.cfg.IncludePrompt,
		MaxTokens:     be.cfg.MaxTokens,
		StartedAt:     startedAt,
	})

	run.FinishedAt = time.Now()
	for _, result := range results {
		if result.Status == domain.StatusSucceeded {
			run.Succeeded++
		} else {
			run.Failed++
		}
	}

	be.recordRunResults(ctx, run, results)
	be.notifyRun(ctx, run, results)

	be.log.InfoContext(ctx, "Batch is finished",
		"runID", run.ID,
		"documents", run.Documents,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"durationSeconds", run.FinishedAt.Sub(run.StartedAt).Seconds())

	if run.Failed == run.Documents {
		return fmt.Errorf("all %d documents failed", run.Documents)
	}

	return nil
}

// loadDocuments gathers documents from every source. Extraction failures are
// contained at this boundary: failed documents never enter the pipeline and
// surface only as a logged, joined error.
func (be *batchEnv) loadDocuments(ctx context.Context) []domain.Document {
	var documents []domain.Document
	seen := make(map[string]struct{})

	for _, source := range be.sources {
		loaded, err := source.Load(ctx)
		if err != nil {
			be.log.WarnContext(ctx, "Some documents were not loaded",
				"error", err)
		}

		for _, doc := range loaded {
			if _, ok := seen[doc.Key]; ok {
				be.log.WarnContext(ctx, "Skipping document with duplicate key",
					"documentKey", doc.Key,
					"path", doc.Path)

				continue
			}

			seen[doc.Key] = struct{}{}
			documents = append(documents, doc)
		}
	}

	return documents
}

func (be *batchEnv) recordRunStart(ctx context.Context, run domain.Run) {
	if be.db == nil {
		return
	}

	if err := be.db.CreateRun(ctx, run); err != nil {
		be.log.ErrorContext(ctx, "Failed to record run start",
			"error", err,
			"runID", run.ID)
	}
}

func (be *batchEnv) recordRunResults(
	ctx context.Context,
	run domain.Run,
	results []domain.DocumentResult,
) {
	if be.db == nil {
		return
	}

	for _, result := range results {
		doc := domain.RunDocument{
			RunID:       run.ID,
			DocumentKey: result.Key,
			Status:      result.Status,
			OutputPath:  result.OutputPath,
			Segments:    int64(result.SegmentCount),
		}
		if result.Err != nil {
			doc.Error = result.Err.Error()
		}

		if err := be.db.AddRunDocument(ctx, doc); err != nil {
			be.log.ErrorContext(ctx, "Failed to record run document",
				"error", err,
				"runID", run.ID,
				"documentKey", result.Key)
		}
	}

	if err := be.db.FinishRun(ctx, run); err != nil {
		be.log.ErrorContext(ctx, "Failed to record run finish",
			"error", err,
			"runID", run.ID)
	}
}

func (be *batchEnv) notifyRun(
	ctx context.Context,
	run domain.Run,
	results []domain.DocumentResult,
) {
	if be.notifier == nil {
		return
	}

	if err := be.notifier.NotifyRun(ctx, run, results); err != nil {
		be.log.ErrorContext(ctx, "Failed to send run digest",
			"error", err,
			"runID", run.ID)
	}
}

func logProgress(ctx context.Context, log *slog.Logger, updates <-chan progress.Update) {
	for update := range updates {
		log.DebugContext(ctx, "Progress is updated",
			"documentKey", update.Key,
			"completedSegments", update.Completed,
			"totalSegments", update.Total,
			"inFlight", update.InFlight)
	}
}

func loadBatchConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return config.Config{}, err
	}

	if cmd.IsSet("model") {
		cfg.Model = cmd.String("model")
	}
	if cmd.IsSet("prompt") {
		cfg.Prompt = cmd.String("prompt")
	}
	if cmd.IsSet("max-tokens") {
		cfg.MaxTokens = int64(cmd.Int("max-tokens"))
	}
	if cmd.IsSet("keywords") {
		cfg.Keywords = config.SplitKeywords(cmd.String("keywords"))
	}

	return cfg, nil
}

func collectSources(cmd *cli.Command, log *slog.Logger) ([]ingest.Source, error) {
	dir := strings.TrimSpace(cmd.Args().First())
	links := strings.TrimSpace(cmd.String("links"))
	feeds := cmd.StringSlice("feed")

	outDir := strings.TrimSpace(cmd.String("out"))
	if outDir == "" {
		outDir = dir
	}
	if outDir == "" {
		outDir = "."
	}

	var sources []ingest.Source

	if dir != "" {
		sources = append(sources, ingest.NewDirectorySource(dir, log))
	}
	if links != "" {
		sources = append(sources, ingest.NewLinkSource(links, outDir, log))
	}
	if len(feeds) > 0 {
		sources = append(sources, ingest.NewFeedSource(feeds, outDir, log))
	}

	if len(sources) == 0 {
		return nil, errors.New(
			"at least one document source is required: a directory argument, --links, or --feed")
	}

	return sources, nil
}

func initSummarizer(cfg config.Config) (summarizer.Summarizer, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, err
	}

	return summarizer.NewCachedSummarizer(client), nil
}

func newOpenAIClient(cfg config.Config) (*summarizer.OpenAIClient, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}

	client, err := summarizer.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	return client, nil
}

func initDatabase(ctx context.Context, dbPath string, log *slog.Logger) *database.Database {
	db, err := database.New(ctx, dbPath, log)
	if err != nil {
		log.WarnContext(ctx, "Failed to initialize run ledger so runs will not be recorded",
			"error", err,
			"dbPath", dbPath)

		return nil
	}

	log.InfoContext(ctx, "Run ledger is initialized",
		"dbPath", dbPath)

	return db
}

func initNotifier(ctx context.Context, cfg config.Config, log *slog.Logger) notify.Notifier {
	if strings.TrimSpace(cfg.TelegramToken) == "" || cfg.TelegramChatID == 0 {
		log.InfoContext(ctx, "Telegram notifier is not configured",
			"envVars", "TELEGRAM_TOKEN, TELEGRAM_CHAT_ID")

		return nil
	}

	notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Telegram notifier so run digests will not be sent",
			"error", err,
			"chatID", cfg.TelegramChatID)

		return nil
	}

	log.InfoContext(ctx, "Telegram notifier is initialized",
		"chatID", cfg.TelegramChatID)

	return notifier
}

func initTokenCounter(ctx context.Context, log *slog.Logger) *tokens.Counter {
	counter, err := tokens.NewCounter()
	if err != nil {
		log.WarnContext(ctx, "Failed to load token encoding so token counts will be skipped",
			"error", err)

		return nil
	}

	return counter
}

func printRuns(ctx context.Context, db *database.Database, limit int64) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("no recorded runs")

		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  model=%s  documents=%d  succeeded=%d  failed=%d\n",
			run.StartedAt.Format(time.RFC3339),
			run.ID,
			run.Model,
			run.Documents,
			run.Succeeded,
			run.Failed)
	}

	return nil
}

func printRunDocuments(ctx context.Context, db *database.Database, runID string) error {
	documents, err := db.ListRunDocuments(ctx, runID)
	if err != nil {
		return fmt.Errorf("list run documents (runID = %s): %w", runID, err)
	}

	if len(documents) == 0 {
		fmt.Println("no documents recorded for this run")

		return nil
	}

	for _, doc := range documents {
		line := fmt.Sprintf("%s  %s  segments=%d", doc.Status, doc.DocumentKey, doc.Segments)
		if doc.OutputPath != "" {
			line += "  output=" + doc.OutputPath
		}
		if doc.Error != "" {
			line += "  error=" + doc.Error
		}

		fmt.Println(line)
	}

	return nil
}
