package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "@hourly"

// Runner imports every batch file in Dir on a cron schedule. A pass that is
// still running when the next one is due is skipped.
type Runner struct {
	Importer   DirImporter
	Dir        string
	Schedule   string
	RunOnStart bool
	Logger     *zap.Logger

	// OnPass is called after each pass; tests use it to observe passes.
	OnPass func(ctx context.Context, s PassSummary)
}

type PassSummary struct {
	PassID   string
	Files    int
	Failed   int
	Upserted int
	Listings int
	Err      error
}

func (r Runner) Run(ctx context.Context) error {
	if r.Importer == nil {
		return errors.New("importer is nil")
	}
	if r.Dir == "" {
		return errors.New("data dir is empty")
	}
	if r.Schedule == "" {
		r.Schedule = DefaultSchedule
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	clog := cron.PrintfLogger(zap.NewStdLog(r.Logger.Named("cron")))
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	if _, err := c.AddFunc(r.Schedule, func() { r.tick(ctx) }); err != nil {
		return err
	}

	if r.RunOnStart {
		r.tick(ctx)
	}

	r.Logger.Info("import schedule started", zap.String("schedule", r.Schedule), zap.String("dir", r.Dir))
	c.Start()

	<-ctx.Done()
	// Stop waits for a pass in flight.
	<-c.Stop().Done()

	return ctx.Err()
}

// tick runs one pass. File failures are counted, never returned.
func (r Runner) tick(ctx context.Context) PassSummary {
	if ctx.Err() != nil {
		return PassSummary{Err: ctx.Err()}
	}

	passID := uuid.NewString()
	ctx = WithPassID(ctx, passID)
	log := r.logger().With(zap.String("pass_id", passID))

	results, err := r.Importer.ImportDir(ctx, r.Dir)

	s := PassSummary{PassID: passID, Files: len(results), Err: err}
	for _, fr := range results {
		if fr.Err != "" {
			s.Failed++
			continue
		}
		s.Upserted += fr.Result.Upserted
		s.Listings += fr.Result.Upserted + fr.Result.Failed
	}

	if err != nil {
		log.Error("import pass failed", zap.Error(err), zap.Int("files", s.Files))
	} else {
		log.Info("import pass complete",
			zap.Int("files", s.Files),
			zap.Int("failed_files", s.Failed),
			zap.Int("upserted", s.Upserted),
		)
	}

	if r.OnPass != nil {
		r.OnPass(ctx, s)
	}
	return s
}

func (r Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
