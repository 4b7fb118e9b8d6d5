package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"echotarot/internal/audio"
	"echotarot/internal/catalog"
	"echotarot/internal/config"
	"echotarot/internal/domain"
	"echotarot/internal/feedback"
	"echotarot/internal/logging"
	"echotarot/internal/narration"
	"echotarot/internal/ports"
	"echotarot/internal/storage"
	"echotarot/internal/usecase"
)

// Frontend is whatever presents the session: the desktop view or a terminal.
type Frontend interface {
	ports.EventSink
	narration.Announcer
	feedback.Emitter
}

// Services is the assembled runtime graph.
type Services struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *storage.DB
	Catalog  *catalog.Source
	Recorder *audio.FFMPEGRecorder
	Narrator *narration.Strategy
	Feedback *feedback.Sink
	Session  *usecase.ReadingSession
	Settings *usecase.SettingsService
	Journal  *usecase.Journal
	Hashtags *usecase.HashtagService

	cancel context.CancelFunc
}

// Build loads configuration and wires all backend dependencies.
func Build(ctx context.Context, frontend Frontend) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(ctx, cfg, frontend)
}

// BuildWithConfig wires all backend dependencies for cfg. The deck watcher
// runs until ctx is done or Close is called.
func BuildWithConfig(ctx context.Context, cfg config.Config, frontend Frontend) (Services, error) {
	logger := logging.New(cfg.Log)

	lexicon, err := narration.NewLexicon(cfg.Speech.LexiconPath, 0)
	if err != nil {
		return Services{}, err
	}

	deck, err := catalog.Load(cfg.Catalog.DeckPath)
	if err != nil {
		return Services{}, fmt.Errorf("failed to load deck: %w", err)
	}
	source := catalog.NewSource(deck)

	db, err := storage.Open(storage.DefaultConfig(cfg.Storage.Path))
	if err != nil {
		return Services{}, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	if cfg.Catalog.Watch && cfg.Catalog.DeckPath != "" {
		if err := source.Watch(watchCtx, cfg.Catalog.DeckPath, logger); err != nil {
			logger.Warn("deck hot reload disabled", "error", err)
		}
	}

	settings := usecase.NewSettingsService(db.Settings(), source, logger)
	app, err := settings.AppSettings(ctx)
	if err != nil {
		logger.Warn("using default app settings", "error", err)
		app = domain.DefaultAppSettings()
	}

	recorder := audio.NewFFMPEGRecorder(audio.Config{
		RecorderCommand: cfg.Audio.RecorderCommand,
		PlayerCommand:   cfg.Audio.PlayerCommand,
		InputFormat:     cfg.Audio.InputFormat,
		InputDevice:     cfg.Audio.InputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		Directory:       cfg.Audio.Directory,
	})

	var events ports.EventSink = noopEvents{}
	var announcer narration.Announcer
	var emitter feedback.Emitter
	if frontend != nil {
		events, announcer, emitter = frontend, frontend, frontend
	}

	scheduler := usecase.NewClockScheduler()
	synth := narration.NewSynthesizer(narration.SpeechConfig{
		Command: cfg.Speech.Command,
		Voice:   cfg.Speech.Voice,
		OnError: func(err error) { events.SessionError(domain.ErrorCodeNarration, err.Error()) },
		Logger:  logger,
	}, settings, lexicon)
	narrator := narration.NewStrategy(announcer, synth, scheduler, func() float64 {
		current, err := settings.AppSettings(context.Background())
		if err != nil {
			return domain.DefaultAppSettings().SpeechRate
		}
		return current.SpeechRate
	})
	cues := feedback.NewSink(emitter, app.HapticEnabled)

	session := usecase.NewReadingSession(
		source,
		narrator,
		cues,
		recorder,
		db.Readings(),
		db.Settings(),
		events,
		scheduler,
		usecase.Config{
			Pacing: usecase.Pacing{
				QuestionConfirm: cfg.Pacing.QuestionConfirm,
				HashtagComplete: cfg.Pacing.HashtagComplete,
				HashtagSkip:     cfg.Pacing.HashtagSkip,
				CardInterval:    cfg.Pacing.CardInterval,
				Reveal:          cfg.Pacing.Reveal,
				MeaningPause:    cfg.Pacing.MeaningPause,
			},
			Logger: logger,
		},
	)

	logger.Info("services ready",
		"db", cfg.Storage.Path,
		"cards", deck.Len(),
		"lexicon_rules", lexicon.Len(),
		"config", cfg.File,
	)

	return Services{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Catalog:  source,
		Recorder: recorder,
		Narrator: narrator,
		Feedback: cues,
		Session:  session,
		Settings: settings,
		Journal:  usecase.NewJournal(db.Readings(), db.Hashtags(), recorder, source, logger),
		Hashtags: usecase.NewHashtagService(db.Hashtags(), logger),
		cancel:   cancel,
	}, nil
}

// Close stops background work and releases the database.
func (s Services) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	var errs []error
	if s.Session != nil {
		s.Session.Shutdown()
	}
	if s.Recorder != nil {
		s.Recorder.StopPlayback()
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

type noopEvents struct{}

func (noopEvents) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (noopEvents) CardDrawn(int, string, domain.DrawnCard)                            {}
func (noopEvents) SessionError(domain.ErrorCode, string)                              {}
