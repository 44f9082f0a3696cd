package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"coursecal/internal/config"
	"coursecal/internal/courseoff"
	"coursecal/internal/credentials"
	"coursecal/internal/gcal"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/syncer"
)

func main() {
	appLog.Info("coursecal starting", "version", "0.1.0")

	// .env may set COURSECAL_CONFIG, so it is read before the path.
	if err := config.LoadEnv(""); err != nil {
		appLog.Error("ignoring .env", err)
	}

	configPath := config.PathFromEnv()
	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	appLog.Setup(conf.Log.Level, conf.Log.Format)

	appLog.Info("effective config",
		"config_path", configPath,
		"term", conf.Term,
		"timezone", conf.Timezone,
		"university", conf.Catalog.University,
		"calendar_id", conf.Calendar.CalendarID,
		"ics_export", conf.ICSExport,
		"dry_run", conf.DryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf); err != nil {
		appLog.Error("sync failed", err)
		cancel()
		os.Exit(1)
	}
	appLog.Info("coursecal exiting")
}

func run(ctx context.Context, conf *config.Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	// Read before any network access so a bad file fails fast.
	creds, err := credentials.Read(conf.CredentialsFile)
	if err != nil {
		return err
	}

	var sinks []syncer.Sink

	if !conf.DryRun {
		oc, err := gcal.LoadOAuthConfig(conf.Calendar.ClientSecretFile)
		if err != nil {
			return err
		}
		store := gcal.FileTokenStore{Path: conf.Calendar.TokenFile}
		tok, err := gcal.Authorize(ctx, oc, store, gcal.LoopbackConsent(conf.Calendar.RedirectListen))
		if err != nil {
			return err
		}
		cal, err := gcal.NewClient(ctx, oc, tok, conf.Calendar.CalendarID)
		if err != nil {
			return err
		}
		defer cal.Close()
		sinks = append(sinks, cal)
	}

	var exporter *ics.Exporter
	if conf.ICSExport != "" {
		exporter = ics.NewExporter(conf.ICSExport)
		sinks = append(sinks, exporter)
	}

	if len(sinks) == 0 {
		appLog.Info("dry run without ics_export: events are planned and logged only")
	}

	sess, err := courseoff.Open(ctx, courseoff.Config{
		APIURL:     conf.Catalog.APIURL,
		SOCURL:     conf.Catalog.SOCURL,
		University: conf.Catalog.University,
		Timeout:    conf.CatalogTimeout(),
		Location:   loc,
	}, creds)
	if err != nil {
		return err
	}
	defer sess.Close()

	s, err := syncer.New(sess, loc, sinks...)
	if err != nil {
		return err
	}
	res, err := s.Run(ctx, conf.Term)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLog.Info("sync interrupted", "events_emitted", len(res.Events))
		}
		return err
	}

	if exporter != nil {
		if err := exporter.Close(); err != nil {
			return err
		}
	}

	appLog.Info("schedule synced",
		"term", res.Term.Name,
		"courses", len(res.Courses),
		"events", len(res.Events),
	)
	return nil
}
