// Command domainmapper runs the custom domain API, the job workers and the
// scheduled certificate sweep in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/customdomains/internal/config"
	"github.com/dmitrymomot/customdomains/internal/httpapi"
	"github.com/dmitrymomot/customdomains/internal/lookupcache"
	"github.com/dmitrymomot/customdomains/internal/metrics"
	"github.com/dmitrymomot/customdomains/internal/notify"
	"github.com/dmitrymomot/customdomains/internal/pgstore"
	"github.com/dmitrymomot/customdomains/internal/publish"
	"github.com/dmitrymomot/customdomains/internal/server"
	"github.com/dmitrymomot/customdomains/internal/tasks"
	"github.com/dmitrymomot/customdomains/pkg/cache"
	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/certprovision"
	"github.com/dmitrymomot/customdomains/pkg/db"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/health"
	"github.com/dmitrymomot/customdomains/pkg/job"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/mailer"
	"github.com/dmitrymomot/customdomains/pkg/mailer/resend"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
	"github.com/dmitrymomot/customdomains/pkg/redis"
	"github.com/dmitrymomot/customdomains/pkg/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(cfg.Sentry, cfg.Log, logger.DefaultExtractors()...)
	defer sentry.Flush(2 * time.Second)

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := pgstore.New(pool)
	if cfg.Database.AutoMigrate {
		if _, err := reg.Migrate(ctx, cfg.Database.MigrationsTable, log); err != nil {
			return err
		}
		if err := job.Migrate(ctx, pool, log); err != nil {
			return err
		}
	}

	checks := health.Checks{"postgres": db.Healthcheck(pool)}
	var shutdown []server.Hook

	var (
		propagations cache.Cache[*dnsverify.PropagationResult]
		inspections  cache.Cache[*certinspect.Result]
	)
	if cfg.Redis.Enabled() {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return err
		}

		propagations = cache.NewRedis[*dnsverify.PropagationResult](client, nil, "domainmapper:propagation", cfg.Cache.PropagationTTL)
		inspections = cache.NewRedis[*certinspect.Result](client, nil, "domainmapper:inspection", cfg.Cache.InspectionTTL)
		checks["redis"] = redis.Healthcheck(client)
		shutdown = append(shutdown, redis.Shutdown(client))
	} else {
		propagations = cache.NewMemory[*dnsverify.PropagationResult](cache.WithDefaultTTL(cfg.Cache.PropagationTTL))
		inspections = cache.NewMemory[*certinspect.Result](cache.WithDefaultTTL(cfg.Cache.InspectionTTL))
	}
	defer propagations.Close()
	defer inspections.Close()

	checkerOpts, err := cfg.DNS.CheckerOptions(log)
	if err != nil {
		return err
	}
	verifier := lookupcache.NewVerifier(dnsverify.NewChecker(checkerOpts...), propagations, cfg.Cache.PropagationTTL)

	// The sweep inspects live certificates, so it bypasses the cache.
	inspector := certinspect.New(certinspect.WithLogger(log))

	m := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	opts := []domainmap.Option{
		domainmap.WithLogger(log),
		domainmap.WithInspector(lookupcache.NewInspector(inspector, inspections, cfg.Cache.InspectionTTL)),
		domainmap.WithProxyGenerator(proxyconf.NewGenerator(cfg.Certs.CertsDir)),
	}

	var owners *notify.StaticDirectory
	if cfg.Owners.File != "" {
		if owners, err = notify.LoadDirectory(cfg.Owners.File); err != nil {
			return err
		}
		opts = append(opts, domainmap.WithOwnerDirectory(owners))
		log.Info("owner directory loaded", slog.Int("owners", owners.Len()))
	}

	jobOpts := []job.Option{job.WithLogger(log), job.WithMaxWorkers(cfg.Jobs.MaxWorkers)}

	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.Resend.Enabled() && owners != nil {
		// Enqueue through a plain client: the worker manager depends on the
		// provisioner, which needs the notifier first.
		enq, err := job.NewEnqueuer(pool, log)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, notify.NewJobNotifier(enq, cfg.Jobs.MaxAttempts))

		mail := mailer.New(resend.New(cfg.Resend), mailer.NewRenderer(notify.Templates), cfg.Mailer)
		jobOpts = append(jobOpts,
			job.WithQueue(job.QueueNotifications, cfg.Jobs.NotifyWorkers),
			job.WithTask[notify.Delivery](tasks.NewDeliverNotification(mail, owners, log)),
		)
	} else {
		log.Info("email notifications disabled, events are only logged")
	}
	notifier := m.Notifier(notifiers)

	if cfg.Storage.Enabled() {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		opts = append(opts, domainmap.WithConfigPublisher(publish.New(store, log)))
	}

	provOpts := []certprovision.Option{
		certprovision.WithNSResolver(dnsverify.NewDNSClientResolver(cfg.DNS.Server, cfg.DNS.Timeout)),
		certprovision.WithInspector(inspector),
		certprovision.WithRegistry(reg),
		certprovision.WithNotifier(notifier),
		certprovision.WithLogger(log),
	}
	if cfg.CDN.APIToken != "" {
		cdn, err := cdnapi.New(cfg.CDN)
		if err != nil {
			return err
		}
		provOpts = append(provOpts, certprovision.WithCDN(cdn))
	}
	prov := certprovision.New(cfg.Certs, provOpts...)

	opts = append(opts, domainmap.WithProvisioner(prov), domainmap.WithNotifier(notifier))
	manager := domainmap.New(reg, verifier, cfg.Domains, opts...)

	var startup []server.Hook
	if cfg.Jobs.Workers {
		jobOpts = append(jobOpts,
			job.WithScheduledTask(tasks.NewRenewalSweep(prov, m, cfg.Schedules.RenewalSweep, log)),
			job.WithScheduledTask(tasks.NewHealthSample(checks, reg, m, cfg.Schedules.HealthSample, log)),
		)
		jobs, err := job.NewManager(pool, jobOpts...)
		if err != nil {
			return err
		}
		checks["jobs"] = job.Healthcheck(jobs)
		startup = append(startup, jobs.Start)
		// Workers stop before the connections they use.
		shutdown = append([]server.Hook{jobs.Shutdown()}, shutdown...)
	}
	shutdown = append(shutdown, db.Shutdown(pool))

	api := httpapi.New(manager,
		httpapi.WithLogger(log),
		httpapi.WithAPIToken(cfg.HTTP.APIToken),
		httpapi.WithMetrics(m.Handler(), m.ObserveRequest),
		httpapi.WithReadiness(checks, health.WithLogger(log), health.WithObserver(m.ObserveHealth)),
	)

	err = server.Run(ctx, server.Config{
		Handler:         api.Handler(),
		Logger:          log,
		Addr:            cfg.HTTP.Addr,
		StartupHooks:    startup,
		ShutdownHooks:   shutdown,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", slog.String("error", err.Error()))
		return err
	}
	return nil
}
