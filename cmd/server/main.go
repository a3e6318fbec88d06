package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	claimhandler "wayfarer/internal/claim/handler"
	claimservice "wayfarer/internal/claim/service"
	claimstore "wayfarer/internal/claim/store"
	"wayfarer/internal/events"
	"wayfarer/internal/events/relay"
	eventstore "wayfarer/internal/events/store"
	"wayfarer/internal/jwttoken"
	locationcache "wayfarer/internal/location/cache"
	locationhandler "wayfarer/internal/location/handler"
	locationservice "wayfarer/internal/location/service"
	locationstore "wayfarer/internal/location/store"
	"wayfarer/internal/platform/config"
	"wayfarer/internal/platform/httpserver"
	"wayfarer/internal/platform/logger"
	"wayfarer/internal/platform/metrics"
	platformredis "wayfarer/internal/platform/redis"
	"wayfarer/internal/profile/friends"
	profilehandler "wayfarer/internal/profile/handler"
	profileservice "wayfarer/internal/profile/service"
	profilestore "wayfarer/internal/profile/store"
)

// main wires dependencies and owns the process lifecycle. Business rules live
// in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when configured, in-memory otherwise. The in-memory
	// stack exists for local development and keeps the same transactional
	// semantics through the coarse-lock tx.
	var (
		profiles  profileStore
		locations locationStore
		outbox    events.Outbox
		claimTx   claimservice.Tx
		db        *sql.DB
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}

		pgProfiles := profilestore.NewPostgres(db)
		pgLocations := locationstore.NewPostgres(db)
		pgOutbox := eventstore.NewPostgres(db)
		profiles, locations, outbox = pgProfiles, pgLocations, pgOutbox
		claimTx = claimstore.NewPostgresTx(db, claimservice.Stores{
			Profiles:  pgProfiles,
			Locations: pgLocations,
			Events:    pgOutbox,
		})
		log.Info("using postgres stores")
	} else {
		memProfiles := profilestore.NewInMemory()
		memLocations := locationstore.NewInMemory()
		memOutbox := eventstore.NewInMemory()
		profiles, locations, outbox = memProfiles, memLocations, memOutbox
		claimTx = claimservice.NewMemoryTx(claimservice.Stores{
			Profiles:  memProfiles,
			Locations: memLocations,
			Events:    memOutbox,
		})
		log.Warn("WAYFARER_POSTGRES_URL not set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var cache locationservice.Cache
	if redisClient != nil {
		defer redisClient.Close()
		cache = locationcache.NewRedis(redisClient.Client, cfg.LeaderboardCacheTTL)
		log.Info("leaderboard cache enabled", "ttl", cfg.LeaderboardCacheTTL)
	}

	var friendCounter profileservice.FriendCounter
	if cfg.FriendServiceURL != "" {
		friendCounter = friends.NewClient(cfg.FriendServiceURL, log)
		log.Info("friend counts enabled", "url", cfg.FriendServiceURL)
	}

	locationSvc := locationservice.NewService(locations, cache, log, m)
	profileSvc := profileservice.NewService(profiles, friendCounter, m)
	claimSvc := claimservice.NewService(
		claimTx,
		claimservice.Stores{Profiles: profiles, Locations: locations},
		log,
		m,
		claimservice.WithRetryBudget(cfg.ClaimRetryAttempts),
		claimservice.WithLeaderboardInvalidator(locationSvc),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "wayfarer", "wayfarer-api")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	claimhandler.New(claimSvc, log, m, validator).Register(router)
	profilehandler.New(profileSvc, log, m, validator).Register(router)
	locationhandler.New(locationSvc, log, m, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting wayfarer", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.KafkaSeeds != "" {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaSeeds),
			kgo.AllowAutoTopicCreation(),
		)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		rel := relay.New(outbox, kafkaClient, cfg.ClaimTopic, log, m)
		if err := rel.EnsureTopic(ctx, 3, 1); err != nil {
			log.Error("ensure claim topic", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := rel.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("outbox relay running", "topic", cfg.ClaimTopic)
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// The store interfaces the wiring needs are narrower than the concrete types;
// these aliases keep the postgres/memory branches assignable to one variable.
type profileStore interface {
	profileservice.Store
	claimservice.ProfileStore
}

type locationStore interface {
	locationservice.Store
	claimservice.LocationStore
}
