// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"interview-prep-workers/internal/audit"
	"interview-prep-workers/internal/common/auth"
	"interview-prep-workers/internal/common/aws"
	"interview-prep-workers/internal/common/camunda"
	"interview-prep-workers/internal/common/config"
	"interview-prep-workers/internal/common/database"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/observability"
	"interview-prep-workers/internal/common/zoho"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/entitlement"
	"interview-prep-workers/internal/identity"
	"interview-prep-workers/internal/models"
	"interview-prep-workers/internal/notify"
	"interview-prep-workers/internal/store"
	"interview-prep-workers/pkg/registry"

	aar "interview-prep-workers/internal/workers/account/account-assign-role"
	aau "interview-prep-workers/internal/workers/account/account-authenticate"
	are "interview-prep-workers/internal/workers/account/account-register"
	asi "interview-prep-workers/internal/workers/account/account-signin-interactive"
	aso "interview-prep-workers/internal/workers/account/account-signout"
	csr "interview-prep-workers/internal/workers/content/content-search"
	cvi "interview-prep-workers/internal/workers/content/content-visible"
	pup "interview-prep-workers/internal/workers/plan/plan-upgrade"
)

// identityChangedMessage is published to Zeebe whenever a session starts or ends.
const identityChangedMessage = "identity-changed"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker manager: %v\n", err)
		os.Exit(1)
	}
}

// backends are the connections the manager owns and closes on shutdown.
type backends struct {
	zeebe    *camunda.Client
	pg       *database.PostgresClient
	redis    *database.RedisClient
	sessions *database.SessionRedisClient
	es       *database.ElasticsearchClient
}

func (b *backends) close(log *zap.Logger) {
	for name, closer := range map[string]interface{ Close() error }{
		"zeebe":    b.zeebe,
		"postgres": b.pg,
		"redis":    b.redis,
		"sessions": b.sessions,
	} {
		if err := closer.Close(); err != nil {
			log.Warn("close failed", zap.String("backend", name), zap.Error(err))
		}
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Integrations.AWS.Secrets) > 0 {
		secrets, err := aws.NewSecretsClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return fmt.Errorf("secrets client: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, secrets); err != nil {
			return err
		}
		zapLog.Info("Secrets resolved", zap.Int("count", len(cfg.Integrations.AWS.Secrets)))
	}

	reg, err := registry.LoadRegistry(cfg.App.RegistryPath)
	if err != nil {
		return fmt.Errorf("activity registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("activity registry: %w", err)
	}

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	b, err := connect(ctx, cfg, zapLog)
	if err != nil {
		return err
	}
	defer b.close(zapLog)

	// --- Entitlement core ---
	cache := store.NewCachedStore(
		store.NewPostgresStore(b.pg.GetDB(), log),
		b.redis.GetClient(),
		config.GetDuration(cfg.Entitlement.CacheTTL),
		log,
	)
	sessions := identity.NewSessionStore(b.sessions.Client, config.GetDuration(cfg.Auth.SessionTTL), log)
	provider := identity.NewProvider(identity.Options{
		Keycloak: auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		),
		Google:         identity.NewGoogleOAuth(cfg.Auth.OAuthProviders.Google),
		Sessions:       sessions,
		SignInTimeout:  config.GetDuration(cfg.Auth.SignInTimeout),
		ValidateTokens: true,
		Logger:         log,
	})

	events, closeEvents, err := eventSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEvents()

	manager, err := entitlement.NewManager(entitlement.Options{
		Identity:   provider,
		Store:      cache,
		Events:     events,
		Collection: cfg.Entitlement.Collection,
		KnownRoles: cfg.Content.KnownRoles,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	// --- Content ---
	bank, err := contentgate.LoadBank(cfg.Content.BankPath)
	if err != nil {
		return err
	}
	index := contentgate.NewIndex(b.es, cfg.Content.Index, bank)
	zapLog.Info("Question bank loaded", zap.Int("roles", len(bank.Roles())), zap.Int("items", bank.Len()))

	crm := zoho.NewCRMClient(cfg.Integrations.Zoho.APIKey, cfg.Integrations.Zoho.AuthToken, cfg.Integrations.Zoho.BaseURL)

	handlers, err := buildHandlers(cfg, manager, crm, bank, index, obs, log)
	if err != nil {
		return err
	}

	var workers []*camunda.CamundaWorker
	for name, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, name)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("worker", name))
			continue
		}
		if err := reg.CheckRunnable(h.GetTaskType()); err != nil {
			return fmt.Errorf("worker %s: %w", name, err)
		}
		workers = append(workers, camunda.NewWorker(b.zeebe.GetClient(), name, wcfg, h, zapLog))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := index.Sync(gctx)
		if err != nil {
			// search degrades to an error per job; the gate itself keeps working
			zapLog.Error("question index sync failed", zap.String("index", index.Name()), zap.Error(err))
			return nil
		}
		zapLog.Info("Question index synced", zap.String("index", index.Name()), zap.Int("documents", n))
		return nil
	})

	g.Go(func() error {
		return sessions.Watch(gctx, func(event models.IdentityEvent) {
			cache.Invalidate(gctx, cfg.Entitlement.Collection, event.AccountID)
			err := b.zeebe.PublishMessage(gctx, identityChangedMessage, event.AccountID, map[string]interface{}{
				"identityEvent": event.Type,
				"sessionId":     event.SessionID,
			})
			if err != nil {
				zapLog.Warn("identity change not published",
					zap.String("accountId", event.AccountID),
					zap.String("type", event.Type),
					zap.Error(err),
				)
			}
		})
	})

	server := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           newRouter(b),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, w := range workers {
			w.Stop(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	zapLog.Info("Worker manager stopped")
	return err
}

func connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	err := retryWithBackoff(ctx, func() error {
		var err error
		b.zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.UsePlaintext,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		return nil, err
	}
	log.Info("Zeebe client connected successfully")

	err = retryWithBackoff(ctx, func() error {
		var err error
		b.pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return b.pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	if cfg.Database.Postgres.AutoMigrate {
		if err := b.pg.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	log.Info("PostgreSQL connected successfully")

	err = retryWithBackoff(ctx, func() error {
		var err error
		b.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return b.es.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	log.Info("Elasticsearch connected successfully")

	err = retryWithBackoff(ctx, func() error {
		var err error
		b.redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return b.redis.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return nil, err
	}

	b.sessions = database.NewSessionRedis(cfg.Database.Sessions)
	err = retryWithBackoff(ctx, func() error {
		return b.sessions.Ping(ctx)
	}, 10, 2*time.Second, log, "Session store connection")
	if err != nil {
		return nil, err
	}
	log.Info("Redis connected successfully")

	return b, nil
}

// eventSinks assembles the account event fan-out: the log always, Kafka and AWS
// notifications when enabled.
func eventSinks(ctx context.Context, cfg *config.Config, log logger.Logger) (audit.Fanout, func(), error) {
	sinks := audit.Fanout{audit.NewLogSink(log)}
	closeFn := func() {}

	if cfg.Integrations.Kafka.Enabled {
		writer, err := audit.NewKafkaWriter(cfg.Integrations.Kafka)
		if err != nil {
			return nil, nil, err
		}
		kafkaSink := audit.NewKafkaSink(writer, cfg.Integrations.Kafka.Topic)
		sinks = append(sinks, kafkaSink)
		closeFn = func() {
			if err := kafkaSink.Close(); err != nil {
				log.Warn("Kafka writer close failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		opts := notify.Options{FromEmail: awsCfg.SES.FromEmail, TopicARN: awsCfg.SNS.TopicARN, Logger: log}
		if awsCfg.SES.Enabled {
			client, err := aws.NewSESClient(ctx, awsCfg.Region)
			if err != nil {
				return nil, nil, fmt.Errorf("ses client: %w", err)
			}
			opts.Email = client
		}
		if awsCfg.SNS.Enabled {
			client, err := aws.NewSNSClient(ctx, awsCfg.Region)
			if err != nil {
				return nil, nil, fmt.Errorf("sns client: %w", err)
			}
			opts.Topic = client
		}
		sinks = append(sinks, notify.New(opts))
	}

	return sinks, closeFn, nil
}

// buildHandlers constructs every job handler keyed by worker name.
func buildHandlers(
	cfg *config.Config,
	manager *entitlement.Manager,
	crm *zoho.CRMClient,
	bank *contentgate.Bank,
	index *contentgate.Index,
	obs *observability.Observability,
	log logger.Logger,
) (map[string]camunda.JobHandler, error) {
	handlers := map[string]camunda.JobHandler{}
	add := func(name string, h camunda.JobHandler, err error) error {
		if err != nil {
			return err
		}
		handlers[name] = h
		return nil
	}

	signIn, err := asi.NewHandler(asi.HandlerOptions{AppConfig: cfg, Accounts: manager, CRM: crm, Observability: obs, Logger: log})
	if err := add("account-signin-interactive", signIn, err); err != nil {
		return nil, err
	}
	register, err := are.NewHandler(are.HandlerOptions{AppConfig: cfg, Accounts: manager, CRM: crm, Observability: obs, Logger: log})
	if err := add("account-register", register, err); err != nil {
		return nil, err
	}
	authenticate, err := aau.NewHandler(aau.HandlerOptions{AppConfig: cfg, Accounts: manager, Observability: obs, Logger: log})
	if err := add("account-authenticate", authenticate, err); err != nil {
		return nil, err
	}
	assignRole, err := aar.NewHandler(aar.HandlerOptions{AppConfig: cfg, Accounts: manager, Observability: obs, Logger: log})
	if err := add("account-assign-role", assignRole, err); err != nil {
		return nil, err
	}
	signOut, err := aso.NewHandler(aso.HandlerOptions{AppConfig: cfg, Accounts: manager, Observability: obs, Logger: log})
	if err := add("account-signout", signOut, err); err != nil {
		return nil, err
	}
	upgrade, err := pup.NewHandler(pup.HandlerOptions{AppConfig: cfg, Accounts: manager, CRM: crm, Observability: obs, Logger: log})
	if err := add("plan-upgrade", upgrade, err); err != nil {
		return nil, err
	}
	visible, err := cvi.NewHandler(cvi.HandlerOptions{AppConfig: cfg, Accounts: manager, Gate: bank, Observability: obs, Logger: log})
	if err := add("content-visible", visible, err); err != nil {
		return nil, err
	}
	search, err := csr.NewHandler(csr.HandlerOptions{AppConfig: cfg, Accounts: manager, Searcher: index, Observability: obs, Logger: log})
	if err := add("content-search", search, err); err != nil {
		return nil, err
	}

	return handlers, nil
}

func newRouter(b *backends) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, ping := range map[string]func(context.Context) error{
			"zeebe":         b.zeebe.HealthCheck,
			"postgres":      b.pg.Ping,
			"redis":         b.redis.Ping,
			"sessions":      b.sessions.Ping,
			"elasticsearch": b.es.Ping,
		} {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeStatus(w, status, checks)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
