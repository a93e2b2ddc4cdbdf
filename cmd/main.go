package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	_ "github.com/sbilibin2017/gw-escrow-market/docs"
	"github.com/sbilibin2017/gw-escrow-market/internal/events"
	"github.com/sbilibin2017/gw-escrow-market/internal/facades"
	"github.com/sbilibin2017/gw-escrow-market/internal/handlers"
	"github.com/sbilibin2017/gw-escrow-market/internal/jwt"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/middlewares"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/repositories"
	"github.com/sbilibin2017/gw-escrow-market/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// Storage drivers.
const (
	storeDriverPostgres = "postgres"
	storeDriverBadger   = "badger"
)

// Payment gateway modes.
const (
	gatewayModeGRPC    = "grpc"
	gatewayModeSandbox = "sandbox"
)

// @title gw-escrow-market API
// @version 1.0.0
// @description Escrow engine for a peer-to-peer marketplace: purchase requests, seller decisions, held payments and pickup codes
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath, issueToken := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if issueToken != "" {
		token, err := issueDevToken(context.Background(), cfg, issueToken)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path
// and the optional user for whom a token should be issued.
func parseFlags() (configPath, issueToken string) {
	c := flag.String("c", "config.env", "Path to configuration file")
	t := flag.String("issue-token", "", "Print a bearer token for user_id[:name] and exit")
	flag.Parse()
	return *c, *t
}

// config holds every setting read from the environment.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	StoreDriver string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	BadgerPath string

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	LockTTL           time.Duration
	LockWait          time.Duration

	KafkaBrokers            []string
	KafkaTransactionsTopic  string
	KafkaNotificationsTopic string

	GatewayMode    string
	GatewayHost    string
	GatewayPort    string
	PaymentTimeout time.Duration

	ProximityThresholdKm float64
	EventBufferSize      int
	ItemsSeedPath        string

	JWTSecretKey string
	JWTExp       time.Duration
}

// parseConfig loads environment variables from a file and returns
// the application, storage, locking, messaging, gateway and JWT configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}
	getMillis := func(key, defaultValue string) (time.Duration, error) {
		ms, err := getInt(key, defaultValue)
		return time.Duration(ms) * time.Millisecond, err
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")

	// Storage config
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", storeDriverPostgres))
	if cfg.StoreDriver != storeDriverPostgres && cfg.StoreDriver != storeDriverBadger {
		err = fmt.Errorf("STORE_DRIVER: unsupported driver %q", cfg.StoreDriver)
		return
	}

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Badger config; empty path keeps the ledger in memory
	cfg.BadgerPath = getEnv("BADGER_PATH", "")

	// Redis config; empty host selects the in-process locker
	cfg.RedisHost = getEnv("REDIS_HOST", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	if cfg.LockTTL, err = getMillis("LOCK_TTL_MS", "30000"); err != nil {
		return
	}
	if cfg.LockWait, err = getMillis("LOCK_WAIT_MS", "5000"); err != nil {
		return
	}

	// Kafka config; no brokers disables publishing
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.KafkaTransactionsTopic = getEnv("KAFKA_TRANSACTIONS_TOPIC", "escrow.transactions")
	cfg.KafkaNotificationsTopic = getEnv("KAFKA_NOTIFICATIONS_TOPIC", "escrow.notifications")

	// Payment gateway config
	cfg.GatewayMode = strings.ToLower(getEnv("PAYMENT_GATEWAY_MODE", gatewayModeGRPC))
	if cfg.GatewayMode != gatewayModeGRPC && cfg.GatewayMode != gatewayModeSandbox {
		err = fmt.Errorf("PAYMENT_GATEWAY_MODE: unsupported mode %q", cfg.GatewayMode)
		return
	}
	cfg.GatewayHost = getEnv("PAYMENT_GATEWAY_HOST", "localhost")
	cfg.GatewayPort = getEnv("PAYMENT_GATEWAY_PORT", "50051")
	if cfg.PaymentTimeout, err = getMillis("PAYMENT_TIMEOUT_MS", "10000"); err != nil {
		return
	}
	// The lock lease has to outlive the gateway call made while holding it.
	if cfg.LockTTL <= cfg.PaymentTimeout {
		err = fmt.Errorf("LOCK_TTL_MS (%s) must exceed PAYMENT_TIMEOUT_MS (%s)", cfg.LockTTL, cfg.PaymentTimeout)
		return
	}

	// Engine config
	if cfg.ProximityThresholdKm, err = strconv.ParseFloat(getEnv("PROXIMITY_THRESHOLD_KM", "0.5"), 64); err != nil {
		err = fmt.Errorf("PROXIMITY_THRESHOLD_KM: %w", err)
		return
	}
	if cfg.EventBufferSize, err = getInt("EVENT_BUFFER_SIZE", "64"); err != nil {
		return
	}
	cfg.ItemsSeedPath = getEnv("ITEMS_SEED_PATH", "")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	jwtExpSecond, err := getInt("JWT_EXP_SECOND", "3600")
	if err != nil {
		return
	}
	cfg.JWTExp = time.Duration(jwtExpSecond) * time.Second

	return
}

// issueDevToken signs a token for "user_id[:name]" with the configured secret.
func issueDevToken(ctx context.Context, cfg config, subject string) (string, error) {
	userID, name, _ := strings.Cut(subject, ":")
	j := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExp))
	return j.Generate(ctx, userID, name)
}

// itemSaver is implemented by both item stores.
type itemSaver interface {
	Save(ctx context.Context, item models.Item) error
}

// storage groups the repositories the engine runs on.
type storage struct {
	txs      services.TransactionStore
	items    services.ItemReader
	seeder   itemSaver
	stock    services.StockStore
	messages interface {
		services.MessageReader
		services.MessageWriter
	}
	close func()
}

// openStorage connects the configured store.
func openStorage(ctx context.Context, cfg config) (*storage, error) {
	if cfg.StoreDriver == storeDriverBadger {
		logger.Log.Infof("Opening embedded ledger at %q", cfg.BadgerPath)
		ledger, err := repositories.OpenEmbeddedLedger(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open embedded ledger: %w", err)
		}
		items := repositories.EmbeddedItems{EmbeddedLedger: ledger}
		return &storage{
			txs:      ledger,
			items:    items,
			seeder:   items,
			stock:    ledger,
			messages: ledger,
			close: func() {
				if err := ledger.Close(); err != nil {
					logger.Log.Errorw("failed to close embedded ledger", "error", err)
				}
			},
		}, nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d/%s", cfg.PGHost, cfg.PGPort, cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)
	if err := repositories.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	items := repositories.NewItemRepository(db)
	return &storage{
		txs:      repositories.NewTransactionRepository(db),
		items:    items,
		seeder:   items,
		stock:    items,
		messages: repositories.NewMessageRepository(db),
		close:    func() { db.Close() },
	}, nil
}

// seedItems loads a JSON array of items into the catalog.
func seedItems(ctx context.Context, store itemSaver, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for _, item := range items {
		if err := store.Save(ctx, item); err != nil {
			return fmt.Errorf("save item %s: %w", item.ID, err)
		}
	}
	logger.Log.Infof("Seeded %d items from %s", len(items), path)
	return nil
}

// newLocker returns a Redis lock when Redis is configured, an in-process one otherwise.
func newLocker(ctx context.Context, cfg config) (services.Locker, func(), error) {
	if cfg.RedisHost == "" {
		logger.Log.Info("REDIS_HOST not set, using in-process transaction locks")
		return repositories.NewLocalLocker(cfg.LockWait), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("Redis connection error: %w", err)
	}
	return repositories.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait), func() { rdb.Close() }, nil
}

// newKafkaWriter returns nil when no brokers are configured.
func newKafkaWriter(cfg config, topic string) *kafka.Writer {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

// newGateway connects the payment gateway, or starts the in-process sandbox.
func newGateway(cfg config) (services.PaymentGateway, func(), error) {
	if cfg.GatewayMode == gatewayModeSandbox {
		logger.Log.Warn("Using sandbox payment gateway, no real funds are moved")
		return facades.NewSandboxGateway(), func() {}, nil
	}

	grpcAddr := fmt.Sprintf("%s:%s", cfg.GatewayHost, cfg.GatewayPort)
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to payment gateway at %s: %w", grpcAddr, err)
	}
	facade := facades.NewPaymentGatewayGRPCFacade(facades.NewPaymentGatewayClient(conn))
	return facade, func() { conn.Close() }, nil
}

// run initializes the logger, storage, locks, gateway, event bus and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	if cfg.ItemsSeedPath != "" {
		if err := seedItems(ctx, store.seeder, cfg.ItemsSeedPath); err != nil {
			return fmt.Errorf("seed items: %w", err)
		}
	}

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	gateway, closeGateway, err := newGateway(cfg)
	if err != nil {
		return err
	}
	defer closeGateway()

	// Kafka writers
	changeWriter := newKafkaWriter(cfg, cfg.KafkaTransactionsTopic)
	notifyWriter := newKafkaWriter(cfg, cfg.KafkaNotificationsTopic)
	if changeWriter == nil {
		logger.Log.Warn("KAFKA_BROKERS not set, transaction changes and notifications are not published")
	}

	// Event bus and subscribers
	bus := events.NewBus(cfg.EventBufferSize, 0)
	bus.Subscribe("audit", services.NewAuditSubscriber(store.messages))
	bus.Subscribe("notifications", services.NewNotificationDispatcher(services.NewKafkaNotifier(writerOrNil(notifyWriter))))
	bus.Subscribe("changefeed", services.NewChangeFeedPublisher(writerOrNil(changeWriter)))
	defer func() {
		bus.Close()
		for _, w := range []*kafka.Writer{changeWriter, notifyWriter} {
			if w == nil {
				continue
			}
			if err := w.Close(); err != nil {
				logger.Log.Errorw("failed to close kafka writer", "topic", w.Topic, "error", err)
			}
		}
	}()

	// Initialize services
	escrowService := services.NewEscrowService(
		store.txs,
		store.items,
		services.NewInventoryService(store.stock),
		store.messages,
		locker,
		gateway,
		bus,
		services.WithPaymentTimeout(cfg.PaymentTimeout),
	)
	proximityService := services.NewProximityService(store.txs, bus, cfg.ProximityThresholdKm)

	// Initialize JWT service
	tokener := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExp))

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(tokener))
		handlers.RegisterTransactionHandlers(r,
			handlers.NewRequestPurchaseHandler(escrowService),
			handlers.NewListTransactionsHandler(escrowService),
			handlers.NewGetTransactionHandler(escrowService),
		)
		handlers.RegisterLifecycleHandlers(r, handlers.LifecycleHandlers{
			Respond:  handlers.NewRespondHandler(escrowService),
			Pay:      handlers.NewSubmitPaymentHandler(escrowService),
			Withdraw: handlers.NewWithdrawPaymentHandler(escrowService),
			Redeem:   handlers.NewRedeemCodeHandler(escrowService),
			Meetup:   handlers.NewSetMeetupHandler(escrowService),
		})
		handlers.RegisterSideChannelHandlers(r,
			handlers.NewListMessagesHandler(escrowService),
			handlers.NewProximityHandler(proximityService),
		)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}

// writerOrNil keeps a nil *kafka.Writer from becoming a non-nil interface.
func writerOrNil(w *kafka.Writer) services.KafkaWriter {
	if w == nil {
		return nil
	}
	return w
}
