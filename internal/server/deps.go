package server

import (
	"crypto/rsa"
	"fmt"
	"log/slog"

	"github.com/Anvoria/walletauth/internal/cache"
	"github.com/Anvoria/walletauth/internal/config"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/account"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/session"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/identity"
	"github.com/Anvoria/walletauth/internal/memstore"
	"github.com/Anvoria/walletauth/internal/notify"
	"github.com/benbjohnson/clock"
)

// Storage is the set of repositories sharing one executor
type Storage struct {
	Users    user.Repository
	Devices  device.Repository
	Tokens   device.TokenRepository
	Executor database.Executor
	close    func() error
}

// Close releases the underlying connections
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// MemoryStorage returns storage backed by the in-process store
func MemoryStorage(pool *database.Pool, clk clock.Clock) *Storage {
	store := memstore.New(pool, clk)
	return &Storage{
		Users:    store.Users(),
		Devices:  store.Devices(),
		Tokens:   store.Tokens(),
		Executor: store,
	}
}

// OpenStorage connects the store selected by database.driver
func OpenStorage(cfg *config.Config, clk clock.Clock) (*Storage, error) {
	pool := database.NewPool(cfg.WorkerPool.PoolSize())
	if cfg.Database.UseMemory() {
		slog.Warn("Using in-memory storage, data is lost on restart")
		return MemoryStorage(pool, clk), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	return &Storage{
		Users:    user.NewRepository(db),
		Devices:  device.NewRepository(db),
		Tokens:   device.NewTokenRepository(db),
		Executor: database.NewGormExecutor(db, pool),
		close:    sqlDB.Close,
	}, nil
}

// OpenWatermarks returns the redis watermark cache when enabled, the in-process one otherwise
func OpenWatermarks(cfg *config.RedisConfig) (cache.Watermarks, func() error, error) {
	if !cfg.Enabled {
		return cache.NewMemoryWatermarks(cfg.WatermarkTTL()), func() error { return nil }, nil
	}

	client, err := cache.ConnectRedis(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisWatermarks(client, cfg.WatermarkTTL()), client.Close, nil
}

// NewNotifier returns the smtp notifier, or one that only logs when no relay is configured
func NewNotifier(cfg *config.Config) (*notify.DeviceNotifier, error) {
	var sender notify.Sender = notify.LogSender{}
	if cfg.SMTP.Host != "" {
		sender = notify.NewSMTPSender(&cfg.SMTP)
	}
	return notify.NewDeviceNotifier(sender, cfg.Notifications.DeviceConfirmURL, cfg.Auth.TokenExpiration())
}

// Dependencies are the components the routes are built from
type Dependencies struct {
	Validator   *auth.SessionValidator
	Checker     *auth.RevocationChecker
	Verifier    *device.Verifier
	Trust       *device.TrustService
	Storage     *Storage
	Accounts    *account.Service
	Sessions    *session.Service
	Metrics     *Metrics
	RedirectURL string
}

// Collaborators are the outside systems the dependencies talk to
type Collaborators struct {
	JWTKey     *rsa.PublicKey
	Storage    *Storage
	Watermarks cache.Watermarks
	Identity   identity.Client
	Notifier   device.Notifier
	Clock      clock.Clock
}

// NewDependencies wires the services together
func NewDependencies(cfg *config.Config, c Collaborators) (*Dependencies, error) {
	key, err := auth.ImportVerificationKey(c.JWTKey)
	if err != nil {
		return nil, err
	}

	st := c.Storage
	checker := auth.NewRevocationChecker(st.Users, c.Watermarks, st.Executor)
	trust := device.NewTrustService(st.Users, st.Devices, st.Tokens, st.Executor, c.Notifier, c.Clock, device.TrustConfig{
		TokenExpiration:     cfg.Auth.TokenExpiration(),
		EmailSendingTimeout: cfg.Auth.EmailSendingTimeout(),
	})

	return &Dependencies{
		Validator:   auth.NewSessionValidator(key, cfg.Auth.Leeway(), c.Clock),
		Checker:     checker,
		Verifier:    device.NewVerifier(st.Users, st.Devices, st.Executor, cfg.Auth.StrictTimestamps()),
		Trust:       trust,
		Storage:     st,
		Accounts:    account.NewService(c.Identity, st.Users, st.Devices, st.Executor),
		Sessions:    session.NewService(c.Identity, checker),
		Metrics:     NewMetrics(),
		RedirectURL: cfg.Redirections.ConfirmRegisterDeviceURL,
	}, nil
}
