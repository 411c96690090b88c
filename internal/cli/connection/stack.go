package connection

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yndnr/notekeep-go/internal/cli/config"
	"github.com/yndnr/notekeep-go/internal/client/api"
	"github.com/yndnr/notekeep-go/internal/client/cache"
	"github.com/yndnr/notekeep-go/internal/client/gateway"
	"github.com/yndnr/notekeep-go/internal/client/session"
	"github.com/yndnr/notekeep-go/internal/infra/buildinfo"
	"github.com/yndnr/notekeep-go/internal/infra/shutdown"
	"github.com/yndnr/notekeep-go/internal/storage"
	"github.com/yndnr/notekeep-go/internal/storage/memory"
	"github.com/yndnr/notekeep-go/internal/storage/redis"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
	"github.com/yndnr/notekeep-go/pkg/crypto/adaptive"
)

// Options adjusts how the stack is opened.
type Options struct {
	// Ephemeral keeps the session in memory regardless of configuration.
	Ephemeral bool

	Logger     logger.Logger
	HTTPClient *http.Client
}

// Stack is an opened client stack.
type Stack struct {
	KV      storage.KV
	Store   *session.Store
	Gateway *gateway.Gateway
	Cache   *cache.Cache
	API     *api.Client

	shutdown *shutdown.Handler
}

// Open builds the stack. On error everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, opts Options) (_ *Stack, err error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	st := &Stack{shutdown: shutdown.NewHandler(cfg.Gateway.Timeout)}
	st.shutdown.SetLogger(log)
	defer func() {
		if err != nil {
			_ = st.Close()
		}
	}()

	backend := cfg.Session.Backend
	if opts.Ephemeral {
		backend = config.BackendMemory
	}
	st.KV, err = openKV(ctx, backend, cfg.Session, log)
	if err != nil {
		return nil, err
	}
	st.shutdown.OnClose("session backend", st.KV.Close)

	storeOpts := []session.Option{session.WithLogger(log.With("component", "session"))}
	if cfg.Session.EncryptionKey != "" {
		sealer, serr := adaptive.NewSealer([]byte(cfg.Session.EncryptionKey), session.SealInfo)
		if serr != nil {
			return nil, fmt.Errorf("session sealer: %w", serr)
		}
		storeOpts = append(storeOpts, session.WithSealer(sealer))
	}
	st.Store, err = session.New(ctx, st.KV, storeOpts...)
	if err != nil {
		return nil, err
	}

	gwOpts := []gateway.Option{gateway.WithLogger(log.With("component", "gateway"))}
	if opts.HTTPClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(opts.HTTPClient))
	}
	st.Gateway, err = gateway.New(gateway.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		RefreshURL: cfg.Gateway.RefreshURL,
		UserAgent:  buildinfo.UserAgent(),
		Timeout:    cfg.Gateway.Timeout,
		RateLimit:  cfg.Gateway.RateLimit,
		RateBurst:  cfg.Gateway.RateBurst,
	}, st.Store, gwOpts...)
	if err != nil {
		return nil, err
	}

	if bkv, ok := st.KV.(*storage.BadgerKV); ok {
		bkv.RegisterMetrics(st.Gateway.Metrics().Registerer())
	}

	st.Cache, err = cache.New(cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	st.API = api.New(st.Gateway, st.Store, st.Cache)
	log.Debug("client stack opened", "backend", backend, "base_url", cfg.Gateway.BaseURL)
	return st, nil
}

// OnClose registers an extra hook run before the stack's own resources
// are released.
func (s *Stack) OnClose(name string, fn func() error) {
	s.shutdown.OnClose(name, fn)
}

// Close releases the stack in reverse open order.
func (s *Stack) Close() error {
	return s.shutdown.Shutdown()
}

func openKV(ctx context.Context, backend string, cfg config.SessionConfig, log logger.Logger) (storage.KV, error) {
	switch backend {
	case config.BackendMemory:
		return memory.New(), nil

	case config.BackendRedis:
		var opts []redis.Option
		if cfg.Namespace != "" {
			opts = append(opts, redis.WithPrefix(cfg.Namespace))
		}
		kv, err := redis.Dial(ctx, cfg.RedisURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("open redis session backend: %w", err)
		}
		return kv, nil

	case config.BackendBadger, "":
		kvCfg := storage.DefaultKVConfig(cfg.StateDir)
		kvCfg.Namespace = cfg.Namespace
		kv, err := storage.NewBadgerKV(kvCfg, log.With("component", "badger"))
		if err != nil {
			return nil, fmt.Errorf("open session state in %s: %w", cfg.StateDir, err)
		}
		return kv, nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
