package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zusdchain/config"
	"zusdchain/core/events"
	"zusdchain/core/pricing"
	"zusdchain/core/state"
	"zusdchain/core/types"
	"zusdchain/crypto"
	"zusdchain/native/bank"
	"zusdchain/native/common"
	"zusdchain/native/stability"
	"zusdchain/native/vault"
	"zusdchain/observability"
	"zusdchain/observability/logging"
	"zusdchain/storage"
)

const envVar = "ZUSD_ENV"

// pauseSet adapts the static pause configuration to the module guard.
type pauseSet struct {
	vault     bool
	stability bool
}

func (p pauseSet) IsPaused(module string) bool {
	switch module {
	case "vault":
		return p.vault
	case "stability":
		return p.stability
	default:
		return false
	}
}

// logEmitter forwards engine events to the structured logger and the event
// counter. The sorted trove index maintainer consumes the same stream.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	attrs := []any{slog.String("type", evt.EventType())}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		if converted := payload.Event(); converted != nil {
			for key, value := range converted.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	e.logger.Info("event", attrs...)
	observability.Events().RecordEvent(evt.EventType())
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup(logging.Options{Service: "vaultd", Env: env}).
			Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.Setup(logging.Options{
		Service:    "vaultd",
		Env:        env,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	ledger := bank.NewLedger(manager)

	if err := registerDenoms(ledger, cfg); err != nil {
		logger.Error("Failed to register denoms", slog.Any("error", err))
		os.Exit(1)
	}

	feed := pricing.NewStaticFeed()
	for _, quote := range cfg.Oracle.Static {
		price, perr := quote.ParsedPrice()
		if perr != nil {
			logger.Error("Invalid static price", slog.String("denom", quote.Denom), slog.Any("error", perr))
			os.Exit(1)
		}
		decimals, derr := ledger.DenomDecimals(quote.Denom)
		if derr != nil {
			logger.Error("Static price for unregistered denom", slog.String("denom", quote.Denom), slog.Any("error", derr))
			os.Exit(1)
		}
		feed.SetQuote(quote.Denom, pricing.PriceQuote{
			Price:         price,
			Exponent:      quote.Exponent,
			TokenDecimals: decimals,
		})
	}
	guarded, err := pricing.NewGuardedFeed(feed, time.Duration(cfg.Oracle.MaxQuoteAgeSecs)*time.Second)
	if err != nil {
		logger.Error("Failed to construct price feed", slog.Any("error", err))
		os.Exit(1)
	}

	pauses := pauseSet{vault: cfg.Pauses.Vault, stability: cfg.Pauses.Stability}
	emitter := logEmitter{logger: logger}

	pool := stability.NewManager(crypto.ModuleAddress("stability"), cfg.StableDenom)
	pool.SetState(stability.NewState(manager))
	pool.SetLedger(ledger)
	pool.SetEmitter(emitter)
	pool.SetPauses(pauses)
	pool.SetMetrics(observability.Stability())

	engines := make(map[string]*vault.Engine, len(cfg.Collaterals))
	for _, coll := range cfg.Collaterals {
		engine := vault.NewEngine(crypto.ModuleAddress("vault"), cfg.StableDenom, coll.RiskParameters(cfg.StableDecimals))
		engine.SetState(vault.NewState(manager))
		engine.SetLedger(ledger)
		engine.SetStabilityPool(pool)
		engine.SetPriceFeed(guarded)
		engine.SetEmitter(emitter)
		engine.SetPauses(pauses)
		engine.SetQuota(cfg.VaultQuota())
		engine.SetMetrics(observability.Vault())
		engines[coll.Denom] = engine
		logger.Info("collateral enabled",
			slog.String("denom", coll.Denom),
			slog.Uint64("minRatioBps", coll.MinCollateralRatioBPS),
			slog.Uint64("feeBps", coll.OriginationFeeBPS))
	}

	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", serveErr))
			}
		}()
		logger.Info("metrics listening", slog.String("address", addr))
	}

	logger.Info("vaultd started",
		slog.String("dataDir", cfg.DataDir),
		slog.String("stableDenom", cfg.StableDenom),
		slog.Int("collaterals", len(engines)))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("vaultd shutting down")
}

func registerDenoms(ledger *bank.Ledger, cfg *config.Config) error {
	register := func(name string, decimals uint8) error {
		err := ledger.RegisterDenom(name, decimals)
		if errors.Is(err, bank.ErrDenomExists) {
			return nil
		}
		return err
	}
	if err := register(cfg.StableDenom, cfg.StableDecimals); err != nil {
		return err
	}
	for _, coll := range cfg.Collaterals {
		if err := register(coll.Denom, coll.Decimals); err != nil {
			return err
		}
	}
	return nil
}

var _ common.PauseView = pauseSet{}
