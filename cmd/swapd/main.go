package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"xswap/swapd/internal/constants"
	"xswap/swapd/internal/services"
	"xswap/swapd/internal/stores"
	"xswap/swapd/internal/utils/address"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("loading .env file")
	}

	listenAddr := envOr("SWAPD_LISTEN_ADDR", constants.DefaultListenAddr)
	dataDir := envOr("SWAPD_DATA_DIR", constants.DefaultDataDir)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", dataDir).Msg("creating data dir")
	}

	swaps, err := stores.NewLocalSwapStore(filepath.Join(dataDir, "swaps.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("initializing swap store")
	}
	defer swaps.Close()

	balances, err := stores.NewLocalBalanceStore(filepath.Join(dataDir, "balances.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("initializing balance store")
	}
	defer balances.Close()

	journal, err := stores.NewLocalEventJournal(filepath.Join(dataDir, "events.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("initializing event journal")
	}
	defer journal.Close()

	lastSeq, err := journal.LastSeq(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("reading event journal sequence")
	}
	log.Info().Str("dir", dataDir).Uint64("last_event_seq", lastSeq).Msg("stores initialized")

	events := services.NewEventPublisher(journal, log)
	defer events.Close()

	escrow, err := address.Parse(constants.EscrowAccount)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing escrow account")
	}
	treasury := services.NewLocalTreasury(balances, escrow)

	audit, err := services.AuditEscrow(context.Background(), swaps, balances, escrow)
	if err != nil {
		log.Fatal().Err(err).Msg("auditing escrow")
	}
	if audit.Balanced() {
		log.Info().
			Int("active_swaps", audit.ActiveSwaps).
			Str("locked", audit.LockedValue.String()).
			Msg("escrow audit clean")
	} else {
		log.Warn().
			Int("active_swaps", audit.ActiveSwaps).
			Str("locked", audit.LockedValue.String()).
			Str("escrow_balance", audit.EscrowBalance.String()).
			Msg("escrow balance does not match locked value")
	}

	ledger := services.NewSwapLedger(swaps, treasury, events, log)
	if raw := os.Getenv("SWAPD_MIN_TIMELOCK_SECONDS"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			log.Fatal().Str("value", raw).Msg("invalid SWAPD_MIN_TIMELOCK_SECONDS")
		}
		ledger.SetMinTimelock(time.Duration(secs) * time.Second)
	}

	if err := applyGenesisFunds(treasury, os.Getenv("SWAPD_GENESIS_FUNDS"), log); err != nil {
		log.Fatal().Err(err).Msg("applying genesis funds")
	}

	api := services.NewApiService(ledger, events, log, listenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigc
		log.Info().Msg("signal received, shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		cancel()
	}()

	// mirror lifecycle events into the log
	sub, unsubscribe := events.Subscribe(64)
	defer unsubscribe()
	go func() {
		for {
			select {
			case ev, ok := <-sub:
				if !ok {
					return
				}
				log.Info().
					Uint64("seq", ev.Seq).
					Str("type", string(ev.Type)).
					Str("swap_id", ev.SwapID.Hex()).
					Msg("event")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Str("addr", listenAddr).Msg("serving")
	if err := api.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// applyGenesisFunds parses "0xaddr:amount,0xaddr:amount" and credits each
// account. Funding is additive, so restarting with the same value re-credits;
// meant for local and test deployments.
func applyGenesisFunds(treasury *services.LocalTreasury, entries string, log zerolog.Logger) error {
	if entries == "" {
		return nil
	}
	ctx := context.Background()
	for _, entry := range strings.Split(entries, ",") {
		addrStr, amountStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			return fmt.Errorf("invalid genesis funds entry: %q", entry)
		}
		addr, err := address.Parse(addrStr)
		if err != nil {
			return err
		}
		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("invalid genesis funds entry: %q", entry)
		}
		if err := treasury.Fund(ctx, addr, amount); err != nil {
			return err
		}
		log.Info().Str("account", addr.Hex()).Str("amount", amount.String()).Msg("genesis funds applied")
	}
	return nil
}
