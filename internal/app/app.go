package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/pvzzle/airdrop/internal/bus"
	"github.com/pvzzle/airdrop/internal/chain"
	"github.com/pvzzle/airdrop/internal/distribute"
	"github.com/pvzzle/airdrop/internal/ledger"
	"github.com/pvzzle/airdrop/internal/metrics"
	"github.com/pvzzle/airdrop/internal/storage"
	"github.com/pvzzle/airdrop/internal/storage/pg"
	"github.com/pvzzle/airdrop/internal/tg"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	tgbot "github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return fmt.Errorf("private key: %w", err)
	}
	operator := crypto.PubkeyToAddress(key.PublicKey)

	ethCl, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer ethCl.Close()

	chainID, err := ethCl.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if cfg.ExpectedChainID != 0 && chainID.Cmp(new(big.Int).SetUint64(cfg.ExpectedChainID)) != 0 {
		return fmt.Errorf("chain id mismatch: node reports %s, expected %d", chainID, cfg.ExpectedChainID)
	}

	network := chain.Network{
		Name:        cfg.ChainName,
		ChainID:     chainID,
		ExplorerURL: cfg.ExplorerURL,
	}
	contract := common.HexToAddress(cfg.ContractAddress)

	client, err := chain.NewClient(ethCl, key, chainID, chain.ClientConfig{
		Contract:          contract,
		Method:            cfg.TransferMethod,
		PollInterval:      cfg.ReceiptPollInterval,
		SettlementTimeout: cfg.SettlementTimeout,
		RateLimit:         cfg.RPCRateLimit,
	})
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}

	var repo storage.Repository = storage.Nop{}
	if cfg.PostgresURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("pgxpool new: %w", err)
		}
		defer pgPool.Close()

		pgRepo := pg.New(pgPool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		repo = pgRepo
	}

	var sink metrics.Sink = metrics.NewNoopSink()
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		sink = metrics.NewPrometheusSink(reg)
		stop := serveMetrics(cfg.MetricsAddr, reg)
		defer stop()
	}

	var notifyCh chan bus.Notification
	if cfg.TelegramToken != "" {
		b, err := tgbot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("telegram bot init: %w", err)
		}

		notifyCh = make(chan bus.Notification, cfg.NotifyBuffer)
		tgSvc := tg.NewService(b, cfg.TelegramChatID, notifyCh)

		done := make(chan struct{})
		go func() {
			defer close(done)
			tgSvc.StartNotifyLoop(ctx)
		}()
		defer func() {
			close(notifyCh)
			<-done
		}()
	}

	engine := distribute.NewEngine(client, ledger.NewFileStore(cfg.LedgerPath), repo, notifyCh, sink, distribute.Config{
		Operator:         operator,
		Contract:         contract,
		Network:          network,
		LedgerPath:       cfg.LedgerPath,
		Decimals:         cfg.TokenDecimals,
		MinConfirmations: cfg.MinConfirmations,
		Pacer:            distribute.FixedDelay(cfg.PacingDelay),
	})

	log.Printf("started. network=%s contract=%s operator=%s ledger=%s", network, contract.Hex(), operator.Hex(), cfg.LedgerPath)

	sum, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	log.Printf("finished. run=%s succeeded=%d failed=%d processed=%d already_settled=%d",
		sum.RunID, sum.Succeeded, sum.Failed, sum.Total, sum.Skipped)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("[metrics] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[metrics] server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
