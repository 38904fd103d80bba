package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/solmeet-dev/solmeet-backend/internal/api"
	"github.com/solmeet-dev/solmeet-backend/internal/bot"
	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/config"
	"github.com/solmeet-dev/solmeet-backend/internal/cron"
	"github.com/solmeet-dev/solmeet-backend/internal/faucet"
	"github.com/solmeet-dev/solmeet-backend/internal/notification"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/seed"
	"github.com/solmeet-dev/solmeet-backend/internal/service"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
	"github.com/solmeet-dev/solmeet-backend/internal/telegram"
	"github.com/solmeet-dev/solmeet-backend/internal/wallet"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.TelegramBotToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_API_KEY is required")
	}

	// Storage: Redis when configured, files otherwise. A Redis that does
	// not answer degrades to files so the bot still comes up.
	openStore := fileStoreOpener(cfg.DataDir)
	storageBackend := "files"
	if cfg.StorageBackend == "redis" {
		client, err := store.Dial(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis connection failed: %v (continuing with file storage)", err)
		} else {
			openStore = func(name string) store.RecordStore {
				return store.NewRedisStore(client, name+":")
			}
			storageBackend = "redis"
		}
	}

	catalog := repository.NewEventCatalog(openStore("events"))
	roster := repository.NewParticipantLedger(openStore("rosters"))
	requests := repository.NewJoinRequestLedger(openStore("requests"), catalog, roster)

	if cfg.SeedDemo && cfg.Environment == "development" {
		seed.SeedData(catalog, roster, requests)
	}

	// Solana: a payer keypair and RPC client, or a disabled adapter when
	// running without a chain connection (SOLANA_RPC_URL=off).
	adapter := chain.NewDisabled()
	chainEnabled := cfg.SolanaRPCURL != "" && cfg.SolanaRPCURL != "off"
	var solClient *solana.Client
	if chainEnabled {
		payer, err := servicePayer(cfg.ServiceWalletSeed)
		if err != nil {
			log.Fatalf("❌ Invalid SERVICE_WALLET_SEED: %v", err)
		}
		solClient = solana.NewClient(solana.Config{
			RPCURL:    cfg.SolanaRPCURL,
			WSURL:     cfg.SolanaWSURL,
			Payer:     payer,
			Namespace: cfg.ProgramID,
		})
		adapter = solClient
		log.Printf("✅ Solana attestation enabled (payer %s)", payer.Address())
	} else {
		log.Println("⚠️ Solana attestation disabled, events stay local-only")
	}
	guard := chain.NewGuard(adapter, time.Duration(cfg.ChainTimeoutSeconds)*time.Second)

	// Telegram
	tgClient := telegram.NewClient(cfg.TelegramBotToken)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	me, err := tgClient.GetMe(ctx)
	if err != nil {
		log.Fatalf("❌ Telegram token rejected: %v", err)
	}
	log.Printf("✅ Telegram bot @%s ready", me.Username)

	// Services
	dispatcher := notification.NewDispatcher(tgClient, roster)
	members := service.NewMembershipService(catalog, requests, roster, guard, dispatcher)
	wallets := wallet.NewService(openStore("wallets"), openStore("links"), openStore("connects"), wallet.Config{
		TokenSecret:    cfg.ConnectTokenSecret,
		KeystoreSecret: cfg.KeystoreSecret,
		ConnectBaseURL: cfg.WalletConnectBaseURL,
	})

	var faucetSvc *faucet.Service
	var balances bot.BalanceReader
	var cronGuard *chain.Guard
	if chainEnabled {
		faucetSvc = faucet.NewService(solClient, openStore("faucet"),
			decimal.NewFromFloat(cfg.FaucetAmountSOL),
			time.Duration(cfg.FaucetCooldownMinutes)*time.Minute)
		balances = solClient
		cronGuard = guard
	}

	botSvc := bot.NewBot(tgClient, members, wallets, faucetSvc, balances)
	if err := tgClient.SetMyCommands(ctx, bot.Commands()); err != nil {
		log.Printf("⚠️ Failed to register bot commands: %v", err)
	}

	// Background jobs
	scheduler := cron.NewScheduler(catalog, roster, cronGuard, wallets, faucetSvc)
	scheduler.Start()
	defer scheduler.Stop()

	// Long polling
	poller := telegram.NewPoller(tgClient, botSvc)
	go func() {
		if err := poller.Run(ctx); err != nil {
			log.Printf("⚠️ Telegram poller stopped: %v", err)
		}
	}()

	// HTTP surface: health, event share pages, wallet-connect callback
	apiServer := api.NewServer(members, wallets, tgClient, api.HealthInfo{
		Storage:      storageBackend,
		ChainEnabled: chainEnabled,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// fileStoreOpener returns an opener that places each collection in its
// own directory under the data dir.
func fileStoreOpener(dataDir string) func(name string) store.RecordStore {
	return func(name string) store.RecordStore {
		st, err := store.NewFileStore(filepath.Join(dataDir, name))
		if err != nil {
			log.Fatalf("❌ Failed to open %s store: %v", name, err)
		}
		return st
	}
}

// servicePayer loads the attestation payer from its base58 seed, or
// generates an ephemeral keypair when none is configured.
func servicePayer(seed string) (*solana.Keypair, error) {
	if seed != "" {
		return solana.KeypairFromBase58(seed)
	}
	payer := solana.NewKeypair()
	log.Printf("⚠️ SERVICE_WALLET_SEED not set, using ephemeral payer %s", payer.Address())
	return payer, nil
}
