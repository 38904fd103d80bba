package cron

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/faucet"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/wallet"
)

// Scheduler handles scheduled background tasks
type Scheduler struct {
	cron    *cron.Cron
	catalog repository.EventCatalog
	roster  repository.ParticipantLedger
	guard   *chain.Guard
	wallets *wallet.Service
	faucet  *faucet.Service
}

// NewScheduler creates a new scheduler. Pass a nil guard when the bot
// runs without chain access; the attestation retry then skips itself.
func NewScheduler(catalog repository.EventCatalog, roster repository.ParticipantLedger, guard *chain.Guard, wallets *wallet.Service, faucetSvc *faucet.Service) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		catalog: catalog,
		roster:  roster,
		guard:   guard,
		wallets: wallets,
		faucet:  faucetSvc,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Run every 5 minutes - retry pending chain attestations
	s.cron.AddFunc("*/5 * * * *", func() {
		log.Println("[Cron] Running chain attestation retry...")
		s.reconcileChainRecords()
	})

	// Run every 10 minutes - expire stale wallet connect requests
	s.cron.AddFunc("*/10 * * * *", func() {
		log.Println("[Cron] Running wallet connect expiry...")
		s.expireStaleConnects()
	})

	// Run every day at midnight - drop lapsed faucet cooldowns
	s.cron.AddFunc("0 0 * * *", func() {
		log.Println("[Cron] Running faucet ledger compaction...")
		s.compactFaucetLedger()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

// reconcileChainRecords retries attestation for every event and roster
// entry still carrying a local-only reference. Records are only ever
// upgraded; a retry that fails again leaves local state exactly as it
// was, and no participant is re-enrolled by this pass.
func (s *Scheduler) reconcileChainRecords() {
	ctx := context.Background()

	if s.guard == nil {
		log.Println("[Cron] Chain adapter not available, skipping attestation retry")
		return
	}

	events, err := s.catalog.List(ctx)
	if err != nil {
		log.Printf("[Cron] Error listing events for chain retry: %v", err)
		return
	}

	retried, upgraded := 0, 0
	for _, event := range events {
		if !event.Chain.OnChain {
			eventID := event.ID
			sub := s.guard.CreateEvent(ctx, event, func(txRef string) {
				s.upgradeEvent(eventID, txRef)
			})
			retried++
			if err := s.catalog.SetChainRecord(ctx, eventID, sub.Chain()); err != nil {
				log.Printf("[Cron] Error updating chain record for event %s: %v", eventID, err)
			} else if sub.OnChain {
				upgraded++
				log.Printf("[Cron] Attested event %s on chain: %s", eventID, sub.TxRef)
			}
		}

		participants, err := s.roster.List(ctx, event.ID)
		if err != nil {
			log.Printf("[Cron] Error listing roster for event %s: %v", event.ID, err)
			continue
		}
		for _, p := range participants {
			if p.Chain.OnChain {
				continue
			}
			eventID, walletAddr := event.ID, p.Wallet
			sub := s.guard.JoinEvent(ctx, eventID, walletAddr, func(txRef string) {
				s.upgradeParticipant(eventID, walletAddr, txRef)
			})
			retried++
			if err := s.roster.SetChainRecord(ctx, eventID, walletAddr, sub.Chain()); err != nil {
				log.Printf("[Cron] Error updating chain record for participant %s on event %s: %v", models.ShortWallet(walletAddr), eventID, err)
			} else if sub.OnChain {
				upgraded++
				log.Printf("[Cron] Attested participant %s on event %s: %s", models.ShortWallet(walletAddr), eventID, sub.TxRef)
			}
		}
	}

	if retried > 0 {
		log.Printf("[Cron] Chain retry pass finished: %d submissions, %d now on chain", retried, upgraded)
	}
}

func (s *Scheduler) upgradeEvent(eventID, txRef string) {
	record := models.ChainRecord{TxRef: txRef, OnChain: true}
	if err := s.catalog.SetChainRecord(context.Background(), eventID, record); err != nil {
		log.Printf("[Cron] Error applying late confirmation for event %s: %v", eventID, err)
	}
}

func (s *Scheduler) upgradeParticipant(eventID, walletAddr, txRef string) {
	record := models.ChainRecord{TxRef: txRef, OnChain: true}
	if err := s.roster.SetChainRecord(context.Background(), eventID, walletAddr, record); err != nil {
		log.Printf("[Cron] Error applying late confirmation for participant %s on event %s: %v", models.ShortWallet(walletAddr), eventID, err)
	}
}

// expireStaleConnects marks wallet connect handshakes older than their
// token lifetime as expired.
func (s *Scheduler) expireStaleConnects() {
	if s.wallets == nil {
		log.Println("[Cron] Wallet service not available for connect expiry")
		return
	}

	expired, err := s.wallets.ExpireStale(context.Background())
	if err != nil {
		log.Printf("[Cron] Error expiring connect requests: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[Cron] Expired %d stale wallet connect requests", expired)
	}
}

// compactFaucetLedger drops cooldown entries that have already lapsed.
func (s *Scheduler) compactFaucetLedger() {
	if s.faucet == nil {
		log.Println("[Cron] Faucet not available for ledger compaction")
		return
	}

	removed, err := s.faucet.Compact(context.Background())
	if err != nil {
		log.Printf("[Cron] Error compacting faucet ledger: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[Cron] Dropped %d lapsed faucet cooldowns", removed)
	}
}

// ManualTrigger allows manual triggering of scheduled checks (for testing)
func (s *Scheduler) ManualTrigger(checkType string) {
	switch checkType {
	case "chain":
		s.reconcileChainRecords()
	case "connects":
		s.expireStaleConnects()
	case "faucet":
		s.compactFaucetLedger()
	case "all":
		s.reconcileChainRecords()
		s.expireStaleConnects()
		s.compactFaucetLedger()
	}
}
