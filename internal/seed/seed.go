// internal/seed/seed.go
package seed

import (
	"context"
	"log"

	"github.com/solmeet-dev/solmeet-backend/internal/chain"
	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/solana"
)

const demoEventID = "DEMO01"

// SeedData creates a demo event with a small roster and one pending
// join request, so a fresh development install has something to show.
func SeedData(catalog repository.EventCatalog, roster repository.ParticipantLedger, requests repository.JoinRequestLedger) {
	ctx := context.Background()

	// Check if data already exists
	if _, err := catalog.Get(ctx, demoEventID); err == nil {
		log.Println("[Seed] Demo event already exists, skipping...")
		return
	}

	log.Println("[Seed] 🌱 Creating demo event...")

	// ============================================
	// ORGANIZER AND EVENT
	// ============================================
	organizer := models.UserRef{ID: 1, Username: "solmeet_demo", FirstName: "Demo", LastName: "Organizer"}
	organizerWallet := solana.NewKeypair().Address()

	event := &models.Event{
		ID:              demoEventID,
		Name:            "SolMeet Launch Party",
		Venue:           "The Hacker House, Lisbon",
		Description:     "Meet the builders, grab swag, watch attestations land on devnet.",
		Date:            "2026-12-31 18:00",
		Capacity:        10,
		OrganizerID:     organizer.ID,
		OrganizerWallet: organizerWallet,
		Chain:           models.ChainRecord{TxRef: models.LocalRef(chain.ReasonDisabled)},
	}
	if err := catalog.Create(ctx, event); err != nil {
		log.Printf("[Seed] ⚠️ Demo event not created: %v", err)
		return
	}

	// The organizer is enrolled and subscribed like any real event.
	if _, _, err := roster.Add(ctx, demoEventID, &models.Participant{
		Wallet: organizerWallet,
		User:   organizer,
		Chain:  models.ChainRecord{TxRef: models.LocalRef(chain.ReasonDisabled)},
	}); err != nil {
		log.Printf("[Seed] ⚠️ Organizer not enrolled: %v", err)
	}
	if err := roster.Subscribe(ctx, demoEventID, organizer.ID); err != nil {
		log.Printf("[Seed] ⚠️ Organizer not subscribed: %v", err)
	}

	// ============================================
	// ONE APPROVED ATTENDEE, ONE PENDING REQUEST
	// ============================================
	attendee := models.UserRef{ID: 2, Username: "early_bird", FirstName: "Early", LastName: "Bird"}
	attendeeWallet := solana.NewKeypair().Address()
	if _, err := requests.Submit(ctx, demoEventID, attendeeWallet, attendee); err != nil {
		log.Printf("[Seed] ⚠️ Demo join request not submitted: %v", err)
	} else if _, err := requests.Approve(ctx, demoEventID, attendeeWallet, organizer.ID); err != nil {
		log.Printf("[Seed] ⚠️ Demo join request not approved: %v", err)
	} else {
		if _, _, err := roster.Add(ctx, demoEventID, &models.Participant{
			Wallet: attendeeWallet,
			User:   attendee,
			Chain:  models.ChainRecord{TxRef: models.LocalRef(chain.ReasonDisabled)},
		}); err != nil {
			log.Printf("[Seed] ⚠️ Attendee not enrolled: %v", err)
		}
		if err := roster.Subscribe(ctx, demoEventID, attendee.ID); err != nil {
			log.Printf("[Seed] ⚠️ Attendee not subscribed: %v", err)
		}
	}

	waiting := models.UserRef{ID: 3, Username: "on_hold", FirstName: "On", LastName: "Hold"}
	if _, err := requests.Submit(ctx, demoEventID, solana.NewKeypair().Address(), waiting); err != nil {
		log.Printf("[Seed] ⚠️ Pending demo request not submitted: %v", err)
	}

	log.Printf("[Seed] ✅ Demo event %s ready: 2 participants, 1 pending request", demoEventID)
}
