package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/store"
)

// requestFixture wires a request ledger against a real catalog and
// roster, with one event organized by user 1001.
type requestFixture struct {
	requests     JoinRequestLedger
	participants ParticipantLedger
	catalog      EventCatalog
}

const (
	organizerID  = int64(1001)
	requesterID  = int64(2002)
	strangerID   = int64(3003)
	testEventID  = "REQ001"
	testerWallet = "WalletReq111"
)

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	dir := t.TempDir()
	eventStore, err := store.NewFileStore(filepath.Join(dir, "events"))
	if err != nil {
		t.Fatalf("NewFileStore events: %v", err)
	}
	rosterStore, err := store.NewFileStore(filepath.Join(dir, "rosters"))
	if err != nil {
		t.Fatalf("NewFileStore rosters: %v", err)
	}
	requestStore, err := store.NewFileStore(filepath.Join(dir, "requests"))
	if err != nil {
		t.Fatalf("NewFileStore requests: %v", err)
	}

	catalog := NewEventCatalog(eventStore)
	participants := NewParticipantLedger(rosterStore)
	requests := NewJoinRequestLedger(requestStore, catalog, participants)

	event := sampleEvent(testEventID)
	event.OrganizerID = organizerID
	if err := catalog.Create(context.Background(), event); err != nil {
		t.Fatalf("Create event: %v", err)
	}
	return &requestFixture{requests: requests, participants: participants, catalog: catalog}
}

func requester() models.UserRef {
	return models.UserRef{ID: requesterID, Username: "alice"}
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	request, err := f.requests.Submit(ctx, testEventID, testerWallet, requester())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if request.Status != models.RequestStatusPending {
		t.Errorf("Status = %s, want pending", request.Status)
	}
	if request.RequestedAt.IsZero() {
		t.Error("RequestedAt not set")
	}

	status, err := f.requests.StatusOf(ctx, testEventID, testerWallet)
	if err != nil {
		t.Fatalf("StatusOf: %v", err)
	}
	if status != models.RequestStatusPending {
		t.Errorf("StatusOf = %s, want pending", status)
	}
}

func TestSubmitTwiceRefused(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("second Submit = %v, want ErrAlreadyPending", err)
	}

	pending, err := f.requests.ListPending(ctx, testEventID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("ListPending returned %d, want 1", len(pending))
	}
}

func TestSubmitCaseInsensitiveEventCode(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, "req001", testerWallet, requester()); err != nil {
		t.Fatalf("Submit lowercase: %v", err)
	}
	if _, err := f.requests.Submit(ctx, "Req001", testerWallet, requester()); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("Submit mixed case = %v, want ErrAlreadyPending", err)
	}
}

func TestApproveByOrganizer(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	request, err := f.requests.Approve(ctx, testEventID, testerWallet, organizerID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if request.Status != models.RequestStatusApproved {
		t.Errorf("Status = %s, want approved", request.Status)
	}
	if request.DecidedBy != organizerID || request.DecidedAt == nil {
		t.Errorf("decision audit fields missing: %+v", request)
	}

	// request already settled, submitting again is refused
	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("Submit after approve = %v, want ErrAlreadyApproved", err)
	}
}

func TestDeclineIsTerminal(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.requests.Decline(ctx, testEventID, testerWallet, organizerID); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	// declined wallets stay declined: no resubmission, no second decision
	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); !errors.Is(err, ErrAlreadyDeclined) {
		t.Fatalf("Submit after decline = %v, want ErrAlreadyDeclined", err)
	}
	if _, err := f.requests.Approve(ctx, testEventID, testerWallet, organizerID); !errors.Is(err, ErrAlreadyDeclined) {
		t.Fatalf("Approve after decline = %v, want ErrAlreadyDeclined", err)
	}

	status, _ := f.requests.StatusOf(ctx, testEventID, testerWallet)
	if status != models.RequestStatusDeclined {
		t.Errorf("StatusOf = %s, want declined", status)
	}
}

func TestApproveTwiceRefused(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.requests.Approve(ctx, testEventID, testerWallet, organizerID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.requests.Approve(ctx, testEventID, testerWallet, organizerID); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("second Approve = %v, want ErrAlreadyApproved", err)
	}
	if _, err := f.requests.Decline(ctx, testEventID, testerWallet, organizerID); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("Decline after approve = %v, want ErrAlreadyApproved", err)
	}
}

func TestDecideByNonOrganizer(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.requests.Submit(ctx, testEventID, testerWallet, requester()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.requests.Approve(ctx, testEventID, testerWallet, strangerID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Approve by stranger = %v, want ErrNotAuthorized", err)
	}
	if _, err := f.requests.Decline(ctx, testEventID, testerWallet, requesterID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Decline by requester = %v, want ErrNotAuthorized", err)
	}

	// state untouched
	status, err := f.requests.StatusOf(ctx, testEventID, testerWallet)
	if err != nil {
		t.Fatalf("StatusOf: %v", err)
	}
	if status != models.RequestStatusPending {
		t.Errorf("StatusOf after refused decisions = %s, want pending", status)
	}
}

func TestDecideWithoutRequest(t *testing.T) {
	f := newRequestFixture(t)

	if _, err := f.requests.Approve(context.Background(), testEventID, "WalletGhost", organizerID); !errors.Is(err, ErrNoPendingRequest) {
		t.Fatalf("Approve without request = %v, want ErrNoPendingRequest", err)
	}
}

func TestDecideUnknownEvent(t *testing.T) {
	f := newRequestFixture(t)

	if _, err := f.requests.Approve(context.Background(), "NOPE99", testerWallet, organizerID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("Approve on unknown event = %v, want ErrEventNotFound", err)
	}
}

func TestParticipantWithoutRequestReadsApproved(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	// enrolled directly (e.g. the organizer at creation time)
	if _, _, err := f.participants.Add(ctx, testEventID, participant("WalletDirect", 50)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	status, err := f.requests.StatusOf(ctx, testEventID, "WalletDirect")
	if err != nil {
		t.Fatalf("StatusOf: %v", err)
	}
	if status != models.RequestStatusApproved {
		t.Errorf("StatusOf = %s, want approved", status)
	}
	if _, err := f.requests.Submit(ctx, testEventID, "WalletDirect", requester()); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("Submit for enrolled wallet = %v, want ErrAlreadyApproved", err)
	}
}

func TestListPendingKeepsSubmissionOrder(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	wallets := []string{"WalletOne", "WalletTwo", "WalletThree"}
	for i, w := range wallets {
		user := models.UserRef{ID: int64(100 + i)}
		if _, err := f.requests.Submit(ctx, testEventID, w, user); err != nil {
			t.Fatalf("Submit %s: %v", w, err)
		}
	}
	if _, err := f.requests.Decline(ctx, testEventID, "WalletTwo", organizerID); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	pending, err := f.requests.ListPending(ctx, testEventID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPending returned %d, want 2", len(pending))
	}
	if pending[0].Wallet != "WalletOne" || pending[1].Wallet != "WalletThree" {
		t.Errorf("ListPending order = [%s %s], want [WalletOne WalletThree]",
			pending[0].Wallet, pending[1].Wallet)
	}
}

func TestStatusOfUnknownWallet(t *testing.T) {
	f := newRequestFixture(t)

	status, err := f.requests.StatusOf(context.Background(), testEventID, "WalletNobody")
	if err != nil {
		t.Fatalf("StatusOf: %v", err)
	}
	if status != models.RequestStatusNone {
		t.Errorf("StatusOf = %s, want none", status)
	}
}
