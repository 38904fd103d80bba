// Package api exposes the public HTTP surface: health, shared event
// pages and the wallet-connect callback the wallet app redirects to.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/solmeet-dev/solmeet-backend/internal/models"
	"github.com/solmeet-dev/solmeet-backend/internal/notification"
	"github.com/solmeet-dev/solmeet-backend/internal/qr"
	"github.com/solmeet-dev/solmeet-backend/internal/repository"
	"github.com/solmeet-dev/solmeet-backend/internal/service"
	"github.com/solmeet-dev/solmeet-backend/internal/wallet"
)

// HealthInfo is the static part of the /health payload.
type HealthInfo struct {
	Storage      string
	ChainEnabled bool
}

type Server struct {
	members service.MembershipService
	wallets *wallet.Service
	gateway notification.Gateway // optional; confirms connects in chat
	info    HealthInfo
	started time.Time
}

func NewServer(members service.MembershipService, wallets *wallet.Service, gateway notification.Gateway, info HealthInfo) *Server {
	return &Server{
		members: members,
		wallets: wallets,
		gateway: gateway,
		info:    info,
		started: time.Now(),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1")
	{
		v1.GET("/events/:id", s.handleEvent)
		v1.POST("/wallet/connect/callback", s.handleConnectCallback)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	chainStatus := "disabled"
	if s.info.ChainEnabled {
		chainStatus = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"storage":   s.info.Storage,
		"chain":     chainStatus,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// ============================================
// Event share page
// ============================================

type eventResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Venue        string `json:"venue"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Capacity     int    `json:"capacity,omitempty"`
	Participants int    `json:"participants"`
	Organizer    string `json:"organizer_wallet"`
	OnChain      bool   `json:"on_chain"`
	TxRef        string `json:"tx_ref,omitempty"`
	JoinLink     string `json:"join_link"`
}

func (s *Server) handleEvent(c *gin.Context) {
	event, err := s.members.Event(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}

	count := 0
	if participants, err := s.members.Participants(c.Request.Context(), event.ID); err == nil {
		count = len(participants)
	} else {
		log.Printf("[API] ⚠️ Participant count for event %s failed: %v", event.ID, err)
	}

	resp := eventResponse{
		ID:           event.ID,
		Name:         event.Name,
		Venue:        event.Venue,
		Date:         event.Date,
		Description:  event.Description,
		Capacity:     event.Capacity,
		Participants: count,
		Organizer:    models.ShortWallet(event.OrganizerWallet),
		OnChain:      event.Chain.OnChain,
		JoinLink:     qr.JoinLink(event.ID),
	}
	if event.Chain.OnChain {
		resp.TxRef = event.Chain.TxRef
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================
// Wallet connect callback
// ============================================

type connectCallbackReq struct {
	Token     string `json:"token" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature"`
}

func (s *Server) handleConnectCallback(c *gin.Context) {
	var req connectCallbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := s.wallets.CompleteConnect(c.Request.Context(), req.Token, req.Address, req.Signature)
	switch {
	case errors.Is(err, wallet.ErrConnectExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Connect request is invalid or expired"})
		return
	case errors.Is(err, wallet.ErrBadAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a valid Solana address"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete connection"})
		return
	}

	if s.gateway != nil {
		text := fmt.Sprintf("✅ Wallet `%s` connected successfully!\n\nYou can now create and join events.", models.ShortWallet(req.Address))
		if err := s.gateway.SendMessage(c.Request.Context(), userID, text); err != nil {
			log.Printf("[API] ⚠️ Connect confirmation to user %d failed: %v", userID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "connected", "user_id": userID})
}
