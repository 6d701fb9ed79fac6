package parties

import (
	"fmt"
	"net/http"

	apperrors "github.com/bananalabs-oss/troupe/internal/errors"
	"github.com/bananalabs-oss/troupe/internal/models"
	"github.com/bananalabs-oss/troupe/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc      *Service
	sessions *session.Directory
	lookup   map[uuid.UUID]bool
	log      *zap.Logger
}

// NewHandler builds the HTTP front end. lookupAccounts hold the party-lookup
// capability on player endpoints.
func NewHandler(svc *Service, sessions *session.Directory, lookupAccounts []uuid.UUID, log *zap.Logger) *Handler {
	lookup := make(map[uuid.UUID]bool, len(lookupAccounts))
	for _, id := range lookupAccounts {
		lookup[id] = true
	}
	return &Handler{svc: svc, sessions: sessions, lookup: lookup, log: log}
}

// PlayerRoutes registers the player-facing endpoints. The group must run
// auth middleware that sets "account_id".
func (h *Handler) PlayerRoutes(g gin.IRoutes) {
	g.POST("", h.CreateParty)
	g.GET("/mine", h.GetMyParty)
	g.POST("/invite", h.InviteMember)
	g.POST("/kick", h.KickMember)
	g.POST("/leave", h.LeaveParty)
	g.PUT("/name", h.RenameParty)
	g.GET("/find/:name", h.FindPlayer)
}

// InternalRoutes registers the endpoints used by the host server.
func (h *Handler) InternalRoutes(parties, sessions gin.IRoutes) {
	parties.GET("/player/:playerId", h.GetPlayerParty)
	sessions.POST("/join", h.SessionJoin)
	sessions.POST("/quit", h.SessionQuit)
}

func (h *Handler) fail(c *gin.Context, err error) {
	e := apperrors.As(err)
	c.JSON(e.Kind.HTTPStatus(), models.ErrorResponse{
		Error:   string(e.Kind),
		Message: e.UserMessage(),
	})
}

func (h *Handler) invalid(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   string(apperrors.KindInvalidRequest),
		Message: message,
	})
}

func (h *Handler) accountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("account_id"))
	if err != nil {
		h.invalid(c, "Missing or malformed account id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) displayName(id uuid.UUID, fallback string) string {
	if name, ok := h.sessions.Name(id); ok {
		return name
	}
	return fallback
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type playerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
}

// --- Player-facing endpoints ---

func (h *Handler) CreateParty(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	partyID, err := h.svc.Create(ctx, actor)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"party_id": partyID,
		"message":  "Party created! You are the party owner.",
	})
}

func (h *Handler) GetMyParty(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	party, err := h.svc.Mine(ctx, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

func (h *Handler) InviteMember(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "name is required")
		return
	}

	target, err := h.svc.ResolveTarget(req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.Invite(ctx, actor, target); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Invited %s to the party.", h.displayName(target, req.Name)),
	})
}

func (h *Handler) KickMember(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "name is required")
		return
	}

	target, err := h.svc.ResolveTarget(req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.Kick(ctx, actor, target); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Kicked %s from the party.", h.displayName(target, req.Name)),
	})
}

func (h *Handler) LeaveParty(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	res, err := h.svc.Leave(ctx, actor)
	if err != nil {
		h.fail(c, err)
		return
	}

	message := "You have left the party."
	if res.Disbanded {
		message = "You have disbanded the party."
	}
	c.JSON(http.StatusOK, gin.H{
		"party_id":  res.PartyID,
		"disbanded": res.Disbanded,
		"message":   message,
	})
}

func (h *Handler) RenameParty(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "name is required")
		return
	}

	if err := h.svc.Rename(ctx, actor, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Party name updated."})
}

func (h *Handler) FindPlayer(c *gin.Context) {
	ctx := c.Request.Context()
	actor, ok := h.accountID(c)
	if !ok {
		return
	}

	caller := Caller{ID: actor}
	if h.lookup[actor] {
		caller.Capabilities = []Capability{CapabilityPartyLookup}
	}
	// Check the capability before resolving so callers without it learn
	// nothing about who is online.
	if !caller.Can(CapabilityPartyLookup) {
		h.fail(c, apperrors.ErrPermissionDenied)
		return
	}

	name := c.Param("name")
	target, err := h.svc.ResolveTarget(name)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.svc.FindRoleOf(ctx, caller, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse(h.displayName(target, name), target, res))
}

// --- Internal endpoints (host server) ---

func (h *Handler) GetPlayerParty(c *gin.Context) {
	ctx := c.Request.Context()
	playerID, err := uuid.Parse(c.Param("playerId"))
	if err != nil {
		h.invalid(c, "Invalid player ID")
		return
	}

	caller := Caller{Capabilities: []Capability{CapabilityPartyLookup}}
	res, err := h.svc.FindRoleOf(ctx, caller, playerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse(h.displayName(playerID, ""), playerID, res))
}

func (h *Handler) SessionJoin(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == uuid.Nil || req.Name == "" {
		h.invalid(c, "player_id and name are required")
		return
	}

	h.sessions.Join(req.PlayerID, req.Name)
	c.Status(http.StatusNoContent)
}

func (h *Handler) SessionQuit(c *gin.Context) {
	ctx := c.Request.Context()

	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == uuid.Nil {
		h.invalid(c, "player_id is required")
		return
	}

	res, left, err := h.svc.HandleQuit(ctx, req.PlayerID)
	h.sessions.Quit(req.PlayerID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"left":      left,
		"party_id":  res.PartyID,
		"disbanded": res.Disbanded,
	})
}

func lookupResponse(name string, id uuid.UUID, res Lookup) gin.H {
	body := gin.H{
		"player_id": id,
		"role":      res.Role.String(),
	}
	if name != "" {
		body["player"] = name
	}
	if res.Role != models.RoleNone {
		body["party_id"] = res.PartyID
	}
	return body
}
