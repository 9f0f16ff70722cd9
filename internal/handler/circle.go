package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tandalabs/tanda/internal/middleware"
	"github.com/tandalabs/tanda/internal/models"
	"github.com/tandalabs/tanda/internal/service"
)

// CircleHandler serves the circle lifecycle endpoints.
type CircleHandler struct {
	svc *service.CircleService
}

// NewCircleHandler creates a new CircleHandler.
func NewCircleHandler(svc *service.CircleService) *CircleHandler {
	return &CircleHandler{svc: svc}
}

// Routes registers the circle endpoints on r. All of them require an
// authenticated caller.
func (h *CircleHandler) Routes(r chi.Router) {
	r.Post("/circles", h.Create)
	r.Get("/circles", h.List)
	r.Get("/circles/{circleID}", h.Get)
	r.Post("/circles/{circleID}/join", h.Join)
	r.Post("/circles/{circleID}/leave", h.Leave)
	r.Post("/circles/{circleID}/start", h.Start)
	r.Post("/circles/{circleID}/approve", h.Approve)
	r.Post("/circles/{circleID}/deposit", h.Deposit)
	r.Post("/circles/{circleID}/payout", h.Payout)
	r.Post("/circles/{circleID}/cancel", h.Cancel)
	r.Post("/faucet", h.Faucet)
	r.Get("/balance", h.Balance)
}

// memberView is one rotation slot with its derived per-cycle flags.
type memberView struct {
	Address     string `json:"address"`
	JoinedAt    int64  `json:"joined_at"`
	Contributed bool   `json:"contributed"`
	Received    bool   `json:"received"`
}

// circleView is the read-only wire representation of a circle.
type circleView struct {
	ID               string       `json:"id"`
	Admin            string       `json:"admin"`
	Contribution     int64        `json:"contribution"`
	Asset            string       `json:"asset"`
	Status           string       `json:"status"`
	Members          []memberView `json:"members"`
	CurrentCycle     int          `json:"current_cycle"`
	RecipientIndex   int          `json:"recipient_index"`
	Pot              int64        `json:"pot"`
	CycleComplete    bool         `json:"cycle_complete"`
	TotalDistributed int64        `json:"total_distributed"`
	CreatedAt        int64        `json:"created_at"`
	StartedAt        int64        `json:"started_at,omitempty"`
}

func toView(c *models.Circle) circleView {
	members := make([]memberView, len(c.Members))
	for i, m := range c.Members {
		members[i] = memberView{
			Address:     m.Address,
			JoinedAt:    m.JoinedAt,
			Contributed: c.ContributedThisCycle(m.Address),
			Received:    c.HasReceived(m.Address),
		}
	}
	return circleView{
		ID:               c.ID,
		Admin:            c.Admin,
		Contribution:     c.Contribution,
		Asset:            c.Asset,
		Status:           string(c.Status),
		Members:          members,
		CurrentCycle:     c.CurrentCycle,
		RecipientIndex:   c.RecipientIndex,
		Pot:              c.Pot(),
		CycleComplete:    c.CycleComplete(),
		TotalDistributed: c.TotalDistributed,
		CreatedAt:        c.CreatedAt,
		StartedAt:        c.StartedAt,
	}
}

// Create handles POST /circles.
func (h *CircleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contribution int64  `json:"contribution"`
		Asset        string `json:"asset"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.CreateCircle(r.Context(), middleware.GetCaller(r.Context()), req.Contribution, req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toView(c))
}

// List handles GET /circles.
func (h *CircleHandler) List(w http.ResponseWriter, r *http.Request) {
	circles, err := h.svc.ListCircles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]circleView, len(circles))
	for i, c := range circles {
		views[i] = toView(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"circles": views})
}

// Get handles GET /circles/{circleID}.
func (h *CircleHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCircle(r.Context(), chi.URLParam(r, "circleID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(c))
}

// Join handles POST /circles/{circleID}/join.
func (h *CircleHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller, circleID string) (*models.Circle, error) {
		return h.svc.JoinCircle(r.Context(), caller, circleID)
	})
}

// Leave handles POST /circles/{circleID}/leave.
func (h *CircleHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller, circleID string) (*models.Circle, error) {
		return h.svc.LeaveCircle(r.Context(), caller, circleID)
	})
}

// Start handles POST /circles/{circleID}/start.
func (h *CircleHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller, circleID string) (*models.Circle, error) {
		return h.svc.StartCircle(r.Context(), caller, circleID)
	})
}

// Payout handles POST /circles/{circleID}/payout.
func (h *CircleHandler) Payout(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller, circleID string) (*models.Circle, error) {
		return h.svc.TriggerPayout(r.Context(), caller, circleID)
	})
}

// Cancel handles POST /circles/{circleID}/cancel.
func (h *CircleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(caller, circleID string) (*models.Circle, error) {
		return h.svc.CancelCircle(r.Context(), caller, circleID)
	})
}

// Deposit handles POST /circles/{circleID}/deposit.
func (h *CircleHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.Deposit(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "circleID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(c))
}

// Approve handles POST /circles/{circleID}/approve.
func (h *CircleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.Approve(r.Context(), middleware.GetCaller(r.Context()), chi.URLParam(r, "circleID"), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"approved": req.Amount})
}

// Faucet handles POST /faucet.
func (h *CircleHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Asset string `json:"asset"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	minted, err := h.svc.Faucet(r.Context(), middleware.GetCaller(r.Context()), req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset": req.Asset, "minted": minted})
}

// Balance handles GET /balance?asset=....
func (h *CircleHandler) Balance(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	balance, err := h.svc.Balance(r.Context(), middleware.GetCaller(r.Context()), asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset": asset, "balance": balance})
}

func (h *CircleHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(caller, circleID string) (*models.Circle, error)) {
	c, err := fn(middleware.GetCaller(r.Context()), chi.URLParam(r, "circleID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(c))
}
