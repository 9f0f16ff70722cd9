package models

import "math"

// Status is the lifecycle phase of a circle.
type Status string

const (
	// StatusOpen accepts joins and leaves; no money moves yet.
	StatusOpen Status = "open"
	// StatusActive runs contribution cycles; membership is frozen.
	StatusActive Status = "active"
	// StatusCompleted means every member has been paid once. Terminal.
	StatusCompleted Status = "completed"
	// StatusCancelled is the admin escape hatch. Terminal.
	StatusCancelled Status = "cancelled"
)

const (
	// MaxMembers caps rotation size so a circle's lifetime stays bounded.
	MaxMembers = 50
	// MinMembers is the smallest rotation that still rotates.
	MinMembers = 2
	// MaxContribution keeps a full pot (contribution times MaxMembers)
	// within int64.
	MaxContribution = math.MaxInt64 / MaxMembers
)

// Member is one slot in a circle's rotation. Slice position in
// Circle.Members is the payout order.
type Member struct {
	Address  string
	JoinedAt int64
}

// Circle is one ROSCA instance and the sole root of truth for its state.
// All lifecycle rules live on its methods; callers load a circle, apply one
// transition, and persist the whole record atomically.
type Circle struct {
	// ID is the unique identifier for the circle (UUID format).
	ID string

	// Admin is the address that created the circle. Only the admin may
	// start or cancel it.
	Admin string

	// Contribution is the fixed amount (minor units) each member owes per
	// cycle. Immutable after creation.
	Contribution int64

	// Asset identifies the token used for contributions and payouts.
	Asset string

	// Status is the current lifecycle phase.
	Status Status

	// Members in join order. Join order is payout order; frozen once the
	// circle activates.
	Members []Member

	// CurrentCycle counts rotation rounds, starting at 1 on activation.
	CurrentCycle int

	// RecipientIndex points at the member receiving the next payout.
	// Advances only on successful payout.
	RecipientIndex int

	// Contributions records the current cycle only: address -> amount
	// held in escrow. Cleared when the cycle advances.
	Contributions map[string]int64

	// TotalDistributed is the lifetime sum of payouts released.
	TotalDistributed int64

	// CreatedAt and StartedAt are Unix timestamps.
	CreatedAt int64
	StartedAt int64
}

// EscrowAddress derives the ledger address holding a circle's pooled funds.
// Giving each circle its own escrow address keeps circle balances isolated:
// one circle's payout or refund can never touch another circle's funds.
func EscrowAddress(circleID string) string {
	return "escrow:" + circleID
}

// NewCircle builds an open circle owned by admin.
func NewCircle(id, admin string, contribution int64, asset string, now int64) *Circle {
	return &Circle{
		ID:            id,
		Admin:         admin,
		Contribution:  contribution,
		Asset:         asset,
		Status:        StatusOpen,
		Contributions: make(map[string]int64),
		CreatedAt:     now,
	}
}

// IsMember reports whether addr holds a slot in the rotation.
func (c *Circle) IsMember(addr string) bool {
	return c.memberIndex(addr) >= 0
}

func (c *Circle) memberIndex(addr string) int {
	for i, m := range c.Members {
		if m.Address == addr {
			return i
		}
	}
	return -1
}

// Join appends addr to the rotation. Allowed only while the circle is open,
// the address is not already a member, and the rotation is not full.
func (c *Circle) Join(addr string, now int64) error {
	if c.Status != StatusOpen {
		return ErrCircleNotOpen
	}
	if c.IsMember(addr) {
		return ErrAlreadyJoined
	}
	if len(c.Members) >= MaxMembers {
		return ErrMaxMembersReached
	}
	c.Members = append(c.Members, Member{Address: addr, JoinedAt: now})
	return nil
}

// Leave removes addr from the rotation. Membership is fixed once the circle
// activates, so leaving is allowed only while open.
func (c *Circle) Leave(addr string) error {
	if c.Status != StatusOpen {
		return ErrCircleNotOpen
	}
	i := c.memberIndex(addr)
	if i < 0 {
		return ErrUnauthorized
	}
	c.Members = append(c.Members[:i], c.Members[i+1:]...)
	return nil
}

// Start activates the circle, freezing membership and opening cycle 1.
// Only the admin may start, and at least two members must have joined.
func (c *Circle) Start(caller string, now int64) error {
	if caller != c.Admin {
		return ErrUnauthorized
	}
	if c.Status != StatusOpen {
		return ErrCircleNotOpen
	}
	if len(c.Members) < MinMembers {
		return ErrTooFewMembers
	}
	c.Status = StatusActive
	c.CurrentCycle = 1
	c.RecipientIndex = 0
	c.Contributions = make(map[string]int64)
	c.StartedAt = now
	return nil
}

// RecordContribution marks addr as having paid the current cycle. The amount
// must equal the fixed contribution exactly; partial or over-payment is
// rejected rather than truncated or refunded.
func (c *Circle) RecordContribution(addr string, amount int64) error {
	if c.Status != StatusActive {
		return ErrCircleNotActive
	}
	if !c.IsMember(addr) {
		return ErrUnauthorized
	}
	if _, done := c.Contributions[addr]; done {
		return ErrAlreadyContributed
	}
	if amount != c.Contribution {
		return ErrInvalidAmount
	}
	c.Contributions[addr] = amount
	return nil
}

// CycleComplete reports whether every member has contributed this cycle.
func (c *Circle) CycleComplete() bool {
	if c.Status != StatusActive {
		return false
	}
	return len(c.Contributions) == len(c.Members)
}

// Recipient returns the address due the next payout.
func (c *Circle) Recipient() string {
	return c.Members[c.RecipientIndex].Address
}

// Pot is the full payout for one cycle.
func (c *Circle) Pot() int64 {
	return c.Contribution * int64(len(c.Members))
}

// Payout validates completeness and advances the rotation, returning who is
// owed how much. The caller is responsible for releasing the funds in the
// same transaction that persists the advanced state: either both happen or
// neither does.
func (c *Circle) Payout() (recipient string, amount int64, err error) {
	if c.Status != StatusActive {
		return "", 0, ErrCircleNotActive
	}
	if !c.CycleComplete() {
		return "", 0, ErrCycleNotComplete
	}
	recipient = c.Recipient()
	amount = c.Pot()
	c.TotalDistributed += amount
	c.Contributions = make(map[string]int64)
	c.RecipientIndex++
	if c.RecipientIndex >= len(c.Members) {
		c.Status = StatusCompleted
	} else {
		c.CurrentCycle++
	}
	return recipient, amount, nil
}

// Cancel moves an open or active circle to the cancelled terminal state.
// Admin only. Refunding any funds held for the current cycle is the caller's
// responsibility, in the same transaction.
func (c *Circle) Cancel(caller string) error {
	if caller != c.Admin {
		return ErrUnauthorized
	}
	if c.Status != StatusOpen && c.Status != StatusActive {
		return ErrCircleNotActive
	}
	c.Status = StatusCancelled
	return nil
}

// ContributedThisCycle reports whether addr has paid the current cycle.
func (c *Circle) ContributedThisCycle(addr string) bool {
	_, ok := c.Contributions[addr]
	return ok
}

// HasReceived reports whether addr has already received its payout.
func (c *Circle) HasReceived(addr string) bool {
	i := c.memberIndex(addr)
	if i < 0 {
		return false
	}
	return c.Status != StatusOpen && i < c.RecipientIndex
}
