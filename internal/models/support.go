package models

import (
	"time"

	"github.com/google/uuid"
)

// Reimbursement status values.
const (
	ReimbursementPending  = "pending"
	ReimbursementApproved = "approved"
	ReimbursementRejected = "rejected"
	ReimbursementPaid     = "paid"
)

// Reimbursement is an expense claim filed by a team member.
type Reimbursement struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	MemberID       uuid.UUID `json:"member_id"`
	Description    string    `json:"description"`
	AmountCents    int       `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	ReceiptKey     string    `json:"-"` // S3 object key for the receipt
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ticket status and priority values.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"

	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

// Ticket is a support request. Creating one also creates its first message
// in the same database transaction.
type Ticket struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TicketMessage is one message in a ticket thread. Tenant scope is derived
// from the parent ticket.
type TicketMessage struct {
	ID        uuid.UUID `json:"id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
