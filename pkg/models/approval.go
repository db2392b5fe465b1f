package models

import "time"

// ApprovalStatus is the lifecycle status of an Approval.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
)

// Approval is a human-in-the-loop gate attached to a single tool call.
type Approval struct {
	ID       string
	TaskID   string
	ToolPath string
	Input    map[string]any
	Status   ApprovalStatus
	ReviewerID string // optional
	Reason     string // optional

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// CreateApprovalParams carries the fields needed to create a new Approval.
type CreateApprovalParams struct {
	ID       string
	TaskID   string
	ToolPath string
	Input    map[string]any
}

// ApprovalDecision is the outcome a reviewer (or a timeout) assigns to a
// pending approval.
type ApprovalDecision string

const (
	ApprovalDecisionApproved ApprovalDecision = "approved"
	ApprovalDecisionDenied   ApprovalDecision = "denied"
	ApprovalDecisionTimedOut ApprovalDecision = "timed_out"
)
