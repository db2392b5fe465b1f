package models

import "time"

// PolicyDecision is the outcome of evaluating a tool call against an
// AccessPolicy, or the tool's declared default when none match.
type PolicyDecision string

const (
	PolicyDecisionAllow           PolicyDecision = "allow"
	PolicyDecisionRequireApproval PolicyDecision = "require_approval"
	PolicyDecisionDeny            PolicyDecision = "deny"
)

// ConditionOperator is the comparison an ArgumentCondition applies.
type ConditionOperator string

const (
	ConditionOperatorEquals     ConditionOperator = "equals"
	ConditionOperatorNotEquals  ConditionOperator = "not_equals"
	ConditionOperatorContains   ConditionOperator = "contains"
	ConditionOperatorStartsWith ConditionOperator = "starts_with"
)

// ArgumentCondition narrows an AccessPolicy to tool calls whose top-level
// input key compares true against Value under Operator.
type ArgumentCondition struct {
	Key      string
	Operator ConditionOperator
	Value    any
}

// PolicyScopeType further classifies the tenant level a policy is defined
// at; carried through but not interpreted by the PolicyEngine itself.
type PolicyScopeType string

const (
	PolicyScopeAccount      PolicyScopeType = "account"
	PolicyScopeWorkspace    PolicyScopeType = "workspace"
	PolicyScopeOrganization PolicyScopeType = "organization"
)

// AccessPolicy is one priority-ordered rule overriding a tool's default
// approval mode within a workspace/actor/client scope.
type AccessPolicy struct {
	ID              string
	WorkspaceID     string
	ActorID         string // optional, empty if unset
	ClientID        string // optional, empty if unset
	ToolPathPattern string
	Decision        PolicyDecision
	Priority        int
	ArgumentConditions []ArgumentCondition

	ScopeType      PolicyScopeType // optional
	TargetAccountID string         // optional

	CreatedAt time.Time
}

// UpsertPolicyParams carries the fields needed to create or replace an
// AccessPolicy. A zero-value ID means "create".
type UpsertPolicyParams struct {
	ID                 string
	WorkspaceID        string
	ActorID            string
	ClientID           string
	ToolPathPattern    string
	Decision           PolicyDecision
	Priority           int
	ArgumentConditions []ArgumentCondition
	ScopeType          PolicyScopeType
	TargetAccountID    string
}
