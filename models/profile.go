package models

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser           Role = "user"
	RoleSystemOperator Role = "system_operator"
)

// AccountStatus is the tier of a profile. Transitions only move forward;
// rejected and banned are terminal.
type AccountStatus string

const (
	AccountUnverified      AccountStatus = "unverified"
	AccountPaymentVerified AccountStatus = "payment_verified"
	AccountQualified       AccountStatus = "qualified"
	AccountRejected        AccountStatus = "rejected"
	AccountBanned          AccountStatus = "banned"
)

var AccountStatuses = []AccountStatus{
	AccountUnverified,
	AccountPaymentVerified,
	AccountQualified,
	AccountRejected,
	AccountBanned,
}

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountUnverified, AccountPaymentVerified, AccountQualified, AccountRejected, AccountBanned:
		return true
	}
	return false
}

func (s AccountStatus) IsTerminal() bool {
	return s == AccountRejected || s == AccountBanned
}

// CanTransitionTo reports whether s may move to next.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if !s.Valid() || !next.Valid() || s == next || s.IsTerminal() {
		return false
	}
	if next.IsTerminal() {
		return true
	}
	switch s {
	case AccountUnverified:
		return next == AccountPaymentVerified
	case AccountPaymentVerified:
		return next == AccountQualified
	}
	return false
}

// CanOperatorSet reports whether an operator may move s to next by hand.
// Forward steps happen only through payment confirmation and assessment approval.
func (s AccountStatus) CanOperatorSet(next AccountStatus) bool {
	return next.IsTerminal() && s.CanTransitionTo(next)
}

func ParseAccountStatus(raw string) (AccountStatus, error) {
	s := AccountStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown account status %q", raw)
	}
	return s, nil
}

// Profile is one tester or operator account. ID is the auth provider's user id.
type Profile struct {
	ID            string        `gorm:"primaryKey;type:uuid" json:"id"`
	Email         string        `gorm:"index" json:"email"`
	DisplayName   string        `json:"display_name"`
	Role          Role          `gorm:"type:varchar(32);not null;default:'user'" json:"role"`
	AccountStatus AccountStatus `gorm:"type:varchar(32);not null;default:'unverified';index" json:"account_status"`
	TestScore     *int          `json:"test_score,omitempty"`
	TotalEarned   float64       `gorm:"not null;default:0" json:"total_earned"`
	PaypalEmail   string        `json:"paypal_email,omitempty"`
	Timestamps
}

func (p *Profile) IsOperator() bool {
	return p.Role == RoleSystemOperator
}
