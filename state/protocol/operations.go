package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// OpType is the discriminant the dispatcher routes on.
type OpType uint16

const (
	CommitteeMemberCreateOpType                   OpType = 29
	CommitteeMemberUpdateOpType                   OpType = 30
	CommitteeMemberUpdateGlobalParametersOpType   OpType = 31
	CommitteeMemberIssueConstructionCapitalOpType OpType = 44
	CommitteeMemberGrantInstantPaybackOpType      OpType = 45
)

func (t OpType) String() string {
	switch t {
	case CommitteeMemberCreateOpType:
		return "committee_member_create"
	case CommitteeMemberUpdateOpType:
		return "committee_member_update"
	case CommitteeMemberUpdateGlobalParametersOpType:
		return "committee_member_update_global_parameters"
	case CommitteeMemberIssueConstructionCapitalOpType:
		return "committee_member_issue_construction_capital"
	case CommitteeMemberGrantInstantPaybackOpType:
		return "committee_member_grant_instant_payback"
	}
	return fmt.Sprintf("operation(%d)", uint16(t))
}

const MaxURLLength = 127

var ErrInvalidOperation = errors.New("invalid operation")

// Operation is a user-submitted state change request. Validate performs the
// checks that need no ledger state.
type Operation interface {
	Type() OpType
	FeePayer() ObjectID
	GetFee() Asset
	Validate() error
}

func validateFee(op Operation) error {
	if op.GetFee().Amount < 0 {
		return fmt.Errorf("%w: %s fee %d is negative", ErrInvalidOperation, op.Type(), op.GetFee().Amount)
	}
	return nil
}

func validateURL(op Operation, url string) error {
	if utf8.RuneCountInString(url) > MaxURLLength {
		return fmt.Errorf("%w: %s url longer than %d characters", ErrInvalidOperation, op.Type(), MaxURLLength)
	}
	return nil
}

// CommitteeMemberCreateOperation registers a lifetime member as a committee
// member candidate.
type CommitteeMemberCreateOperation struct {
	Fee                    Asset    `json:"fee"`
	CommitteeMemberAccount ObjectID `json:"committee_member_account"`
	URL                    string   `json:"url"`
}

func (o CommitteeMemberCreateOperation) Type() OpType {
	return CommitteeMemberCreateOpType
}

func (o CommitteeMemberCreateOperation) FeePayer() ObjectID {
	return o.CommitteeMemberAccount
}

func (o CommitteeMemberCreateOperation) GetFee() Asset {
	return o.Fee
}

func (o CommitteeMemberCreateOperation) Validate() error {
	if err := validateFee(o); err != nil {
		return err
	}
	return validateURL(o, o.URL)
}

type CommitteeMemberUpdateOperation struct {
	Fee                    Asset    `json:"fee"`
	CommitteeMember        ObjectID `json:"committee_member"`
	CommitteeMemberAccount ObjectID `json:"committee_member_account"`
	NewURL                 *string  `json:"new_url,omitempty"`
}

func (o CommitteeMemberUpdateOperation) Type() OpType {
	return CommitteeMemberUpdateOpType
}

func (o CommitteeMemberUpdateOperation) FeePayer() ObjectID {
	return o.CommitteeMemberAccount
}

func (o CommitteeMemberUpdateOperation) GetFee() Asset {
	return o.Fee
}

func (o CommitteeMemberUpdateOperation) Validate() error {
	if err := validateFee(o); err != nil {
		return err
	}
	if o.NewURL != nil {
		return validateURL(o, *o.NewURL)
	}
	return nil
}

// CommitteeMemberUpdateGlobalParametersOperation may only run as the payload
// of an approved proposal; the fee is paid by the committee account.
type CommitteeMemberUpdateGlobalParametersOperation struct {
	Fee           Asset           `json:"fee"`
	NewParameters ChainParameters `json:"new_parameters"`
}

func (o CommitteeMemberUpdateGlobalParametersOperation) Type() OpType {
	return CommitteeMemberUpdateGlobalParametersOpType
}

func (o CommitteeMemberUpdateGlobalParametersOperation) FeePayer() ObjectID {
	return CommitteeAccount
}

func (o CommitteeMemberUpdateGlobalParametersOperation) GetFee() Asset {
	return o.Fee
}

func (o CommitteeMemberUpdateGlobalParametersOperation) Validate() error {
	return validateFee(o)
}

// CommitteeMemberIssueConstructionCapitalOperation moves base asset out of
// the construction capital reserve to a receiver.
type CommitteeMemberIssueConstructionCapitalOperation struct {
	Fee      Asset    `json:"fee"`
	Receiver ObjectID `json:"receiver"`
	Amount   int64    `json:"amount"`
}

func (o CommitteeMemberIssueConstructionCapitalOperation) Type() OpType {
	return CommitteeMemberIssueConstructionCapitalOpType
}

func (o CommitteeMemberIssueConstructionCapitalOperation) FeePayer() ObjectID {
	return CommitteeAccount
}

func (o CommitteeMemberIssueConstructionCapitalOperation) GetFee() Asset {
	return o.Fee
}

func (o CommitteeMemberIssueConstructionCapitalOperation) Validate() error {
	return validateFee(o)
}

// CommitteeMemberGrantInstantPaybackOperation grants or revokes the instant
// payback privilege of an account.
type CommitteeMemberGrantInstantPaybackOperation struct {
	Fee       Asset    `json:"fee"`
	AccountID ObjectID `json:"account_id"`
	Grant     bool     `json:"grant"`
}

func (o CommitteeMemberGrantInstantPaybackOperation) Type() OpType {
	return CommitteeMemberGrantInstantPaybackOpType
}

func (o CommitteeMemberGrantInstantPaybackOperation) FeePayer() ObjectID {
	return CommitteeAccount
}

func (o CommitteeMemberGrantInstantPaybackOperation) GetFee() Asset {
	return o.Fee
}

func (o CommitteeMemberGrantInstantPaybackOperation) Validate() error {
	return validateFee(o)
}
