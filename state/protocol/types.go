package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"govledger/state/objectstore"
)

type ObjectID = objectstore.ObjectID

var (
	AccountKind         = objectstore.Kind{Space: objectstore.ProtocolSpace, Type: 2}
	AssetKind           = objectstore.Kind{Space: objectstore.ProtocolSpace, Type: 3}
	CommitteeMemberKind = objectstore.Kind{Space: objectstore.ProtocolSpace, Type: 5}
)

// BaseAsset is the chain's core unit of account, 1.3.0.
var BaseAsset = AssetKind.ID(0)

// MinTimestamp is the "never" value for expiration fields.
var MinTimestamp = time.Unix(0, 0).UTC()

func AccountID(instance uint64) ObjectID {
	return AccountKind.ID(instance)
}

func CommitteeMemberID(instance uint64) ObjectID {
	return CommitteeMemberKind.ID(instance)
}

type Asset struct {
	Amount  int64    `json:"amount"`
	AssetID ObjectID `json:"asset_id"`
}

func BaseAmount(amount int64) Asset {
	return Asset{Amount: amount, AssetID: BaseAsset}
}

func (a Asset) Negate() Asset {
	return Asset{Amount: -a.Amount, AssetID: a.AssetID}
}

func (a Asset) String() string {
	return fmt.Sprintf("%d %s", a.Amount, a.AssetID)
}

type VoteCategory uint8

const (
	VoteCommittee VoteCategory = iota
	VoteWitness
	VoteWorker
	VoteCategoryCount
)

func (c VoteCategory) String() string {
	switch c {
	case VoteCommittee:
		return "committee"
	case VoteWitness:
		return "witness"
	case VoteWorker:
		return "worker"
	}
	return "category(" + strconv.Itoa(int(c)) + ")"
}

// VoteID is unique within its category for the lifetime of the chain.
type VoteID struct {
	Category VoteCategory
	Instance uint32
}

func (v VoteID) String() string {
	return fmt.Sprintf("%d:%d", v.Category, v.Instance)
}

func (v VoteID) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VoteID) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid vote id %q", text)
	}
	c, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return fmt.Errorf("invalid vote id %q: %w", text, err)
	}
	if VoteCategory(c) >= VoteCategoryCount {
		return fmt.Errorf("invalid vote id %q: unknown category", text)
	}
	i, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid vote id %q: %w", text, err)
	}
	v.Category = VoteCategory(c)
	v.Instance = uint32(i)
	return nil
}

// ChainParameters are opaque to operation evaluation; they are staged by
// governance and enacted by the maintenance process.
type ChainParameters struct {
	BlockInterval                 uint8  `json:"block_interval"`
	MaintenanceInterval           uint32 `json:"maintenance_interval"`
	MaintenanceSkipSlots          uint8  `json:"maintenance_skip_slots"`
	CommitteeProposalReviewPeriod uint32 `json:"committee_proposal_review_period"`
	MaximumTransactionSize        uint32 `json:"maximum_transaction_size"`
	MaximumBlockSize              uint32 `json:"maximum_block_size"`
	MaximumTimeUntilExpiration    uint32 `json:"maximum_time_until_expiration"`
	MaximumProposalLifetime       uint32 `json:"maximum_proposal_lifetime"`
	MaximumCommitteeCount         uint16 `json:"maximum_committee_count"`
	MaximumWitnessCount           uint16 `json:"maximum_witness_count"`
	LifetimeReferrerPercentOfFee  uint16 `json:"lifetime_referrer_percent_of_fee"`
	NetworkPercentOfFee           uint16 `json:"network_percent_of_fee"`
	CashbackVestingPeriodSeconds  uint32 `json:"cashback_vesting_period_seconds"`
	WitnessPayPerBlock            int64  `json:"witness_pay_per_block"`
	MaxPredicateOpcode            uint16 `json:"max_predicate_opcode"`
	AccountFeeScaleBitshifts      uint8  `json:"account_fee_scale_bitshifts"`
	MaxAuthorityDepth             uint8  `json:"max_authority_depth"`
	AllowNonMemberWhitelists      bool   `json:"allow_non_member_whitelists"`
	CountNonMemberVotes           bool   `json:"count_non_member_votes"`
}

func DefaultChainParameters() ChainParameters {
	return ChainParameters{
		BlockInterval:                 5,
		MaintenanceInterval:           86400,
		MaintenanceSkipSlots:          3,
		CommitteeProposalReviewPeriod: 1209600,
		MaximumTransactionSize:        2048,
		MaximumBlockSize:              2048 * 5 * 200,
		MaximumTimeUntilExpiration:    86400,
		MaximumProposalLifetime:       2419200,
		MaximumCommitteeCount:         1001,
		MaximumWitnessCount:           1001,
		LifetimeReferrerPercentOfFee:  3000,
		NetworkPercentOfFee:           2000,
		CashbackVestingPeriodSeconds:  31536000,
		WitnessPayPerBlock:            1000000,
		MaxPredicateOpcode:            1,
		AccountFeeScaleBitshifts:      4,
		MaxAuthorityDepth:             2,
		CountNonMemberVotes:           true,
	}
}
