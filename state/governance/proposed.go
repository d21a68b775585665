package governance

import (
	"time"

	"govledger/state/evaluator"
	"govledger/state/protocol"
)

// IssuanceDeadline is the last ledger time at which construction capital may
// be issued. The bound is inclusive.
var IssuanceDeadline = time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC)

const InstantPaybackPeriod = 365 * 24 * time.Hour

type updateGlobalParametersEvaluator struct{}

func (updateGlobalParametersEvaluator) Evaluate(ctx *evaluator.Context, op protocol.CommitteeMemberUpdateGlobalParametersOperation) error {
	return evaluator.RequireProposal(ctx, op)
}

func (updateGlobalParametersEvaluator) Apply(ctx *evaluator.Context, op protocol.CommitteeMemberUpdateGlobalParametersOperation) (evaluator.Result, error) {
	return evaluator.Result{}, ctx.DB.Globals.StageParameters(op.NewParameters)
}

type issueConstructionCapitalEvaluator struct{}

func (issueConstructionCapitalEvaluator) Evaluate(ctx *evaluator.Context, op protocol.CommitteeMemberIssueConstructionCapitalOperation) error {
	if err := evaluator.RequireProposal(ctx, op); err != nil {
		return err
	}
	now, err := ctx.DB.HeadBlockTime()
	if err != nil {
		return err
	}
	if now.After(IssuanceDeadline) {
		return evaluator.Fail(evaluator.ErrIssuanceWindowClosed, op,
			"construction capital can only be issued before %s, now is %s",
			IssuanceDeadline.Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	reserve := ctx.DB.Balances.Get(ctx.DB.ConstructionCapitalAccount, protocol.BaseAsset)
	if op.Amount > reserve {
		return evaluator.Fail(evaluator.ErrInsufficientReserve, op,
			"amount %d is greater than the construction capital balance %d", op.Amount, reserve)
	}
	if _, ok := ctx.DB.Accounts.Find(op.Receiver); !ok {
		return evaluator.Fail(evaluator.ErrObjectNotFound, op, "receiver %s not found", op.Receiver)
	}
	if op.Amount <= op.Fee.Amount {
		return evaluator.Fail(evaluator.ErrFeeExceedsAmount, op,
			"must issue more than the fee %d, only %d specified", op.Fee.Amount, op.Amount)
	}
	return nil
}

func (issueConstructionCapitalEvaluator) Apply(ctx *evaluator.Context, op protocol.CommitteeMemberIssueConstructionCapitalOperation) (evaluator.Result, error) {
	err := ctx.DB.Balances.Transfer(ctx.DB.ConstructionCapitalAccount, op.Receiver, protocol.BaseAmount(op.Amount))
	return evaluator.Result{}, err
}

type grantInstantPaybackEvaluator struct{}

func (grantInstantPaybackEvaluator) Evaluate(ctx *evaluator.Context, op protocol.CommitteeMemberGrantInstantPaybackOperation) error {
	if err := evaluator.RequireProposal(ctx, op); err != nil {
		return err
	}
	if _, ok := ctx.DB.Accounts.Find(op.AccountID); !ok {
		return evaluator.Fail(evaluator.ErrObjectNotFound, op, "account %s not found", op.AccountID)
	}
	return nil
}

func (grantInstantPaybackEvaluator) Apply(ctx *evaluator.Context, op protocol.CommitteeMemberGrantInstantPaybackOperation) (evaluator.Result, error) {
	expiration := protocol.MinTimestamp
	if op.Grant {
		now, err := ctx.DB.HeadBlockTime()
		if err != nil {
			return evaluator.Result{}, err
		}
		expiration = now.Add(InstantPaybackPeriod)
	}
	return evaluator.Result{}, ctx.DB.Accounts.SetInstantPayback(op.AccountID, expiration)
}
