package governance

import (
	"govledger/state/evaluator"
	"govledger/state/protocol"
)

type createEvaluator struct{}

func (createEvaluator) Evaluate(ctx *evaluator.Context, op protocol.CommitteeMemberCreateOperation) error {
	account, err := ctx.DB.Accounts.Get(op.CommitteeMemberAccount)
	if err != nil {
		return evaluator.Fail(evaluator.ErrObjectNotFound, op, "account %s", op.CommitteeMemberAccount)
	}
	if !account.LifetimeMember {
		return evaluator.Fail(evaluator.ErrPrerequisiteNotMet, op,
			"only lifetime members may register a committee member, %s (%s) is not one", account.Name, account.ID)
	}
	return nil
}

func (createEvaluator) Apply(ctx *evaluator.Context, op protocol.CommitteeMemberCreateOperation) (evaluator.Result, error) {
	voteID, err := ctx.DB.Globals.AllocateVoteID(protocol.VoteCommittee)
	if err != nil {
		return evaluator.Result{}, err
	}
	member, err := ctx.DB.Committee.Create(op.CommitteeMemberAccount, voteID, op.URL)
	if err != nil {
		return evaluator.Result{}, err
	}
	return evaluator.NewObject(member.ID), nil
}

type updateEvaluator struct{}

func (updateEvaluator) Evaluate(ctx *evaluator.Context, op protocol.CommitteeMemberUpdateOperation) error {
	member, err := ctx.DB.Committee.Get(op.CommitteeMember)
	if err != nil {
		return evaluator.Fail(evaluator.ErrObjectNotFound, op, "committee member %s", op.CommitteeMember)
	}
	if member.CommitteeMemberAccount != op.CommitteeMemberAccount {
		return evaluator.Fail(evaluator.ErrAuthorizationFailed, op,
			"%s is owned by %s, not %s", member.ID, member.CommitteeMemberAccount, op.CommitteeMemberAccount)
	}
	return nil
}

func (updateEvaluator) Apply(ctx *evaluator.Context, op protocol.CommitteeMemberUpdateOperation) (evaluator.Result, error) {
	if op.NewURL == nil {
		return evaluator.Result{}, nil
	}
	return evaluator.Result{}, ctx.DB.Committee.SetURL(op.CommitteeMember, *op.NewURL)
}
