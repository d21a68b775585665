package governance

import (
	"govledger/state/evaluator"
	"govledger/state/protocol"
)

// Register installs the committee governance evaluators.
func Register(d *evaluator.Dispatcher) error {
	for _, e := range []evaluator.Evaluator{
		evaluator.Wrap[protocol.CommitteeMemberCreateOperation](createEvaluator{}),
		evaluator.Wrap[protocol.CommitteeMemberUpdateOperation](updateEvaluator{}),
		evaluator.Wrap[protocol.CommitteeMemberUpdateGlobalParametersOperation](updateGlobalParametersEvaluator{}),
		evaluator.Wrap[protocol.CommitteeMemberIssueConstructionCapitalOperation](issueConstructionCapitalEvaluator{}),
		evaluator.Wrap[protocol.CommitteeMemberGrantInstantPaybackOperation](grantInstantPaybackEvaluator{}),
	} {
		if err := d.Register(e); err != nil {
			return err
		}
	}
	return nil
}

// NewDispatcher returns a dispatcher with every governance evaluator
// registered.
func NewDispatcher() (*evaluator.Dispatcher, error) {
	d := evaluator.NewDispatcher()
	if err := Register(d); err != nil {
		return nil, err
	}
	return d, nil
}
