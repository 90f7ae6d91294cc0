package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// executeGasLimit skips estimation for execute calls, which revert whenever
// the proposal is not executable yet
const executeGasLimit = 9_000_000

// ActionOutcome is reported after every replayed action
type ActionOutcome struct {
	Index      int
	Action     models.GovernanceAction
	ProposalID common.Hash
	TxHash     common.Hash
	Err        error
}

// ReplayActions interprets the governance action script against the
// provisioned system. Only execute failures are tolerated.
type ReplayActions struct {
	submitter *Submitter
	gateway   ChainGateway
	content   ContentStore
	cfg       *config.RuntimeConfig
	progress  ProgressSink
	log       *slog.Logger
}

// NewReplayActions creates a new action interpreter
func NewReplayActions(
	submitter *Submitter,
	gateway ChainGateway,
	content ContentStore,
	cfg *config.RuntimeConfig,
	progress ProgressSink,
	log *slog.Logger,
) *ReplayActions {
	return &ReplayActions{
		submitter: submitter,
		gateway:   gateway,
		content:   content,
		cfg:       cfg,
		progress:  progress,
		log:       log,
	}
}

// Run replays the script strictly in order
func (r *ReplayActions) Run(ctx context.Context, state *RunState) error {
	total := len(state.Plan.Actions)
	for i, action := range state.Plan.Actions {
		if action.Time > 0 {
			if err := r.advanceTime(ctx, action.Time); err != nil {
				return fmt.Errorf("action #%d (%s): %w", i, action, err)
			}
		}

		outcome, err := r.apply(ctx, state, action)
		outcome.Index = i
		outcome.Action = action

		if err != nil {
			if action.Type == models.ActionExecute && errors.Is(err, domain.ErrChainCall) {
				outcome.Err = err
				state.FailedExecutions = append(state.FailedExecutions, action.Data.(models.ExecuteData).Proposal)
				r.log.Warn("proposal execution failed, continuing", "action", i, "error", err)
				r.progress.OnProgress(ctx, ProgressEvent{
					Stage:    StageActionFailed,
					Current:  i + 1,
					Total:    total,
					Message:  fmt.Sprintf("execution of proposal #%d failed: %v", action.Data.(models.ExecuteData).Proposal, err),
					Metadata: outcome,
				})
				continue
			}
			return fmt.Errorf("action #%d (%s) failed: %w", i, action, err)
		}

		r.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageAction,
			Current:  i + 1,
			Total:    total,
			Message:  action.String(),
			Metadata: outcome,
		})
	}
	return nil
}

func (r *ReplayActions) advanceTime(ctx context.Context, seconds uint64) error {
	if r.cfg.Network == nil || !r.cfg.Network.Dev {
		r.log.Warn("ignoring action time on a non-dev network", "seconds", seconds)
		return nil
	}
	return r.gateway.AdvanceTime(ctx, seconds)
}

func (r *ReplayActions) apply(ctx context.Context, state *RunState, action models.GovernanceAction) (ActionOutcome, error) {
	var out ActionOutcome
	var receipt *TxReceipt
	var err error

	switch data := action.Data.(type) {
	case models.TransferData:
		receipt, err = r.transfer(ctx, state, action.From, data)
	case models.ApproveData:
		receipt, err = r.tokenCall(ctx, state, action.From, data.Asset, "approve", data.Address, data.Amount)
	case models.ProposalData:
		receipt, err = r.propose(ctx, state, action.From, data)
		if err == nil {
			out.ProposalID, err = proposalID(receipt)
			if err == nil {
				state.Proposals.Append(out.ProposalID)
			}
		}
	case models.StakeData:
		receipt, err = r.votingCall(ctx, state, action.From, data.Proposal, "stake", 0,
			func(id common.Hash, _ common.Address) []any {
				return []any{id, data.Decision.Int(), data.Amount.Int()}
			})
	case models.VoteData:
		receipt, err = r.votingCall(ctx, state, action.From, data.Proposal, "vote", 0,
			func(id common.Hash, actor common.Address) []any {
				return []any{id, data.Decision.Int(), data.Amount.Int(), actor}
			})
	case models.ExecuteData:
		receipt, err = r.votingCall(ctx, state, action.From, data.Proposal, "execute", executeGasLimit,
			func(id common.Hash, _ common.Address) []any {
				return []any{id}
			})
	case models.RedeemData:
		receipt, err = r.votingCall(ctx, state, action.From, data.Proposal, "redeem", 0,
			func(id common.Hash, actor common.Address) []any {
				return []any{id, actor}
			})
	default:
		return out, domain.Configf("actions", "unsupported action type %q", action.Type)
	}

	if receipt != nil {
		out.TxHash = receipt.TxHash
	}
	return out, err
}

func (r *ReplayActions) transfer(ctx context.Context, state *RunState, from string, data models.TransferData) (*TxReceipt, error) {
	if !models.IsNullRef(data.Asset) && data.Asset != models.ZeroAddress.Hex() {
		return r.tokenCall(ctx, state, from, data.Asset, "transfer", data.Address, data.Amount)
	}

	recipient, err := state.Registry.Resolve(data.Address)
	if err != nil {
		return nil, err
	}
	return r.submitter.Send(ctx, CallRequest{
		Target: recipient,
		Label:  data.Address,
		Value:  data.Amount.Int(),
	}, from)
}

func (r *ReplayActions) tokenCall(ctx context.Context, state *RunState, from, asset, method, counterparty string, amount models.Amount) (*TxReceipt, error) {
	token, err := state.Registry.Resolve(asset)
	if err != nil {
		return nil, err
	}
	to, err := state.Registry.Resolve(counterparty)
	if err != nil {
		return nil, err
	}
	return r.submitter.Send(ctx, CallRequest{
		Target: token,
		Label:  asset,
		Kind:   state.Plan.Kind(asset),
		Method: method,
		Args:   []any{to, amount.Int()},
	}, from)
}

func (r *ReplayActions) propose(ctx context.Context, state *RunState, from string, data models.ProposalData) (*TxReceipt, error) {
	blob, err := json.Marshal(models.ProposalMetadata{
		Description: data.Description,
		Title:       data.Title,
		Tags:        data.Tags,
		URL:         data.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode proposal metadata: %w", err)
	}
	digest, err := r.content.Put(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to store proposal metadata: %w", err)
	}
	r.log.Debug("proposal metadata stored", "cid", digest.CID)

	scheme, err := state.Registry.Resolve(data.Scheme)
	if err != nil {
		return nil, err
	}
	kind := state.Plan.Kind(data.Scheme)

	req := CallRequest{Target: scheme, Label: data.Scheme, Kind: kind}
	if strings.Contains(kind, "ContributionReward") {
		avatar, err := state.Registry.Resolve("Avatar")
		if err != nil {
			return nil, err
		}
		token, err := state.Registry.Resolve(data.ExternalToken)
		if err != nil {
			return nil, err
		}
		beneficiary, err := state.Registry.Resolve(data.Beneficiary)
		if err != nil {
			return nil, err
		}
		rewards := make([]*big.Int, len(data.Rewards))
		for i, v := range data.Rewards {
			rewards[i] = v.Int()
		}
		req.Method = "proposeContributionReward"
		req.Args = []any{avatar, digest.ContentHash(), data.ReputationChange, rewards, token, beneficiary}
	} else {
		targets := make([]common.Address, len(data.To))
		for i, ref := range data.To {
			addr, err := state.Registry.Resolve(ref)
			if err != nil {
				return nil, err
			}
			targets[i] = addr
		}
		values := make([]*big.Int, len(data.Value))
		for i, v := range data.Value {
			values[i] = v.Int()
		}
		callData := make([]any, len(data.CallData))
		for i, c := range data.CallData {
			callData[i] = c
		}
		req.Method = "proposeCalls"
		req.Args = []any{targets, callData, values, data.Title, digest.ContentHash()}
	}
	return r.submitter.Send(ctx, req, from)
}

func (r *ReplayActions) votingCall(
	ctx context.Context,
	state *RunState,
	from string,
	index models.ProposalIndex,
	method string,
	gasLimit uint64,
	args func(id common.Hash, actor common.Address) []any,
) (*TxReceipt, error) {
	id, err := state.Proposals.Get(index)
	if err != nil {
		return nil, err
	}
	if state.Plan.VotingMachine == "" {
		return nil, domain.Configf("votingMachine", "%s action needs a voting machine", method)
	}
	vm, err := state.Registry.Resolve(state.Plan.VotingMachine)
	if err != nil {
		return nil, err
	}
	actor, err := r.submitter.senders.Resolve(from)
	if err != nil {
		return nil, err
	}
	return r.submitter.Send(ctx, CallRequest{
		Target:   vm,
		Label:    state.Plan.VotingMachine,
		Kind:     state.Plan.Kind(state.Plan.VotingMachine),
		Method:   method,
		Args:     args(id, actor.Address),
		GasLimit: gasLimit,
	}, from)
}

// proposalID extracts the identifier from the first event that carries one
func proposalID(receipt *TxReceipt) (common.Hash, error) {
	for _, ev := range receipt.Events {
		v, ok := ev.Field("_proposalId", "proposalId")
		if !ok {
			continue
		}
		switch id := v.(type) {
		case [32]byte:
			return common.Hash(id), nil
		case common.Hash:
			return id, nil
		case *big.Int:
			return common.BigToHash(id), nil
		}
	}
	return common.Hash{}, domain.ChainCallError{
		Method: "propose",
		TxHash: receipt.TxHash,
		Reason: "no proposal id found in transaction events",
	}
}
