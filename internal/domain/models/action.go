package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionType tags a governance action
type ActionType string

const (
	ActionTransfer ActionType = "transfer"
	ActionApprove  ActionType = "approve"
	ActionProposal ActionType = "proposal"
	ActionStake    ActionType = "stake"
	ActionVote     ActionType = "vote"
	ActionExecute  ActionType = "execute"
	ActionRedeem   ActionType = "redeem"
)

// ActionPayload is the variant-specific part of a GovernanceAction
type ActionPayload interface {
	ActionType() ActionType
}

// ProposalReferencing is implemented by payloads that point into the proposal log
type ProposalReferencing interface {
	ProposalRef() ProposalIndex
}

// GovernanceAction is one step of the action script
type GovernanceAction struct {
	Type ActionType
	From string // sender name or address

	// Time is how many seconds to advance the chain clock before the
	// action. Only honoured on dev networks.
	Time uint64

	Data ActionPayload
}

func (a GovernanceAction) String() string {
	if ref, ok := a.Data.(ProposalReferencing); ok {
		return fmt.Sprintf("%s(#%d)", a.Type, ref.ProposalRef())
	}
	return string(a.Type)
}

// TransferData moves native currency (NULL asset) or tokens
type TransferData struct {
	Asset   string `yaml:"asset"`
	Address string `yaml:"address"`
	Amount  Amount `yaml:"amount"`
}

// ApproveData grants a token allowance
type ApproveData struct {
	Asset   string `yaml:"asset"`
	Address string `yaml:"address"`
	Amount  Amount `yaml:"amount"`
}

// ProposalData creates a proposal on a scheme. Wallet schemes use the
// To/CallData/Value lists; contribution reward schemes use the reward fields.
type ProposalData struct {
	Scheme      string   `yaml:"scheme"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	URL         string   `yaml:"url"`

	To       []string `yaml:"to"`
	CallData []string `yaml:"callData"`
	Value    []Amount `yaml:"value"`

	ReputationChange string   `yaml:"reputationChange"`
	Rewards          []Amount `yaml:"rewards"`
	ExternalToken    string   `yaml:"externalToken"`
	Beneficiary      string   `yaml:"beneficiary"`
}

// StakeData stakes on a proposal outcome
type StakeData struct {
	Proposal ProposalIndex `yaml:"proposal"`
	Decision Amount        `yaml:"decision"`
	Amount   Amount        `yaml:"amount"`
}

// VoteData casts a vote on a proposal
type VoteData struct {
	Proposal ProposalIndex `yaml:"proposal"`
	Decision Amount        `yaml:"decision"`
	Amount   Amount        `yaml:"amount"`
}

// ExecuteData executes a proposal
type ExecuteData struct {
	Proposal ProposalIndex `yaml:"proposal"`
}

// RedeemData redeems rewards of a proposal for the actor
type RedeemData struct {
	Proposal ProposalIndex `yaml:"proposal"`
}

func (TransferData) ActionType() ActionType { return ActionTransfer }
func (ApproveData) ActionType() ActionType  { return ActionApprove }
func (ProposalData) ActionType() ActionType { return ActionProposal }
func (StakeData) ActionType() ActionType    { return ActionStake }
func (VoteData) ActionType() ActionType     { return ActionVote }
func (ExecuteData) ActionType() ActionType  { return ActionExecute }
func (RedeemData) ActionType() ActionType   { return ActionRedeem }

func (d StakeData) ProposalRef() ProposalIndex   { return d.Proposal }
func (d VoteData) ProposalRef() ProposalIndex    { return d.Proposal }
func (d ExecuteData) ProposalRef() ProposalIndex { return d.Proposal }
func (d RedeemData) ProposalRef() ProposalIndex  { return d.Proposal }

// ProposalIndex is the ordinal of a proposal action within the script.
// It accepts both 0 and "0" in YAML.
type ProposalIndex int

func (p *ProposalIndex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: proposal index must be a scalar", node.Line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil || n < 0 {
		return fmt.Errorf("line %d: invalid proposal index %q", node.Line, node.Value)
	}
	*p = ProposalIndex(n)
	return nil
}

func (a *GovernanceAction) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type string    `yaml:"type"`
		From string    `yaml:"from"`
		Time uint64    `yaml:"time"`
		Data yaml.Node `yaml:"data"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch key := node.Content[i]; key.Value {
			case "type", "from", "time", "data":
			default:
				return fmt.Errorf("line %d: unknown action field %q", key.Line, key.Value)
			}
		}
	}

	var payload ActionPayload
	var err error
	switch ActionType(raw.Type) {
	case ActionTransfer:
		payload, err = decodePayload[TransferData](&raw.Data)
	case ActionApprove:
		payload, err = decodePayload[ApproveData](&raw.Data)
	case ActionProposal:
		payload, err = decodePayload[ProposalData](&raw.Data)
	case ActionStake:
		payload, err = decodePayload[StakeData](&raw.Data)
	case ActionVote:
		payload, err = decodePayload[VoteData](&raw.Data)
	case ActionExecute:
		payload, err = decodePayload[ExecuteData](&raw.Data)
	case ActionRedeem:
		payload, err = decodePayload[RedeemData](&raw.Data)
	default:
		return fmt.Errorf("line %d: unknown action type %q", node.Line, raw.Type)
	}
	if err != nil {
		return fmt.Errorf("%s action: %w", raw.Type, err)
	}

	*a = GovernanceAction{
		Type: ActionType(raw.Type),
		From: raw.From,
		Time: raw.Time,
		Data: payload,
	}
	return nil
}

// decodePayload decodes the data node of an action. Unknown keys are
// rejected and payloads pointing into the proposal log must name their index.
func decodePayload[T ActionPayload](node *yaml.Node) (ActionPayload, error) {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, fmt.Errorf("data is required")
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: data must be a mapping", node.Line)
	}

	raw, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var v T
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	if _, ok := any(v).(ProposalReferencing); ok && !hasKey(node, "proposal") {
		return nil, fmt.Errorf("line %d: proposal index is required", node.Line)
	}
	return v, nil
}

func hasKey(mapping *yaml.Node, key string) bool {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return true
		}
	}
	return false
}
