package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// callScope resolves references for one configuration step. The self
// placeholder stands for the component named by self.
type callScope struct {
	Resolver
	plan *models.DeploymentPlan
	self string
}

func newScope(registry *AddressRegistry, plan *models.DeploymentPlan, self string) callScope {
	return callScope{Resolver: registry.Scoped(self), plan: plan, self: self}
}

// kind returns the artifact of the referenced component, "" for raw addresses
func (s callScope) kind(ref string) string {
	if s.plan == nil {
		return ""
	}
	if models.IsSelfRef(ref) {
		ref = s.self
	}
	return s.plan.Kind(ref)
}

func (s callScope) label(ref string) string {
	if models.IsSelfRef(ref) && s.self != "" {
		return s.self
	}
	return ref
}

// Submitter resolves invocation arguments and drives the chain gateway one
// confirmed transaction at a time.
type Submitter struct {
	gateway   ChainGateway
	confirmer *Confirmer
	senders   *SenderBook
	log       *slog.Logger
}

// NewSubmitter creates a new submitter
func NewSubmitter(gateway ChainGateway, confirmer *Confirmer, senders *SenderBook, log *slog.Logger) *Submitter {
	return &Submitter{
		gateway:   gateway,
		confirmer: confirmer,
		senders:   senders,
		log:       log,
	}
}

// ResolveArgs turns configured arguments into ABI-ready values. References are
// resolved at this point, never earlier.
func (s *Submitter) ResolveArgs(ctx context.Context, scope callScope, args []models.Arg) ([]any, error) {
	out := make([]any, 0, len(args))
	for i, a := range args {
		switch {
		case a.Call != nil:
			values, err := s.Read(ctx, scope, *a.Call)
			if err != nil {
				return nil, err
			}
			if len(values) == 0 {
				return nil, domain.Configf(fmt.Sprintf("args[%d]", i), "%s returned no value", a.Call)
			}
			out = append(out, values[0])
		case a.Ref != "":
			addr, err := scope.Resolve(a.Ref)
			if err != nil {
				return nil, err
			}
			out = append(out, addr)
		case a.Refs != nil:
			addrs := make([]common.Address, len(a.Refs))
			for j, ref := range a.Refs {
				addr, err := scope.Resolve(ref)
				if err != nil {
					return nil, err
				}
				addrs[j] = addr
			}
			out = append(out, addrs)
		default:
			out = append(out, a.Value)
		}
	}
	return out, nil
}

// Read performs a read-only invocation
func (s *Submitter) Read(ctx context.Context, scope callScope, inv models.Invocation) ([]any, error) {
	target, err := scope.Resolve(inv.Target)
	if err != nil {
		return nil, err
	}
	args, err := s.ResolveArgs(ctx, scope, inv.Args)
	if err != nil {
		return nil, err
	}
	kind := inv.Kind
	if kind == "" {
		kind = scope.kind(inv.Target)
	}
	return s.gateway.Read(ctx, ReadRequest{
		Target: target,
		Label:  scope.label(inv.Target),
		Kind:   kind,
		Method: inv.Method,
		Args:   args,
	})
}

// Invoke submits a configuration transaction and waits for its confirmation
func (s *Submitter) Invoke(ctx context.Context, scope callScope, inv models.Invocation) (*TxReceipt, error) {
	target, err := scope.Resolve(inv.Target)
	if err != nil {
		return nil, err
	}
	args, err := s.ResolveArgs(ctx, scope, inv.Args)
	if err != nil {
		return nil, err
	}
	kind := inv.Kind
	if kind == "" {
		kind = scope.kind(inv.Target)
	}
	var value *big.Int
	if inv.Value != nil {
		value = inv.Value.Int()
	}
	return s.Send(ctx, CallRequest{
		Target: target,
		Label:  scope.label(inv.Target),
		Kind:   kind,
		Method: inv.Method,
		Args:   args,
		Value:  value,
	}, inv.From)
}

// Send submits a prepared call on behalf of the actor and waits for confirmation
func (s *Submitter) Send(ctx context.Context, req CallRequest, actor string) (*TxReceipt, error) {
	from, err := s.senders.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.senders.CheckUsable(from); err != nil {
		return nil, err
	}
	req.From = from

	s.log.Debug("submitting call",
		"target", req.Label, "address", req.Target.Hex(), "method", req.Method, "from", from.Address.Hex())

	receipt, err := s.gateway.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.confirmer.Wait(ctx, receipt.BlockNumber); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Deploy creates a contract and waits for confirmation
func (s *Submitter) Deploy(ctx context.Context, req DeployRequest, actor string) (*TxReceipt, error) {
	from, err := s.senders.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.senders.CheckUsable(from); err != nil {
		return nil, err
	}
	req.From = from

	s.log.Debug("deploying contract", "name", req.Name, "kind", req.Kind, "from", from.Address.Hex())

	receipt, err := s.gateway.DeployContract(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.confirmer.Wait(ctx, receipt.BlockNumber); err != nil {
		return nil, err
	}
	return receipt, nil
}
