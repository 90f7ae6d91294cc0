package usecase

import (
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// fillDescriptor copies everything resolved so far into the descriptor
func fillDescriptor(d *models.NetworkDescriptor, state *RunState) {
	d.Addresses = state.Registry.Snapshot()
	d.Proposals = state.Proposals.IDs()
	d.Components = make([]models.ComponentRecord, 0, len(state.Components))

	c := &d.Contracts
	for _, pc := range state.Components {
		spec := pc.Spec
		addr := pc.Address.Hex()

		record := models.ComponentRecord{
			Name:     spec.Name,
			Kind:     spec.Kind,
			Group:    spec.Group,
			Address:  addr,
			Deployed: pc.Deployed,
			Block:    pc.Block,
		}
		if pc.Deployed {
			record.TxHash = pc.TxHash.Hex()
		}
		d.Components = append(d.Components, record)

		switch {
		case spec.Name == NameAvatar:
			c.Avatar = addr
		case spec.Name == NameReputation:
			c.Reputation = addr
		case spec.Name == NameController:
			c.Controller = addr
		case spec.Name == state.Plan.PermissionRegistry:
			c.PermissionRegistry = addr
		case spec.Name == state.Plan.VotingMachine:
			c.VotingMachine = addr
		case spec.Group == models.GroupToken:
			if spec.Name == state.Plan.GovernanceToken {
				c.Token = addr
			}
			c.Tokens = setEntry(c.Tokens, spec.Name, addr)
		case spec.Group == models.GroupScheme:
			c.Schemes = setEntry(c.Schemes, spec.Name, addr)
		case spec.Group == models.GroupPipeline:
			c.Pipeline = setEntry(c.Pipeline, spec.Name, addr)
		default:
			c.Utils = setEntry(c.Utils, spec.Name, addr)
		}
	}
}

func setEntry(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[k] = v
	return m
}
