package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// decodeLogs decodes every log whose event is known to the artifact source.
// Unknown events are skipped.
func (g *Gateway) decodeLogs(logs []*types.Log, kind string) []models.Event {
	var events []models.Event
	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		ev, ok := g.artifacts.Event(l.Topics[0], kind)
		if !ok {
			g.log.Debug("skipping unknown event", "address", l.Address.Hex(), "topic", l.Topics[0].Hex())
			continue
		}

		fields := make(map[string]any)
		var indexed abi.Arguments
		for _, input := range ev.Inputs {
			if input.Indexed {
				indexed = append(indexed, input)
			}
		}
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			g.log.Debug("failed to parse event topics", "event", ev.Name, "error", err)
			continue
		}
		if len(l.Data) > 0 {
			if err := ev.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
				g.log.Debug("failed to unpack event data", "event", ev.Name, "error", err)
				continue
			}
		}

		events = append(events, models.Event{
			Name:    ev.Name,
			Address: l.Address,
			Fields:  fields,
		})
	}
	return events
}
