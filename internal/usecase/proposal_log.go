package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// ProposalLog records proposal identifiers in the order proposal actions
// created them. Only proposal actions append.
type ProposalLog struct {
	ids []common.Hash
}

// NewProposalLog creates an empty log
func NewProposalLog() *ProposalLog {
	return &ProposalLog{}
}

// Append records the identifier of the next proposal
func (l *ProposalLog) Append(id common.Hash) {
	l.ids = append(l.ids, id)
}

// Get returns the identifier created by the index-th proposal action
func (l *ProposalLog) Get(index models.ProposalIndex) (common.Hash, error) {
	if index < 0 || int(index) >= len(l.ids) {
		return common.Hash{}, domain.Configf("actions", "proposal #%d referenced but only %d proposal(s) created so far", index, len(l.ids))
	}
	return l.ids[index], nil
}

// Len returns the number of recorded proposals
func (l *ProposalLog) Len() int {
	return len(l.ids)
}

// IDs returns the recorded identifiers as hex strings
func (l *ProposalLog) IDs() []string {
	out := make([]string, len(l.ids))
	for i, id := range l.ids {
		out[i] = id.Hex()
	}
	return out
}
