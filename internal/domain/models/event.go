package models

import "github.com/ethereum/go-ethereum/common"

// Event is a decoded log emitted by a transaction
type Event struct {
	Name    string
	Address common.Address
	Fields  map[string]any
}

// Field returns the first of the named fields present on the event
func (e Event) Field(names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := e.Fields[n]; ok {
			return v, true
		}
	}
	return nil, false
}
