package ipfs

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// binaryV1 parses a CID answered by a node and returns the binary CIDv1 of
// the same content. CIDv0 identifiers always name dag-pb nodes.
func binaryV1(s string) ([]byte, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid CID %q: %w", s, err)
	}
	if c.Version() == 0 {
		c = cid.NewCidV1(cid.DagProtobuf, c.Hash())
	}
	return c.Bytes(), nil
}

// rawCID returns the raw-codec CIDv1 of blob
func rawCID(blob []byte) (cid.Cid, error) {
	sum, err := mh.Sum(blob, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
