package models

import "encoding/hex"

// ipfsNamespace is the EIP-1577 varint prefix for ipfs-ns content hashes
var ipfsNamespace = []byte{0xe3, 0x01}

// ContentDigest identifies a blob persisted in content-addressed storage
type ContentDigest struct {
	// CID is the identifier as returned by the store
	CID string `json:"cid"`

	// Binary is the CIDv1 binary form (version, codec, multihash)
	Binary []byte `json:"-"`
}

// ContentHash returns the EIP-1577 content hash in hex, without 0x prefix,
// as embedded in proposals.
func (d ContentDigest) ContentHash() string {
	return hex.EncodeToString(append(append([]byte{}, ipfsNamespace...), d.Binary...))
}

// ProposalMetadata is the blob persisted for every proposal
type ProposalMetadata struct {
	Description string   `json:"description"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	URL         string   `json:"url"`
}
