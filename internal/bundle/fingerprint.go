package bundle

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Fingerprint returns the content identifier of a release archive: a
// CIDv1 with the raw codec over a sha2-256 multihash. Identical releases
// always share a fingerprint.
func Fingerprint(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
