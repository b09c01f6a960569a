package token

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

const ipfsScheme = "ipfs://"

// MetadataBatchSize is the number of units minted for every non-fungible class.
const MetadataBatchSize = 5

// DefaultMetadata lists the content references minted when none are configured.
var DefaultMetadata = []string{
	"ipfs://bafkreiap62fsqxmo4hy45bmwiqolqqtkhtehghqauixvv5mcq7uofdpvt4",
	"ipfs://bafkreibvluvlf36lilrqoaum54ga3nlumms34m4kab2x67f5piofmo5fsa",
	"ipfs://bafkreidrqy67amvygjnvgr2mgdgqg2alaowoy34ljubot6qwf6bcf4yma4",
	"ipfs://bafkreicoorrcx3d4foreggz72aedxhosuk3cjgumglstokuhw2cmz22n7u",
	"ipfs://bafkreidv7k5vfn6gnj5mhahnrvhxep4okw75dwbt6o4r3rhe3ktraddf5a",
}

// ParseContentRef decodes an "ipfs://<cid>" reference or a bare CID.
func ParseContentRef(ref string) (cid.Cid, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(ref), ipfsScheme)
	if raw == "" {
		return cid.Undef, fmt.Errorf("empty content reference %q", ref)
	}
	c, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid content reference %q: %w", ref, err)
	}
	return c, nil
}

// EncodeMetadata validates every reference and returns the on-ledger metadata
// payloads in canonical "ipfs://<cid>" form.
func EncodeMetadata(refs []string) ([][]byte, error) {
	out := make([][]byte, 0, len(refs))
	for i, ref := range refs {
		c, err := ParseContentRef(ref)
		if err != nil {
			return nil, fmt.Errorf("metadata[%d]: %w", i, err)
		}
		out = append(out, []byte(ipfsScheme+c.String()))
	}
	return out, nil
}
