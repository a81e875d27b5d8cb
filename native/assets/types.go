package assets

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two registry flavours an escrow talks to.
type Kind uint8

const (
	// KindUnique registries track one owner per asset id.
	KindUnique Kind = 1
	// KindFungible registries track unit balances per (asset id, holder).
	KindFungible Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindFungible:
		return "fungible"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind accepts the labels used by genesis documents.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique", "nft", "erc721":
		return KindUnique, nil
	case "fungible", "multi", "erc1155":
		return KindFungible, nil
	default:
		return 0, fmt.Errorf("assets: unknown registry kind %q", s)
	}
}

// Registry is the metadata of a registry instance hosted by the node.
type Registry struct {
	Address [20]byte
	Kind    Kind
	Minter  [20]byte
	Name    string
}

// Clone returns a copy of the registry metadata.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
