package network

import (
	"fmt"
	"sort"
)

// Params describes one ledger network a trade leg can execute on.
type Params struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Mainnet       bool   `json:"mainnet"`
	GenesisHash   string `json:"genesis_hash"`
	DefaultPort   uint16 `json:"default_port"`
	RPCPort       uint16 `json:"rpc_port"`
	DecimalPlaces int32  `json:"decimal_places"`
	// SupportsCLTV reports whether OP_CHECKLOCKTIMEVERIFY is enforced by consensus.
	SupportsCLTV bool `json:"supports_cltv"`
}

// Predefined networks.
var (
	BSVMainNet = Params{
		Name:          "mainnet",
		Code:          "BSV",
		Mainnet:       true,
		GenesisHash:   "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		DefaultPort:   8333,
		RPCPort:       8332,
		DecimalPlaces: 8,
	}

	BSVTestNet = Params{
		Name:          "testnet",
		Code:          "BSV",
		GenesisHash:   "000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943",
		DefaultPort:   18333,
		RPCPort:       18332,
		DecimalPlaces: 8,
	}

	// BSVTeraTestNet is experimental; ports and genesis are not yet published.
	BSVTeraTestNet = Params{
		Name:          "teratestnet",
		Code:          "BSV",
		DecimalPlaces: 8,
	}

	BSVRegTest = Params{
		Name:          "regtest",
		Code:          "BSV",
		GenesisHash:   "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206",
		DefaultPort:   18444,
		RPCPort:       18443,
		DecimalPlaces: 8,
	}

	BCHMainNet = Params{
		Name:          "bch",
		Code:          "BCH",
		Mainnet:       true,
		GenesisHash:   "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		DefaultPort:   8333,
		RPCPort:       8332,
		DecimalPlaces: 8,
		SupportsCLTV:  true,
	}

	BCHTestNet = Params{
		Name:          "bch-testnet",
		Code:          "BCH",
		GenesisHash:   "000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943",
		DefaultPort:   18333,
		RPCPort:       18332,
		DecimalPlaces: 8,
		SupportsCLTV:  true,
	}

	BCHRegTest = Params{
		Name:          "bch-regtest",
		Code:          "BCH",
		GenesisHash:   "0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206",
		DefaultPort:   18444,
		RPCPort:       18443,
		DecimalPlaces: 8,
		SupportsCLTV:  true,
	}
)

// Registry is an immutable name to Params table.
type Registry struct {
	byName map[string]Params
	names  []string
}

// NewRegistry builds a registry from params. Names must be unique and non-empty.
func NewRegistry(params ...Params) (*Registry, error) {
	r := &Registry{byName: make(map[string]Params, len(params))}
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: network name is required", ErrInvalidParams)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate network %q", ErrInvalidParams, p.Name)
		}
		r.byName[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// DefaultRegistry returns a fresh registry of the predefined networks.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BSVMainNet, BSVTestNet, BSVTeraTestNet, BSVRegTest, BCHMainNet, BCHTestNet, BCHRegTest)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the params registered under name.
func (r *Registry) Lookup(name string) (Params, error) {
	p, ok := r.byName[name]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return p, nil
}

// Names returns the registered network names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
