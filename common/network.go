package common

import "fmt"

// Network is the L1 network the rollup settles on
type Network string

const (
	// NetworkMainnet is the main network
	NetworkMainnet Network = "mainnet"
	// NetworkTestnet is the public test network
	NetworkTestnet Network = "testnet"
	// NetworkRinkeby is the rinkeby test network
	NetworkRinkeby Network = "rinkeby"
	// NetworkRopsten is the ropsten test network
	NetworkRopsten Network = "ropsten"
	// NetworkLocalhost is a self hosted network
	NetworkLocalhost Network = "localhost"
	// NetworkTest is used by tests
	NetworkTest Network = "test"
)

// ParseNetwork returns the Network named s
func ParseNetwork(s string) (Network, error) {
	switch n := Network(s); n {
	case NetworkMainnet, NetworkTestnet, NetworkRinkeby, NetworkRopsten,
		NetworkLocalhost, NetworkTest:
		return n, nil
	default:
		return "", Wrap(fmt.Errorf("unknown network %q", s))
	}
}

// ChainID returns the L1 chain id of the network. The test network has no
// chain id and panics.
func (n Network) ChainID() uint64 {
	switch n {
	case NetworkMainnet:
		return 201018
	case NetworkTestnet:
		return 201030
	case NetworkRopsten:
		return 3
	case NetworkRinkeby:
		return 4
	case NetworkLocalhost:
		return 9
	default:
		panic(fmt.Sprintf("no chain id for network %q", string(n)))
	}
}
