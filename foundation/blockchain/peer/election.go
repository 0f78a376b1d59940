package peer

import (
	"errors"
	"fmt"
)

// ErrNoNodes is returned when an election is run over an empty node list.
var ErrNoNodes = errors.New("no nodes to elect from")

// ErrUnknownMiner is returned when the previous miner isn't in the node list.
var ErrUnknownMiner = errors.New("miner is not a known node")

// FirstMiner returns the minimum node identity, which mines block 1.
func FirstMiner(nodes []string) (string, error) {
	if len(nodes) == 0 {
		return "", ErrNoNodes
	}

	first := nodes[0]
	for _, node := range nodes[1:] {
		if node < first {
			first = node
		}
	}

	return first, nil
}

// NextMiner returns the node that follows the previous miner in the node
// list, wrapping around at the end. The result only depends on the inputs.
func NextMiner(previous string, nodes []string) (string, error) {
	if len(nodes) == 0 {
		return "", ErrNoNodes
	}

	for i, node := range nodes {
		if node == previous {
			return nodes[(i+1)%len(nodes)], nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownMiner, previous)
}
