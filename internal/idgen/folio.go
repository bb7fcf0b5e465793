package idgen

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// FolioGenerator hands out human readable settlement folios backed by snowflake ids, so
// several service instances never collide as long as their node ids differ.
type FolioGenerator struct {
	node   *snowflake.Node
	prefix string
}

func NewFolioGenerator(nodeID int64, prefix string) (*FolioGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}
	return &FolioGenerator{node: node, prefix: strings.ToUpper(strings.TrimSpace(prefix))}, nil
}

func (g *FolioGenerator) NextFolio() string {
	id := g.node.Generate().Base36()
	if g.prefix == "" {
		return strings.ToUpper(id)
	}
	return g.prefix + "-" + strings.ToUpper(id)
}
