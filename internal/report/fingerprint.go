package report

import (
	"encoding/hex"
	"fmt"

	"github.com/txaty/go-merkletree"

	"samefiles/internal/hash"
	"samefiles/internal/model"
)

// leaf is one serialized row of the grouping.
type leaf []byte

func (l leaf) Serialize() ([]byte, error) {
	return l, nil
}

// Fingerprint computes a Merkle root over the grouping in row order: one
// leaf per group (its hash and member paths) followed by one leaf per
// unique file. Two engines that went through the same ingests and deletes
// produce the same fingerprint.
func Fingerprint(groups []model.Group, unique []model.Entry) (string, error) {
	blocks := make([]merkletree.DataBlock, 0, len(groups)+len(unique))
	for _, g := range groups {
		data := append([]byte{'G'}, g.Hash[:]...)
		for _, f := range g.Files {
			data = append(data, 0)
			data = append(data, f.Path...)
		}
		blocks = append(blocks, leaf(data))
	}
	for _, f := range unique {
		data := append([]byte{'U'}, f.Hash[:]...)
		data = append(data, 0)
		data = append(data, f.Path...)
		blocks = append(blocks, leaf(data))
	}

	// The tree needs at least two leaves
	switch len(blocks) {
	case 0:
		root, err := hash.XXHashFunc([]byte("empty-tree"))
		if err != nil {
			return "", fmt.Errorf("failed to create empty tree hash: %w", err)
		}
		return hex.EncodeToString(root), nil
	case 1:
		root, err := hash.XXHashFunc(blocks[0].(leaf))
		if err != nil {
			return "", fmt.Errorf("failed to hash single leaf: %w", err)
		}
		return hex.EncodeToString(root), nil
	}

	tree, err := merkletree.New(&merkletree.Config{
		HashFunc: hash.XXHashFunc,
		Mode:     merkletree.ModeTreeBuild,
	}, blocks)
	if err != nil {
		return "", fmt.Errorf("failed to build merkle tree: %w", err)
	}
	return hex.EncodeToString(tree.Root), nil
}
