package drop

import (
	"bytes"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Allow-list eligibility is committed as a Merkle root over leaves binding a
// minter address to one exact stage configuration. The proof verifier uses
// sorted-pair hashing so proofs carry no left/right flags.

// AllowListLeaf computes the leaf hash for a minter and the stage fields they
// are entitled to mint under. Any change to any field produces a different
// leaf, which is what stops a minter from reusing a valid proof against more
// favourable stage parameters.
func AllowListLeaf(minter [20]byte, cfg *StageConfig) [32]byte {
	payload := make([]byte, 0, 20+stageConfigEncodedLen)
	payload = append(payload, minter[:]...)
	payload = append(payload, encodeStageConfig(cfg)...)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(payload))
	return leaf
}

// HashPair combines two nodes in sorted order.
func HashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// VerifyProof walks the proof from leaf to root and reports whether it
// resolves to the expected root. It is a pure function with no side effects.
func VerifyProof(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	node := leaf
	for _, sibling := range proof {
		node = HashPair(node, sibling)
	}
	return node == root
}

// ComputeRoot builds the root over the supplied leaves, duplicating the last
// node of odd levels. Operators use it to publish a root; tests use it to
// generate fixtures.
func ComputeRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, HashPair(level[i], level[i]))
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// BuildProof returns the sibling path for the leaf at the given index,
// mirroring ComputeRoot's tree shape.
func BuildProof(leaves [][32]byte, index int) [][32]byte {
	if index < 0 || index >= len(leaves) {
		return nil
	}
	proof := make([][32]byte, 0)
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	pos := index
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			sibling = pos
		}
		proof = append(proof, level[sibling])
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, HashPair(level[i], level[i]))
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		level = next
		pos /= 2
	}
	return proof
}
