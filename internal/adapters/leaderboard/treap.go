package leaderboard

import (
	"math/rand/v2"

	"github.com/okian/buzz/internal/domain/model"
)

// Treap ordered by score DESC, then id DESC, which is the order Redis
// uses for ZREVRANGE. In-order traversal yields the leaderboard from best
// to worst; subtree sizes give O(log n) offset access.

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// before reports whether (aScore, aID) ranks ahead of (bScore, bID).
func before(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID > bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1}
	}
	if before(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case before(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// split returns the first k nodes in rank order and the rest.
func split(n *node, k int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if nsize(n.left) >= k {
		l, r := split(n.left, k)
		n.left = r
		fix(n)
		return l, n
	}
	l, r := split(n.right, k-nsize(n.left)-1)
	n.right = l
	fix(n)
	return n, r
}

// collect appends up to limit members starting at rank offset.
func collect(n *node, offset, limit int, out *[]model.RankedMember) {
	if n == nil || len(*out) >= limit {
		return
	}
	left := nsize(n.left)
	if offset < left {
		collect(n.left, offset, limit, out)
	}
	if len(*out) < limit && offset <= left {
		*out = append(*out, model.RankedMember{TweetID: n.id, Score: n.score})
	}
	if len(*out) < limit {
		collect(n.right, max(0, offset-left-1), limit, out)
	}
}

// walk visits every node in rank order.
func walk(n *node, fn func(*node)) {
	if n == nil {
		return
	}
	walk(n.left, fn)
	fn(n)
	walk(n.right, fn)
}
