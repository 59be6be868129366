package activity

import (
	"math/rand"
	"sync"
)

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// passes reports whether a roll in [0,1) clears a gate that opens with
// probability chance. chance <= 0 never passes; chance >= 1 always does.
func passes(roll, chance float64) bool {
	return roll < chance
}
