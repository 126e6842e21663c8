package services

import (
	"math/rand/v2"
	"sync"
)

// RandSource is the slice of *rand.Rand the spawn and quest pickers need.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

// LockedRand shares one *rand.Rand between request goroutines.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewLockedRand(src rand.Source) *LockedRand {
	return &LockedRand{r: rand.New(src)}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
