package common

import "math/rand"

// LockedRand satisfies the Rand interfaces of the code generator and the
// unique-value generator using the top-level math/rand functions. Their
// shared source is mutex-protected, so one value can serve every
// concurrent request path.
type LockedRand struct{}

func (LockedRand) Intn(n int) int { return rand.Intn(n) }

func (LockedRand) Int63n(n int64) int64 { return rand.Int63n(n) }
