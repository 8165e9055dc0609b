package engine

import (
	"math/rand"
	"time"
)

// defaultSource seeds a dedicated stream per session so battles don't
// share the global generator.
func defaultSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
