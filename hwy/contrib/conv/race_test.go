//go:build race

package conv

// The race detector allocates on its own, so allocation counts are skipped.
const raceEnabled = true
