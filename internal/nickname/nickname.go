// Package nickname generates default public handles for users who sign up
// without choosing one.
package nickname

import (
	"fmt"
	"math/rand/v2"
)

var adjectives = []string{
	"clever", "brave", "calm", "eager", "fancy", "gentle", "happy", "jolly",
	"kind", "lively", "merry", "nimble", "proud", "quick", "silly", "witty",
}

var animals = []string{
	"panda", "tiger", "eagle", "otter", "falcon", "koala", "lynx", "badger",
	"heron", "beaver", "dolphin", "fox", "wolf", "owl", "yak", "zebra",
}

// Generate returns a handle like "brave_otter_42". It always passes the
// nickname rules: starts with a letter, single underscores, at most 30 chars.
func Generate() string {
	return fmt.Sprintf("%s_%s_%d",
		adjectives[rand.IntN(len(adjectives))],
		animals[rand.IntN(len(animals))],
		rand.IntN(1000),
	)
}
