package poker

import (
	"fmt"
	"strings"
	"testing"
)

func mustCards(t *testing.T, hand string) []Card {
	t.Helper()
	cards, err := ParseCards(strings.Fields(hand))
	if err != nil {
		t.Fatal(err)
	}
	return cards
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
