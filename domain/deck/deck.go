package deck

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"

	"go.dedis.ch/kyber/v4/util/random"
)

// Size is the number of cards in a standard deck. Cards are numbered 1..Size.
const Size = 52

// Deck is a shuffled stack of card numbers. It is not safe for concurrent use;
// the owning table serializes access.
type Deck struct {
	stream cipher.Stream
	cards  []int
	next   int
}

// New returns a full deck shuffled from stream.
func New(stream cipher.Stream) *Deck {
	d := &Deck{stream: stream, cards: make([]int, Size)}
	for i := range d.cards {
		d.cards[i] = i + 1
	}
	Shuffle(d.cards, stream)
	return d
}

// NewRandom returns a deck shuffled from the system entropy source.
func NewRandom() *Deck {
	return New(random.New())
}

// NewSeeded returns a deck whose order, and the order of every reshuffle,
// depends only on seed.
func NewSeeded(seed int64) *Deck {
	return New(SeededStream(seed))
}

// SeededStream returns a deterministic random stream for seed.
func SeededStream(seed int64) cipher.Stream {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	return random.New(mrand.NewChaCha8(sha256.Sum256(buf[:])))
}

// Remaining returns how many cards can still be drawn.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Draw deals n cards off the top.
func (d *Deck) Draw(n int) ([]int, error) {
	if n < 0 || n > d.Remaining() {
		return nil, fmt.Errorf("cannot draw %d cards, %d left", n, d.Remaining())
	}
	out := append([]int(nil), d.cards[d.next:d.next+n]...)
	d.next += n
	return out, nil
}

// Refill puts mucked cards back under the undealt ones and reshuffles the
// undealt part of the deck.
func (d *Deck) Refill(cards []int) {
	rest := append(d.cards[d.next:len(d.cards):len(d.cards)], cards...)
	Shuffle(rest, d.stream)
	d.cards = rest
	d.next = 0
}
