package poker

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// Suits, in deck order.
const (
	Club uint8 = iota
	Diamond
	Heart
	Spade
)

// Face ranks. Ace is 1; it plays high at showdown.
const (
	Ace   uint8 = 1
	Jack  uint8 = 11
	Queen uint8 = 12
	King  uint8 = 13
)

// FaceDown renders a card whose face is unknown.
const FaceDown = "▓"

const (
	rankCodes   = "A23456789TJQK"
	suitCodes   = "cdhs"
	suitSymbols = "♣♦♥♠"
	deckSize    = 52
)

// Card is a playing card. The zero Card is face down.
type Card struct {
	suit uint8
	rank uint8
}

// NewCard validates suit (Club..Spade) and rank (Ace..King).
func NewCard(suit uint8, rank uint8) (Card, error) {
	if suit > Spade || rank < Ace || rank > King {
		return Card{}, fmt.Errorf("no card with suit %d and rank %d", suit, rank)
	}
	return Card{suit: suit, rank: rank}, nil
}

func (c Card) Suit() uint8 { return c.suit }

func (c Card) Rank() uint8 { return c.rank }

// Code is the two-letter form, rank then suit: "As", "Td", "7c". Codes are
// the items offered in draw decisions.
func (c Card) Code() string {
	if c.rank == 0 || c.suit > Spade {
		return "??"
	}
	return string(rankCodes[c.rank-1]) + string(suitCodes[c.suit])
}

// ParseCard is the inverse of Code; letters are case-insensitive.
func ParseCard(code string) (Card, error) {
	if len(code) != 2 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	r := strings.IndexByte(rankCodes, strings.ToUpper(code[:1])[0])
	s := strings.IndexByte(suitCodes, strings.ToLower(code[1:])[0])
	if r < 0 || s < 0 {
		return Card{}, fmt.Errorf("invalid card code %q", code)
	}
	return NewCard(uint8(s), uint8(r+1))
}

func ParseCards(codes []string) ([]Card, error) {
	cards := make([]Card, len(codes))
	for i, code := range codes {
		c, err := ParseCard(code)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

func Codes(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Code()
	}
	return out
}

// String renders the rank and a coloured suit symbol for the terminal.
func (c Card) String() string {
	if c.rank == 0 || c.suit > Spade {
		return FaceDown
	}
	rank := string(rankCodes[c.rank-1])
	if c.rank == 10 {
		rank = "10"
	}
	symbol := []rune(suitSymbols)[c.suit]
	if c.suit == Diamond || c.suit == Heart {
		return rank + pterm.LightRed(string(symbol))
	}
	return rank + pterm.Black(string(symbol))
}

// IntToCard maps 1..52 to a card, suit-major: 1-13 are the clubs from ace
// to king, then diamonds, hearts and spades. The deck shuffles these numbers.
func IntToCard(n int) (Card, error) {
	if n < 1 || n > deckSize {
		return Card{}, fmt.Errorf("card number %d out of range 1-%d", n, deckSize)
	}
	return NewCard(uint8((n-1)/13), uint8((n-1)%13+1))
}

// CardToInt is the inverse of IntToCard.
func CardToInt(c Card) int {
	return int(c.suit)*13 + int(c.rank)
}
