package deck

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v4/util/random"
)

// Shuffle permutes cards in place with a Fisher-Yates walk driven by stream.
func Shuffle(cards []int, stream cipher.Stream) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(random.Int(big.NewInt(int64(i+1)), stream).Int64())
		cards[i], cards[j] = cards[j], cards[i]
	}
}
