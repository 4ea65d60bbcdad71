// Package deck provides the 52-card deck used by the poker table. Shuffles are
// driven by a kyber random stream, which can be seeded for reproducible games.
package deck
