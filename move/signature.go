package move

import "strings"

// Signature is the canonical, comparable key of a proposed move. Two proposals
// with equal signatures are the same vote.
type Signature string

// NoSignature is the signature of an action that carries no move.
const NoSignature Signature = "none"

// Encode canonicalizes an action into its signature. Only the move kind and the
// move's identifying parameters take part; the rationale is dropped.
func Encode(a Action) Signature {
	return signatureOf(a.Move)
}

func signatureOf(m Move) Signature {
	if m == nil {
		return NoSignature
	}
	var b strings.Builder
	b.WriteString(string(m.Kind()))
	for _, p := range m.params() {
		b.WriteByte('|')
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(escape(p.value))
	}
	return Signature(b.String())
}

var paramEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `=`, `\=`)

func escape(s string) string {
	return paramEscaper.Replace(s)
}
