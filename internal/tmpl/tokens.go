package tmpl

import (
	"sort"
	"strings"
)

// DefaultMarker prefixes every token.
const DefaultMarker = "#SMURF#"

// Token builds the placeholder for name using marker, for example #SMURF#client# or #SMURF#client#BIC#.
func Token(marker, name string, qualifiers ...string) string {
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(name)
	b.WriteString("#")
	for _, q := range qualifiers {
		b.WriteString(q)
		b.WriteString("#")
	}

	return b.String()
}

// Tokens is the working map of one substitution pass. Substitution removes the tokens it uses.
type Tokens struct {
	values map[string]string
}

func NewTokens() *Tokens {
	return &Tokens{values: make(map[string]string)}
}

// TokensFrom copies m into a new working map.
func TokensFrom(m map[string]string) *Tokens {
	t := NewTokens()
	for k, v := range m {
		t.values[k] = v
	}

	return t
}

func (t *Tokens) Set(token, value string) {
	t.values[token] = value
}

func (t *Tokens) Get(token string) (string, bool) {
	v, ok := t.values[token]
	return v, ok
}

func (t *Tokens) Has(token string) bool {
	_, ok := t.values[token]
	return ok
}

func (t *Tokens) Delete(token string) {
	delete(t.values, token)
}

func (t *Tokens) Len() int {
	return len(t.values)
}

func (t *Tokens) Clone() *Tokens {
	return TokensFrom(t.values)
}

// Map returns a copy of the remaining tokens.
func (t *Tokens) Map() map[string]string {
	cp := make(map[string]string, len(t.values))
	for k, v := range t.values {
		cp[k] = v
	}

	return cp
}

// Ordered returns the remaining tokens longest first, then lexically. A qualified token is therefore always tried
// before the bare token it starts with.
func (t *Tokens) Ordered() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}

		return keys[i] < keys[j]
	})

	return keys
}
