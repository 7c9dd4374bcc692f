package sampler

import "github.com/AshishBagdane/go-parallel-tuner/pkg/api"

// Prefixed replays a buffered prefix and then delegates to the remainder of
// the original single-pass source. It is how a Lazy source survives sampling:
// the consumer iterating the Prefixed source sees every original item exactly
// once, in order, and the original iterator is never re-consumed.
type Prefixed struct {
	prefix []any
	rest   api.Lazy
	pos    int
}

// NewPrefixed builds the composed source from the consumed prefix and the
// untouched remainder.
func NewPrefixed(prefix []any, rest api.Lazy) *Prefixed {
	return &Prefixed{prefix: prefix, rest: rest}
}

// SinglePass reports true; the composed source inherits the remainder's
// single-pass nature.
func (p *Prefixed) SinglePass() bool {
	return true
}

// Next yields buffered items first, then delegates.
func (p *Prefixed) Next() (any, bool) {
	if p.pos < len(p.prefix) {
		item := p.prefix[p.pos]
		p.pos++
		return item, true
	}
	return p.rest.Next()
}
