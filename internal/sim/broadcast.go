package sim

import (
	"fmt"
)

// Broadcast declares that rows of Cast are merged onto rows of Onto. Each
// side is keyed either by a column (CastOn, OntoOn) or by the table index
// (CastIndex, OntoIndex), never both.
type Broadcast struct {
	Cast      string
	Onto      string
	CastOn    string
	OntoOn    string
	CastIndex bool
	OntoIndex bool
}

// BroadcastKey identifies a broadcast.
type BroadcastKey struct {
	Cast string
	Onto string
}

func (k BroadcastKey) String() string { return k.Cast + " -> " + k.Onto }

// Key returns the (cast, onto) pair.
func (b Broadcast) Key() BroadcastKey { return BroadcastKey{Cast: b.Cast, Onto: b.Onto} }

// Validate checks that both tables are named and each side has exactly one key.
func (b Broadcast) Validate() error {
	switch {
	case b.Cast == "" || b.Onto == "":
		return fmt.Errorf("%w: cast and onto tables are required", ErrInvalidBroadcast)
	case b.Cast == b.Onto:
		return fmt.Errorf("%w: table %q cannot broadcast onto itself", ErrInvalidBroadcast, b.Cast)
	case (b.CastOn == "") == !b.CastIndex:
		return fmt.Errorf("%w: %s: cast side needs exactly one of a key column or the index", ErrInvalidBroadcast, b.Key())
	case (b.OntoOn == "") == !b.OntoIndex:
		return fmt.Errorf("%w: %s: onto side needs exactly one of a key column or the index", ErrInvalidBroadcast, b.Key())
	}
	return nil
}

// AddBroadcast registers a broadcast, replacing any earlier one for the
// same (cast, onto) pair.
func (s *Session) AddBroadcast(b Broadcast) error {
	if s.closed {
		return ErrClosed
	}
	if err := b.Validate(); err != nil {
		return err
	}
	s.broadcasts.Put(b.Key(), b)
	s.logger.Debug("registered broadcast", "cast", b.Cast, "onto", b.Onto)
	return nil
}

// Broadcast returns the registered broadcast from cast onto onto.
func (s *Session) Broadcast(cast, onto string) (Broadcast, error) {
	key := BroadcastKey{Cast: cast, Onto: onto}
	b, ok := s.broadcasts.Get(key)
	if !ok {
		return Broadcast{}, &NotFoundError{Kind: "broadcast", Name: key.String()}
	}
	return b, nil
}
