package id

// Generator hands out unique ids as numbers or as their decimal strings.
type Generator interface {
	Number() uint64
	Str() string
}

var _ Generator = (*defaultID)(nil)

type defaultID struct {
	number func() uint64
	str    func() string
}

func (id *defaultID) Number() uint64 { return id.number() }
func (id *defaultID) Str() string    { return id.str() }
