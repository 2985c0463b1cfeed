package methodology

import "sync/atomic"

// Holder publishes the active methodology parameters to concurrent readers. Swaps are atomic so a
// calculation always sees one consistent edition.
type Holder struct {
	current atomic.Pointer[Params]
}

func NewHolder(p Params) (*Holder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	h := &Holder{}
	h.current.Store(&p)
	return h, nil
}

func (h *Holder) Current() Params {
	return *h.current.Load()
}

// Swap installs p if it validates, returning the previous version string.
func (h *Holder) Swap(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	prev := h.current.Swap(&p)
	return prev.Version, nil
}
