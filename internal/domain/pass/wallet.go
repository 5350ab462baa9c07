package pass

import (
	"fmt"
	"sort"
)

// Wallet is one user's pass collection. At most one pass is primary and no
// two passes share a barcode.
type Wallet struct {
	passes []Pass
	loaded map[string]Pass
}

// NewWallet orders passes oldest first. If the stored data carries more than
// one primary, only the oldest keeps the flag; Changes reports the fix.
func NewWallet(passes []Pass) *Wallet {
	w := &Wallet{
		passes: append([]Pass(nil), passes...),
		loaded: make(map[string]Pass, len(passes)),
	}
	for _, p := range passes {
		w.loaded[p.ID] = p
	}
	sortPasses(w.passes)

	seen := false
	for i := range w.passes {
		if w.passes[i].IsPrimary {
			if seen {
				w.passes[i].IsPrimary = false
			}
			seen = true
		}
	}
	return w
}

func sortPasses(ps []Pass) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}

func (w *Wallet) Passes() []Pass {
	return append([]Pass{}, w.passes...)
}

func (w *Wallet) Len() int { return len(w.passes) }

func (w *Wallet) Primary() (Pass, bool) {
	for _, p := range w.passes {
		if p.IsPrimary {
			return p, true
		}
	}
	return Pass{}, false
}

func (w *Wallet) Get(id string) (Pass, bool) {
	i := w.index(id)
	if i < 0 {
		return Pass{}, false
	}
	return w.passes[i], true
}

func (w *Wallet) index(id string) int {
	for i, p := range w.passes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Add appends p. The first pass in an empty wallet becomes primary; a pass
// added with IsPrimary set takes the flag from the current primary.
func (w *Wallet) Add(p Pass) error {
	if p.ID == "" {
		return fmt.Errorf("%w: pass id is required", ErrBadRequest)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if w.index(p.ID) >= 0 {
		return fmt.Errorf("%w: pass %s already exists", ErrDuplicatePass, p.ID)
	}
	key := p.Barcode.Key()
	for _, existing := range w.passes {
		if existing.Barcode.Key() == key {
			return fmt.Errorf("%w: barcode already saved as %q", ErrDuplicatePass, existing.Title)
		}
	}

	makePrimary := p.IsPrimary || len(w.passes) == 0
	p.IsPrimary = false
	w.passes = append(w.passes, p)
	sortPasses(w.passes)
	if makePrimary {
		w.setPrimary(p.ID)
	}
	return nil
}

// SetPrimary leaves exactly one primary pass: id.
func (w *Wallet) SetPrimary(id string) error {
	if w.index(id) < 0 {
		return fmt.Errorf("%w: pass %s", ErrNotFound, id)
	}
	w.setPrimary(id)
	return nil
}

func (w *Wallet) setPrimary(id string) {
	for i := range w.passes {
		w.passes[i].IsPrimary = w.passes[i].ID == id
	}
}

// Remove deletes id. When the primary goes, the oldest remaining pass is
// promoted.
func (w *Wallet) Remove(id string) (Pass, error) {
	i := w.index(id)
	if i < 0 {
		return Pass{}, fmt.Errorf("%w: pass %s", ErrNotFound, id)
	}
	removed := w.passes[i]
	w.passes = append(w.passes[:i:i], w.passes[i+1:]...)
	if removed.IsPrimary && len(w.passes) > 0 {
		w.setPrimary(w.passes[0].ID)
	}
	return removed, nil
}

// Changes are the writes that turn the loaded collection into the current
// one.
type Changes struct {
	Put    []Pass
	Delete []string
}

func (c Changes) Empty() bool { return len(c.Put) == 0 && len(c.Delete) == 0 }

func (w *Wallet) Changes() Changes {
	var c Changes
	current := make(map[string]bool, len(w.passes))
	for _, p := range w.passes {
		current[p.ID] = true
		if before, ok := w.loaded[p.ID]; !ok || !samePass(before, p) {
			c.Put = append(c.Put, p)
		}
	}
	for id := range w.loaded {
		if !current[id] {
			c.Delete = append(c.Delete, id)
		}
	}
	sort.Strings(c.Delete)
	return c
}

func samePass(a, b Pass) bool {
	return a.Title == b.Title &&
		a.IssueDate.Equal(b.IssueDate) &&
		a.Barcode == b.Barcode &&
		a.IsPrimary == b.IsPrimary &&
		a.CreatedAt.Equal(b.CreatedAt)
}
