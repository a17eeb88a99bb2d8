// Package filter implements the dependent filter chain: an ordered set
// of slots, each choosing a column and a value, where every slot's value
// options are computed against the table as narrowed by the slots before
// it.
package filter

import (
	"fmt"
	"sort"

	"github.com/sespe/emendas-bi/internal/dataset"
)

// All is the value sentinel meaning "impose no constraint for this slot".
const All = "(Todos)"

// None is the column sentinel that deactivates an optional slot.
const None = "(Nenhum)"

// Slot is one position in the chain. An empty Column means the slot is
// inactive; slot 1 always has a column.
type Slot struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Active reports whether the slot constrains anything at all.
func (s Slot) Active() bool { return s.Column != "" }

// Chain holds the full selection state for one session. It is not safe
// for concurrent use on its own; callers hold the owning session's lock
// across every read and mutation.
type Chain struct {
	candidates []string
	slots      []Slot
	generation int
}

// NewChain builds a chain for the profile's candidate columns, keeping
// only those present in the table. Slot 1 defaults to the first
// candidate with no constraint; the optional slots start inactive.
func NewChain(profile dataset.Profile, table *dataset.Table) *Chain {
	var candidates []string
	for _, col := range profile.FilterCandidates {
		if table.HasColumn(col) {
			candidates = append(candidates, col)
		}
	}

	c := &Chain{
		candidates: candidates,
		slots:      make([]Slot, profile.MaxSlots),
	}
	c.applyDefaults()
	return c
}

func (c *Chain) applyDefaults() {
	for i := range c.slots {
		c.slots[i] = Slot{Value: All}
	}
	if len(c.candidates) > 0 && len(c.slots) > 0 {
		c.slots[0].Column = c.candidates[0]
	}
}

// Generation is bumped on every Reset so clients can discard stale
// widget state instead of reusing it.
func (c *Chain) Generation() int { return c.generation }

// Slots returns a copy of the current selection.
func (c *Chain) Slots() []Slot {
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// CandidateColumns returns the columns slot i may choose: the fixed
// candidate list minus the columns taken by slots before i.
func (c *Chain) CandidateColumns(i int) []string {
	var out []string
	for _, col := range c.candidates {
		taken := false
		for j := 0; j < i && j < len(c.slots); j++ {
			if c.slots[j].Column == col {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, col)
		}
	}
	return out
}

// ValueDomain returns the options for slot i's value picker: All
// followed by the sorted distinct non-null values of the slot's column
// in the table as filtered by the slots before i. Inactive slots have no
// domain.
func (c *Chain) ValueDomain(i int, table *dataset.Table) []string {
	if i < 0 || i >= len(c.slots) || !c.slots[i].Active() {
		return nil
	}
	narrowed := c.applyPrefix(table, i)
	col := c.slots[i].Column

	seen := map[string]struct{}{}
	for _, rec := range narrowed.Records {
		if v, ok := rec.Field(col); ok {
			seen[v] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	return append([]string{All}, values...)
}

// SetColumn assigns a column to slot i and resets its value to All.
// Slot 1 must always have a column; optional slots accept None (or "")
// to deactivate. Later slots are revalidated against the change.
func (c *Chain) SetColumn(i int, column string, table *dataset.Table) error {
	if i < 0 || i >= len(c.slots) {
		return fmt.Errorf("no filter slot %d", i+1)
	}
	if column == None {
		column = ""
	}
	if column == "" {
		if i == 0 {
			return fmt.Errorf("the first filter slot cannot be deactivated")
		}
		c.slots[i] = Slot{Value: All}
		c.revalidate(table)
		return nil
	}

	allowed := false
	for _, cand := range c.CandidateColumns(i) {
		if cand == column {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("column %q is not available for filter slot %d", column, i+1)
	}

	c.slots[i] = Slot{Column: column, Value: All}
	c.revalidate(table)
	return nil
}

// SetValue assigns a value to the active slot i. The value must be All
// or one of the slot's current options. Later slots are revalidated
// because their domains just narrowed or widened.
func (c *Chain) SetValue(i int, value string, table *dataset.Table) error {
	if i < 0 || i >= len(c.slots) {
		return fmt.Errorf("no filter slot %d", i+1)
	}
	if !c.slots[i].Active() {
		return fmt.Errorf("filter slot %d has no column selected", i+1)
	}
	if value != All {
		found := false
		for _, v := range c.ValueDomain(i, table) {
			if v == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("value %q is not available for filter slot %d", value, i+1)
		}
	}
	c.slots[i].Value = value
	c.revalidate(table)
	return nil
}

// Reset restores every slot to its default in one step and bumps the
// generation token.
func (c *Chain) Reset() {
	c.applyDefaults()
	c.generation++
}

// revalidate repairs slots left inconsistent by an upstream change:
// a column collision deactivates the later slot, and a value that left
// its domain falls back to All. Slots are repaired in order so each
// repair feeds the next slot's domain.
func (c *Chain) revalidate(table *dataset.Table) {
	for i := 1; i < len(c.slots); i++ {
		if !c.slots[i].Active() {
			continue
		}
		collision := false
		for j := 0; j < i; j++ {
			if c.slots[j].Column == c.slots[i].Column {
				collision = true
				break
			}
		}
		if collision {
			c.slots[i] = Slot{Value: All}
			continue
		}
		if c.slots[i].Value == All {
			continue
		}
		inDomain := false
		for _, v := range c.ValueDomain(i, table) {
			if v == c.slots[i].Value {
				inDomain = true
				break
			}
		}
		if !inDomain {
			c.slots[i].Value = All
		}
	}
}

// Apply narrows the table by every active slot, left to right. The final
// row set is the AND of the slot predicates; order only matters for the
// option domains, not for the result.
func (c *Chain) Apply(table *dataset.Table) *dataset.Table {
	return c.applyPrefix(table, len(c.slots))
}

// applyPrefix narrows the table by the active slots before position n.
func (c *Chain) applyPrefix(table *dataset.Table, n int) *dataset.Table {
	out := table
	for i := 0; i < n && i < len(c.slots); i++ {
		slot := c.slots[i]
		if !slot.Active() || slot.Value == All {
			continue
		}
		narrowed := &dataset.Table{Columns: out.Columns}
		for _, rec := range out.Records {
			if v, ok := rec.Field(slot.Column); ok && v == slot.Value {
				narrowed.Records = append(narrowed.Records, rec)
			}
		}
		out = narrowed
	}
	if out == table {
		// Callers may mutate Records ordering downstream; hand back a
		// shallow copy so the cached table stays intact.
		out = &dataset.Table{Columns: table.Columns, Records: append([]*dataset.Record(nil), table.Records...)}
	}
	return out
}
