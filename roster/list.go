// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package roster

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/adhearsion/blather-sub001/jid"
	"github.com/adhearsion/blather-sub001/mux"
	"github.com/adhearsion/blather-sub001/stanza"
)

// List is an in-memory copy of the roster.
// It is filled by Fetch and kept current by roster pushes and by the presence
// of its contacts once registered with Handle.
// A List is safe for concurrent use.
type List struct {
	mu    sync.RWMutex
	ver   string
	items map[string]*entry
	seq   uint64
}

type entry struct {
	item     Item
	presence map[string]status
}

type status struct {
	s        stanza.Stanza
	priority int
	seq      uint64
}

// NewList returns an empty roster list.
func NewList() *List {
	return &List{items: make(map[string]*entry)}
}

func key(j jid.JID) string {
	return j.Bare().String()
}

// Fetch requests the roster and replaces the contents of l with it.
func (l *List) Fetch(ctx context.Context, s Sender) error {
	r, err := Fetch(ctx, s)
	if err != nil {
		return err
	}
	l.Replace(r)
	return nil
}

// Replace sets the contents of l to r.
// Presence already recorded for contacts that remain in the roster is kept.
func (l *List) Replace(r Roster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make(map[string]*entry, len(r.Items))
	for _, item := range r.Items {
		e := &entry{item: item}
		if old, ok := l.items[key(item.JID)]; ok {
			e.presence = old.presence
		}
		items[key(item.JID)] = e
	}
	l.items = items
	l.ver = r.Ver
}

// Update applies a pushed item.
// Items with the subscription "remove" are deleted.
func (l *List) Update(item Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(item.JID)
	if item.Subscription == "remove" {
		delete(l.items, k)
		return
	}
	if e, ok := l.items[k]; ok {
		e.item = item
		return
	}
	l.items[k] = &entry{item: item}
}

// Ver returns the roster version of the last fetch.
func (l *List) Ver() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ver
}

// Len returns the number of contacts in the list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Item returns the contact with the bare address of j.
func (l *List) Item(j jid.JID) (Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.items[key(j)]
	if !ok {
		return Item{}, false
	}
	return e.item, true
}

// Items returns every contact ordered by address.
func (l *List) Items() []Item {
	l.mu.RLock()
	out := make([]Item, 0, len(l.items))
	for _, e := range l.items {
		out = append(out, e.item)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].JID) < key(out[j].JID)
	})
	return out
}

// Group returns the contacts in the named group ordered by address.
func (l *List) Group(name string) []Item {
	var out []Item
	for _, item := range l.Items() {
		for _, g := range item.Group {
			if g == name {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// UpdatePresence records p as the current presence of the resource that sent
// it.
// Unavailable presence forgets the resource.
// Presence of other types and presence from addresses that are not in the
// roster are ignored.
// It reports whether the list changed.
func (l *List) UpdatePresence(p stanza.Stanza) bool {
	if p.Kind() != stanza.KindPresence {
		return false
	}
	typ := stanza.PresenceType(p.Type())
	if typ != stanza.AvailablePresence && typ != stanza.UnavailablePresence {
		return false
	}
	from := p.From()

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[key(from)]
	if !ok {
		return false
	}
	res := from.Resourcepart()
	if typ == stanza.UnavailablePresence {
		if _, ok := e.presence[res]; !ok {
			return false
		}
		delete(e.presence, res)
		return true
	}
	if e.presence == nil {
		e.presence = make(map[string]status)
	}
	l.seq++
	e.presence[res] = status{s: p, priority: priority(p), seq: l.seq}
	return true
}

func priority(p stanza.Stanza) int {
	el := p.Element().FirstChild("", "priority")
	if el == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(el.Text()))
	if err != nil {
		return 0
	}
	return n
}

// Presence returns the current presence of j.
// If j is a full address the presence of that resource is returned, otherwise
// the presence of the resource with the highest priority, preferring the most
// recent on ties.
func (l *List) Presence(j jid.JID) (stanza.Stanza, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.items[key(j)]
	if !ok {
		return stanza.Stanza{}, false
	}
	if !j.IsBare() {
		st, ok := e.presence[j.Resourcepart()]
		return st.s, ok
	}
	var best status
	var found bool
	for _, st := range e.presence {
		if !found || st.priority > best.priority || (st.priority == best.priority && st.seq > best.seq) {
			best, found = st, true
		}
	}
	return best.s, found
}

// Resources returns the full addresses of the available resources of j,
// sorted.
func (l *List) Resources(j jid.JID) []jid.JID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.items[key(j)]
	if !ok {
		return nil
	}
	out := make([]jid.JID, 0, len(e.presence))
	for _, st := range e.presence {
		out = append(out, st.s.From())
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].String() < out[b].String()
	})
	return out
}

// Handle registers handlers on m that keep l current.
// Roster pushes are handled as by the package level Handle, and presence from
// contacts is recorded with UpdatePresence.
// Neither handler halts dispatch.
func (l *List) Handle(m *mux.Mux, w mux.Writer, self func() jid.JID) []*mux.Registration {
	push := Handle(m, w, self, l.Update)
	presence := m.HandleFunc(mux.Presence(stanza.AvailablePresence), 0, func(s stanza.Stanza) error {
		l.UpdatePresence(s)
		return nil
	})
	return []*mux.Registration{push, presence}
}
