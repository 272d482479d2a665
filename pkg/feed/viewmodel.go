package feed

import (
	"fmt"

	"socialfeed/pkg/broadcast"
	"socialfeed/pkg/posts"
)

// Session identifies the user looking at the feed. It is passed to every
// operation that renders per-user state.
type Session struct {
	Username string
}

type ChangeKind int

const (
	Ignored ChangeKind = iota
	Inserted
	Replaced
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Removed:
		return "removed"
	default:
		return "ignored"
	}
}

// Change tells the renderer which entry to redraw. Index is the entry's
// position before a removal and after an insert or replace.
type Change struct {
	Kind  ChangeKind
	ID    string
	Index int
	Post  *posts.Post
}

// ViewModel is the client's keyed list of posts. It is not safe for
// concurrent use: events are applied one at a time in arrival order.
//
// Updates are last-writer-wins by arrival, so a delayed event can regress a
// post until the next event or resync.
type ViewModel struct {
	order []string
	posts map[string]*posts.Post
}

func NewViewModel() *ViewModel {
	return &ViewModel{posts: map[string]*posts.Post{}}
}

// Load replaces the whole list with a fresh listing, keeping its order.
func (vm *ViewModel) Load(list []*posts.Post) {
	vm.order = make([]string, 0, len(list))
	vm.posts = make(map[string]*posts.Post, len(list))

	for _, p := range list {
		if _, dup := vm.posts[p.ID]; dup {
			continue
		}
		vm.order = append(vm.order, p.ID)
		vm.posts[p.ID] = p
	}
}

func (vm *ViewModel) Reconcile(e *broadcast.Event) (Change, error) {
	switch e.Kind {
	case broadcast.PostCreated, broadcast.PostUpdated:
		p := &posts.Post{}
		if err := e.Decode(p); err != nil {
			return Change{}, fmt.Errorf("bad %s payload: %w", e.Kind, err)
		}
		if p.ID == "" {
			return Change{}, fmt.Errorf("%s payload without id", e.Kind)
		}
		return vm.upsert(p), nil

	case broadcast.PostDeleted:
		d := &broadcast.Deleted{}
		if err := e.Decode(d); err != nil {
			return Change{}, fmt.Errorf("bad %s payload: %w", e.Kind, err)
		}
		return vm.remove(d.ID), nil

	default:
		return Change{}, fmt.Errorf("unknown event %q", e.Kind)
	}
}

func (vm *ViewModel) upsert(p *posts.Post) Change {
	if _, ok := vm.posts[p.ID]; ok {
		vm.posts[p.ID] = p
		return Change{Kind: Replaced, ID: p.ID, Index: vm.index(p.ID), Post: p}
	}

	vm.order = append([]string{p.ID}, vm.order...)
	vm.posts[p.ID] = p
	return Change{Kind: Inserted, ID: p.ID, Index: 0, Post: p}
}

func (vm *ViewModel) remove(id string) Change {
	if _, ok := vm.posts[id]; !ok {
		return Change{Kind: Ignored, ID: id, Index: -1}
	}

	i := vm.index(id)
	vm.order = append(vm.order[:i], vm.order[i+1:]...)
	delete(vm.posts, id)
	return Change{Kind: Removed, ID: id, Index: i}
}

func (vm *ViewModel) index(id string) int {
	for i, v := range vm.order {
		if v == id {
			return i
		}
	}
	return -1
}

// Posts returns the entries in display order.
func (vm *ViewModel) Posts() []*posts.Post {
	res := make([]*posts.Post, 0, len(vm.order))
	for _, id := range vm.order {
		res = append(res, vm.posts[id])
	}
	return res
}

func (vm *ViewModel) Get(id string) (*posts.Post, bool) {
	p, ok := vm.posts[id]
	return p, ok
}

func (vm *ViewModel) Len() int {
	return len(vm.order)
}

// Highlighted reports which reaction button is active for the session user.
// It reads the post document only.
func Highlighted(p *posts.Post, s Session) (posts.Action, bool) {
	if s.Username == "" {
		return "", false
	}
	return p.ReactionOf(s.Username)
}
