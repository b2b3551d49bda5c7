package capture

// ring is a fixed-size circular array of profiles.
//
// The ring is empty when read == write, so at most len(slots)-1 profiles are
// unread at any time. Writing into a full ring advances read as well, dropping
// the oldest unread profile.
//
//	Capacity 4, after push a, b, c:  [a, b, c, _]  read=0, write=3  (full)
//	push d:                           [_, b, c, d]  read=1, write=0  (a dropped)
//
// ring is not synchronized; Buffer guards it with its mutex.
type ring struct {
	slots []Profile
	read  int
	write int
}

func newRing(capacity int) *ring {
	return &ring{slots: make([]Profile, capacity)}
}

func (r *ring) capacity() int {
	return len(r.slots)
}

// len returns the number of unread profiles.
func (r *ring) len() int {
	n := len(r.slots)
	return (r.write - r.read + n) % n
}

// push stores p at the write position. It reports whether the oldest unread
// profile was overwritten.
func (r *ring) push(p Profile) (dropped bool) {
	n := len(r.slots)
	r.slots[r.write] = p
	r.write = (r.write + 1) % n
	if r.write == r.read {
		r.slots[r.read] = nil
		r.read = (r.read + 1) % n
		return true
	}
	return false
}

// popFront removes and returns the oldest unread profile.
func (r *ring) popFront() (Profile, bool) {
	if r.read == r.write {
		return nil, false
	}
	p := r.slots[r.read]
	r.slots[r.read] = nil
	r.read = (r.read + 1) % len(r.slots)
	return p, true
}

// popBack removes and returns the newest unread profile.
func (r *ring) popBack() (Profile, bool) {
	if r.read == r.write {
		return nil, false
	}
	n := len(r.slots)
	r.write = (r.write - 1 + n) % n
	p := r.slots[r.write]
	r.slots[r.write] = nil
	return p, true
}

// drain removes every unread profile, oldest first.
func (r *ring) drain() []Profile {
	out := make([]Profile, 0, r.len())
	for r.read != r.write {
		out = append(out, r.slots[r.read])
		r.slots[r.read] = nil
		r.read = (r.read + 1) % len(r.slots)
	}
	return out
}

// reset discards everything and rewinds both positions to zero.
func (r *ring) reset() {
	clear(r.slots)
	r.read = 0
	r.write = 0
}
