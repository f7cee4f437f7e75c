package perception

import (
	"sync"
	"time"
)

// Field identifies one slot of State that a single feature may own.
type Field uint8

const (
	FieldSelected Field = iota
	FieldDetections
	FieldCentralDistance
	FieldTrafficLight
)

func (f Field) String() string {
	switch f {
	case FieldSelected:
		return "selected"
	case FieldDetections:
		return "detections"
	case FieldCentralDistance:
		return "central_distance"
	case FieldTrafficLight:
		return "traffic_light"
	}
	return "unknown"
}

// Token authorizes a publish into State. It is bound to a session generation
// and an owner; a publish with a stale generation or for a field the owner no
// longer holds is discarded.
type Token struct {
	generation uint64
	owner      string
}

// Owner returns the owner the token was issued to.
func (t Token) Owner() string { return t.owner }

// Generation returns the session generation the token belongs to.
func (t Token) Generation() uint64 { return t.generation }

// Snapshot is a copy of State suitable for readers.
type Snapshot struct {
	Selected        *Detection  `json:"selected,omitempty"`
	Detections      []Detection `json:"detections"`
	CentralDistance *float64    `json:"central_distance,omitempty"`
	TrafficLight    *Detection  `json:"traffic_light,omitempty"`
	Generation      uint64      `json:"generation"`
	Version         uint64      `json:"version"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Generation: s.Generation,
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
		Detections: make([]Detection, len(s.Detections)),
	}
	for i, d := range s.Detections {
		out.Detections[i] = d.clone()
	}
	if s.Selected != nil {
		d := s.Selected.clone()
		out.Selected = &d
	}
	if s.TrafficLight != nil {
		d := s.TrafficLight.clone()
		out.TrafficLight = &d
	}
	if s.CentralDistance != nil {
		m := *s.CentralDistance
		out.CentralDistance = &m
	}
	return out
}

// State is the shared perception read model. Each field is owned by at most
// one feature instance at a time and only the owner may write it.
type State struct {
	mu         sync.RWMutex
	snap       Snapshot
	owners     map[Field]string
	generation uint64
	version    uint64

	subsMu   sync.Mutex
	subs     map[chan Snapshot]struct{}
	notified uint64
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		owners: make(map[Field]string),
		subs:   make(map[chan Snapshot]struct{}),
	}
}

// Token issues a publish token for owner in the current generation.
func (s *State) Token(owner string) Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Token{generation: s.generation, owner: owner}
}

// Generation returns the current session generation.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Claim transfers ownership of fields to owner. Fields taken from another
// owner are cleared.
func (s *State) Claim(owner string, fields ...Field) {
	s.mu.Lock()
	changed := false
	for _, f := range fields {
		if prev, ok := s.owners[f]; ok && prev != owner {
			s.clearField(f)
			changed = true
		}
		s.owners[f] = owner
	}
	snap := s.touch(changed)
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

// Release clears every field held by owner and gives up ownership.
func (s *State) Release(owner string) {
	s.mu.Lock()
	changed := false
	for f, o := range s.owners {
		if o == owner {
			s.clearField(f)
			delete(s.owners, f)
			changed = true
		}
	}
	snap := s.touch(changed)
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

// Owner returns the owner of f, or "" when unowned.
func (s *State) Owner(f Field) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[f]
}

// Reset clears every field and starts a new generation. Tokens issued before
// the reset are rejected afterwards. Ownership is kept.
func (s *State) Reset() {
	s.mu.Lock()
	s.generation++
	s.snap = Snapshot{}
	snap := s.touch(true)
	s.mu.Unlock()

	s.notify(snap)
}

// PublishDetections replaces the detection list and the selection.
func (s *State) PublishDetections(tok Token, all []Detection, selected *Detection) bool {
	return s.publish(tok, []Field{FieldDetections, FieldSelected}, func(snap *Snapshot) {
		snap.Detections = make([]Detection, len(all))
		for i, d := range all {
			snap.Detections[i] = d.clone()
		}
		if selected != nil {
			d := selected.clone()
			snap.Selected = &d
		} else {
			snap.Selected = nil
		}
	})
}

// PublishCentralDistance sets or clears the central-region distance.
func (s *State) PublishCentralDistance(tok Token, meters float64, ok bool) bool {
	return s.publish(tok, []Field{FieldCentralDistance}, func(snap *Snapshot) {
		if !ok {
			snap.CentralDistance = nil
			return
		}
		m := meters
		snap.CentralDistance = &m
	})
}

// PublishTrafficLight sets or clears the traffic light detection.
func (s *State) PublishTrafficLight(tok Token, light *Detection) bool {
	return s.publish(tok, []Field{FieldTrafficLight}, func(snap *Snapshot) {
		if light == nil {
			snap.TrafficLight = nil
			return
		}
		d := light.clone()
		snap.TrafficLight = &d
	})
}

func (s *State) publish(tok Token, fields []Field, apply func(*Snapshot)) bool {
	s.mu.Lock()
	if tok.generation != s.generation {
		s.mu.Unlock()
		return false
	}
	for _, f := range fields {
		if s.owners[f] != tok.owner {
			s.mu.Unlock()
			return false
		}
	}
	apply(&s.snap)
	snap := s.touch(true)
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// touch stamps the snapshot and returns a copy for subscribers.
// Callers hold s.mu.
func (s *State) touch(changed bool) Snapshot {
	if !changed {
		return Snapshot{}
	}
	s.version++
	s.snap.Generation = s.generation
	s.snap.Version = s.version
	s.snap.UpdatedAt = time.Now()
	return s.snap.clone()
}

func (s *State) clearField(f Field) {
	switch f {
	case FieldSelected:
		s.snap.Selected = nil
	case FieldDetections:
		s.snap.Detections = nil
	case FieldCentralDistance:
		s.snap.CentralDistance = nil
	case FieldTrafficLight:
		s.snap.TrafficLight = nil
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap.clone()
	out.Generation = s.generation
	return out
}

// Selected returns the currently selected detection.
func (s *State) Selected() (Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Selected == nil {
		return Detection{}, false
	}
	return s.snap.Selected.clone(), true
}

// CentralDistance returns the central-region distance.
func (s *State) CentralDistance() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.CentralDistance == nil {
		return 0, false
	}
	return *s.snap.CentralDistance, true
}

// Subscribe registers a listener that receives a snapshot after every
// change. Slow listeners miss updates instead of blocking writers, and
// snapshots arrive in Version order.
// The returned function unsubscribes and closes the channel.
func (s *State) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notify delivers snap unless a newer snapshot was already delivered.
// Concurrent writers release s.mu before notifying, so they can race here.
func (s *State) notify(snap Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if snap.Version <= s.notified {
		return
	}
	s.notified = snap.Version
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
