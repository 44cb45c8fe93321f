package types

import (
	"fmt"
	"strings"
)

// PeerState is the connection state of a peer as reported by `peer status`
type PeerState string

const (
	PeerStateConnected    PeerState = "connected"
	PeerStateDisconnected PeerState = "disconnected"
	PeerStateUnknown      PeerState = "unknown"
)

// PeerRecord is one entry of the live peer roster. Records are rebuilt on
// every pass and never persisted.
type PeerRecord struct {
	Hostname   string    // Identity the cluster reports (hostname, FQDN or IP)
	UUID       string    // Peer UUID
	State      PeerState // Connection state
	OtherNames []string  // Additional identities listed under "Other names:"
}

// Matches reports whether identity names this peer
func (p *PeerRecord) Matches(identity string) bool {
	if strings.EqualFold(p.Hostname, identity) {
		return true
	}
	for _, name := range p.OtherNames {
		if strings.EqualFold(name, identity) {
			return true
		}
	}
	return false
}

// Connected reports whether the peer is in the cluster and reachable
func (p *PeerRecord) Connected() bool {
	return p.State == PeerStateConnected
}

// PeerEnsure is the declared state of a peer
type PeerEnsure string

const (
	PeerPresent PeerEnsure = "present"
	PeerAbsent  PeerEnsure = "absent"
)

// ParsePeerEnsure validates a declared peer ensure value. Empty means present.
func ParsePeerEnsure(s string) (PeerEnsure, error) {
	switch PeerEnsure(strings.ToLower(s)) {
	case "", PeerPresent:
		return PeerPresent, nil
	case PeerAbsent:
		return PeerAbsent, nil
	default:
		return "", &ValidationError{Field: "ensure", Value: s, Reason: "Invalid value, expected present or absent"}
	}
}

// PeerSpec is a declared peer
type PeerSpec struct {
	Peer             string     // Identity to probe
	LocalPeerAliases []string   // Declared overrides, already normalised to a list
	Ensure           PeerEnsure // Target state
}

// Validate checks the declared peer
func (s *PeerSpec) Validate() error {
	if strings.TrimSpace(s.Peer) == "" {
		return &ValidationError{Field: "peer", Reason: "peer identity is required"}
	}
	if strings.ContainsAny(s.Peer, " \t/") {
		return &ValidationError{Field: "peer", Value: s.Peer, Reason: "not a hostname or IP"}
	}
	if _, err := ParsePeerEnsure(string(s.Ensure)); err != nil {
		return err
	}
	return nil
}

// Brick is a host:path pair contributing storage to a volume
type Brick struct {
	Host string
	Path string
}

// ParseBrick parses "host:path". The path must be absolute.
func ParseBrick(s string) (Brick, error) {
	i := strings.Index(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Brick{}, &ValidationError{Field: "bricks", Value: s, Reason: "expected host:path"}
	}
	b := Brick{Host: s[:i], Path: s[i+1:]}
	if !strings.HasPrefix(b.Path, "/") {
		return Brick{}, &ValidationError{Field: "bricks", Value: s, Reason: "brick path must be absolute"}
	}
	return b, nil
}

func (b Brick) String() string {
	return b.Host + ":" + b.Path
}

// VolumeEnsure is the declared run state of a volume
type VolumeEnsure string

const (
	VolumePresent VolumeEnsure = "present"
	VolumeStarted VolumeEnsure = "started"
	VolumeStopped VolumeEnsure = "stopped"
	VolumeAbsent  VolumeEnsure = "absent"
)

// ParseVolumeEnsure validates a declared volume ensure value. Empty means
// present, and present is normalised to started.
func ParseVolumeEnsure(s string) (VolumeEnsure, error) {
	switch VolumeEnsure(strings.ToLower(s)) {
	case "", VolumePresent, VolumeStarted:
		return VolumeStarted, nil
	case VolumeStopped:
		return VolumeStopped, nil
	case VolumeAbsent:
		return VolumeAbsent, nil
	default:
		return "", &ValidationError{Field: "ensure", Value: s, Reason: "Invalid value, expected present, started, stopped or absent"}
	}
}

// VolumeSpec is a declared volume
type VolumeSpec struct {
	Name      string
	Bricks    []Brick // Order defines replica/stripe grouping
	Replica   int     // 0 when unset
	Stripe    int     // 0 when unset
	Transport string  // tcp, rdma or "tcp,rdma"; empty leaves the cluster default
	Force     bool    // Bypass brick reuse checks on create
	Ensure    VolumeEnsure
}

var validTransports = map[string]bool{"tcp": true, "rdma": true, "tcp,rdma": true}

// Validate checks the declared volume
func (s *VolumeSpec) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "volume name is required"}
	}
	if strings.ContainsAny(s.Name, " \t/:") {
		return &ValidationError{Field: "name", Value: s.Name, Reason: "invalid volume name"}
	}
	ensure, err := ParseVolumeEnsure(string(s.Ensure))
	if err != nil {
		return err
	}
	if s.Replica != 0 && s.Replica < 2 {
		return &ValidationError{Field: "replica", Value: fmt.Sprint(s.Replica), Reason: "replica count must be at least 2"}
	}
	if s.Stripe != 0 && s.Stripe < 2 {
		return &ValidationError{Field: "stripe", Value: fmt.Sprint(s.Stripe), Reason: "stripe count must be at least 2"}
	}
	if s.Transport != "" && !validTransports[s.Transport] {
		return &ValidationError{Field: "transport", Value: s.Transport, Reason: "expected tcp, rdma or tcp,rdma"}
	}
	if ensure == VolumeAbsent {
		return nil
	}
	if len(s.Bricks) == 0 {
		return &ValidationError{Field: "bricks", Reason: "at least one brick is required"}
	}
	if group := s.GroupSize(); len(s.Bricks)%group != 0 {
		return &ValidationError{
			Field:  "bricks",
			Value:  fmt.Sprint(len(s.Bricks)),
			Reason: fmt.Sprintf("brick count must be a multiple of %d", group),
		}
	}
	seen := make(map[Brick]bool, len(s.Bricks))
	for _, b := range s.Bricks {
		if seen[b] {
			return &ValidationError{Field: "bricks", Value: b.String(), Reason: "duplicate brick"}
		}
		seen[b] = true
	}
	return nil
}

// GroupSize is the number of bricks forming one replica/stripe set
func (s *VolumeSpec) GroupSize() int {
	n := 1
	if s.Replica > 0 {
		n *= s.Replica
	}
	if s.Stripe > 0 {
		n *= s.Stripe
	}
	return n
}

// BrickHosts returns the distinct brick hosts in declaration order
func (s *VolumeSpec) BrickHosts() []string {
	var hosts []string
	seen := make(map[string]bool)
	for _, b := range s.Bricks {
		if !seen[b.Host] {
			seen[b.Host] = true
			hosts = append(hosts, b.Host)
		}
	}
	return hosts
}

// VolumeStatus is the run state reported by `volume info`
type VolumeStatus string

const (
	VolumeStatusCreated VolumeStatus = "created"
	VolumeStatusStarted VolumeStatus = "started"
	VolumeStatusStopped VolumeStatus = "stopped"
)

// VolumeRecord is a live volume. A new record replaces the old one on each
// pass; records are never mutated in place.
type VolumeRecord struct {
	Name      string
	ID        string
	Type      string // Distribute, Replicate, Distributed-Replicate, ...
	Status    VolumeStatus
	Replica   int
	Stripe    int
	Transport string
	Bricks    []Brick
	Options   map[string]string
}

// Started reports whether the volume is running. A created volume that was
// never started counts as stopped.
func (v *VolumeRecord) Started() bool {
	return v.Status == VolumeStatusStarted
}

// BrickHosts returns the distinct brick hosts in brick order
func (v *VolumeRecord) BrickHosts() []string {
	spec := VolumeSpec{Bricks: v.Bricks}
	return spec.BrickHosts()
}

// LocalAliasSet holds the identities under which this host is known
type LocalAliasSet struct {
	order []string
	set   map[string]bool
}

// NewLocalAliasSet builds a set from overrides followed by defaults. Empty
// strings and duplicates are dropped, first occurrence wins.
func NewLocalAliasSet(overrides []string, defaults ...string) LocalAliasSet {
	s := LocalAliasSet{set: make(map[string]bool)}
	for _, list := range [][]string{overrides, defaults} {
		for _, alias := range list {
			alias = strings.TrimSpace(alias)
			key := strings.ToLower(alias)
			if alias == "" || s.set[key] {
				continue
			}
			s.set[key] = true
			s.order = append(s.order, alias)
		}
	}
	return s
}

// Contains reports whether identity is one of this host's aliases
func (s LocalAliasSet) Contains(identity string) bool {
	return s.set[strings.ToLower(strings.TrimSpace(identity))]
}

// List returns the aliases in insertion order
func (s LocalAliasSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// With returns a new set with extra aliases prepended
func (s LocalAliasSet) With(extra []string) LocalAliasSet {
	return NewLocalAliasSet(extra, s.order...)
}
