package types

import "strings"

// ActionKind names a corrective gluster operation
type ActionKind string

const (
	ActionProbe  ActionKind = "probe"
	ActionDetach ActionKind = "detach"
	ActionCreate ActionKind = "create"
	ActionStart  ActionKind = "start"
	ActionStop   ActionKind = "stop"
	ActionDelete ActionKind = "delete"
)

// Action is one gluster command a reconciler decided to issue
type Action struct {
	Kind     ActionKind
	Resource string   // e.g. "Volume[vol1]"
	Args     []string // gluster arguments, without the binary
}

func (a Action) String() string {
	return "gluster " + strings.Join(a.Args, " ")
}

// ResourceRef identifies a declared resource in the catalog, e.g. Service[glusterfs-server]
type ResourceRef struct {
	Kind string
	Name string
}

func (r ResourceRef) String() string {
	return r.Kind + "[" + r.Name + "]"
}

// Drift is a live/declared mismatch that is reported but never repaired
type Drift struct {
	Volume   string
	Field    string // bricks, replica, stripe, transport
	Declared string
	Live     string
}

func (d Drift) String() string {
	return d.Volume + ": " + d.Field + " declared " + d.Declared + ", live " + d.Live
}
