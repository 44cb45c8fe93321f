package fake

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

const (
	stateInCluster = "Peer in Cluster (Connected)"
	stateJoining   = "Accepted peer request (Connected)"
	stateDown      = "Peer in Cluster (Disconnected)"
)

type simPeer struct {
	host       string
	uuid       string
	state      string
	joinPolls  int // peer status calls left before the peer is in cluster
	otherNames []string
}

type simVolume struct {
	name      string
	id        string
	replica   int
	stripe    int
	transport string
	bricks    []types.Brick
	status    string
}

// Cluster simulates the gluster admin CLI of one node. It renders peer status
// and volume info in the real text format and applies probe, detach, create,
// start, stop and delete to its in-memory state. Failures that gluster reports
// for already-satisfied requests go through executor.Absorbable, so the
// simulator answers exactly like an Executor would.
type Cluster struct {
	mu        sync.Mutex
	self      []string
	reachable map[string]bool
	peers     []*simPeer
	volumes   map[string]*simVolume
	calls     [][]string
	failures  map[string]string

	// JoinDelay is how many `peer status` calls a newly probed peer spends in
	// the "Accepted peer request" state.
	JoinDelay int
}

var _ executor.Runner = &Cluster{}

// NewCluster creates a simulator for the node known as self (first alias is
// its hostname). reachable lists the hosts a probe can reach.
func NewCluster(self []string, reachable ...string) *Cluster {
	c := &Cluster{
		self:      self,
		reachable: make(map[string]bool),
		volumes:   make(map[string]*simVolume),
		failures:  make(map[string]string),
	}
	for _, h := range reachable {
		c.reachable[h] = true
	}
	return c
}

// AddPeer seeds a peer that is already part of the cluster
func (c *Cluster) AddPeer(host string, connected bool, otherNames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := stateInCluster
	if !connected {
		state = stateDown
	}
	c.reachable[host] = true
	c.peers = append(c.peers, &simPeer{host: host, uuid: uuid.NewString(), state: state, otherNames: otherNames})
}

// AddVolume seeds an existing volume
func (c *Cluster) AddVolume(spec types.VolumeSpec, started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := "Stopped"
	if started {
		status = "Started"
	}
	c.volumes[spec.Name] = &simVolume{
		name:      spec.Name,
		id:        uuid.NewString(),
		replica:   spec.Replica,
		stripe:    spec.Stripe,
		transport: spec.Transport,
		bricks:    slices.Clone(spec.Bricks),
		status:    status,
	}
}

// FailNext makes the next command with the given subcommand ("volume info",
// "peer probe", ...) exit 1 with stderr.
func (c *Cluster) FailNext(subcommand, stderr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[subcommand] = stderr
}

// Calls returns every command issued, in order
func (c *Cluster) Calls() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of commands issued with the given subcommand,
// or all commands when subcommand is empty
func (c *Cluster) CallCount(subcommand string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, args := range c.calls {
		if subcommand == "" || executor.Subcommand(args) == subcommand {
			n++
		}
	}
	return n
}

// VolumeNames returns the live volume names, sorted
func (c *Cluster) VolumeNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.volumes))
	for name := range c.volumes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VolumeStatus returns "Started", "Stopped", "Created" or "" when absent
func (c *Cluster) VolumeStatus(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.volumes[name]; ok {
		return v.status
	}
	return ""
}

// PeerHosts returns the hostnames in the peer roster
func (c *Cluster) PeerHosts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	hosts := make([]string, 0, len(c.peers))
	for _, p := range c.peers {
		hosts = append(hosts, p.host)
	}
	return hosts
}

func (c *Cluster) Run(_ context.Context, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, slices.Clone(args))
	sub := executor.Subcommand(args)
	if stderr, ok := c.failures[sub]; ok {
		delete(c.failures, sub)
		return c.fail(args, stderr)
	}

	switch sub {
	case "peer status":
		return c.peerStatus(), nil
	case "peer probe":
		return c.probe(args)
	case "peer detach":
		return c.detach(args)
	case "volume info":
		return c.volumeInfo(args)
	case "volume create":
		return c.create(args)
	case "volume start":
		return c.start(args)
	case "volume stop":
		return c.stop(args)
	case "volume delete":
		return c.delete(args)
	default:
		return c.fail(args, "unrecognized word: "+strings.Join(args, " "))
	}
}

// fail reproduces Executor semantics for a non-zero exit
func (c *Cluster) fail(args []string, stderr string) (string, error) {
	if executor.Absorbable(args, stderr) {
		return "", nil
	}
	return "", &executor.ExecutionError{
		Command:  append([]string{executor.DefaultCommand, executor.ScriptModeArg}, args...),
		ExitCode: 1,
		Stderr:   stderr,
	}
}

func (c *Cluster) isSelf(host string) bool {
	for _, s := range c.self {
		if strings.EqualFold(s, host) {
			return true
		}
	}
	return false
}

func (c *Cluster) findPeer(host string) *simPeer {
	for _, p := range c.peers {
		if strings.EqualFold(p.host, host) || slices.Contains(p.otherNames, host) {
			return p
		}
	}
	return nil
}

func (c *Cluster) peerStatus() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of Peers: %d\n", len(c.peers))
	for _, p := range c.peers {
		fmt.Fprintf(&b, "\nHostname: %s\nUuid: %s\nState: %s\n", p.host, p.uuid, p.state)
		if len(p.otherNames) > 0 {
			b.WriteString("Other names:\n")
			for _, n := range p.otherNames {
				b.WriteString(n + "\n")
			}
		}
		if p.state == stateJoining {
			p.joinPolls--
			if p.joinPolls <= 0 {
				p.state = stateInCluster
			}
		}
	}
	return b.String()
}

func (c *Cluster) probe(args []string) (string, error) {
	if len(args) != 3 {
		return c.fail(args, "Usage: peer probe { <HOSTNAME> | <IP-address> }")
	}
	host := args[2]
	switch {
	case c.isSelf(host):
		return "peer probe: success. Probe on localhost not needed\n", nil
	case c.findPeer(host) != nil:
		return fmt.Sprintf("peer probe: success. Host %s port 24007 already in peer list\n", host), nil
	case !c.reachable[host]:
		return c.fail(args, "peer probe: failed: Probe returned with Transport endpoint is not connected")
	}
	p := &simPeer{host: host, uuid: uuid.NewString(), state: stateInCluster}
	if c.JoinDelay > 0 {
		p.state = stateJoining
		p.joinPolls = c.JoinDelay
	}
	c.peers = append(c.peers, p)
	return "peer probe: success.\n", nil
}

func (c *Cluster) detach(args []string) (string, error) {
	if len(args) < 3 {
		return c.fail(args, "Usage: peer detach <HOSTNAME> [force]")
	}
	host := args[2]
	p := c.findPeer(host)
	if p == nil {
		return c.fail(args, fmt.Sprintf("peer detach: failed: %s is not part of cluster", host))
	}
	for _, v := range c.volumes {
		for _, b := range v.bricks {
			if strings.EqualFold(b.Host, p.host) {
				return c.fail(args, fmt.Sprintf("peer detach: failed: Brick(s) with the peer %s exist in cluster", host))
			}
		}
	}
	c.peers = slices.DeleteFunc(c.peers, func(q *simPeer) bool { return q == p })
	return "peer detach: success\n", nil
}

func (c *Cluster) volumeInfo(args []string) (string, error) {
	if len(args) > 2 {
		name := args[2]
		v, ok := c.volumes[name]
		if !ok {
			return c.fail(args, fmt.Sprintf("Volume %s does not exist", name))
		}
		return renderVolume(v), nil
	}
	if len(c.volumes) == 0 {
		return "No volumes present\n", nil
	}
	names := make([]string, 0, len(c.volumes))
	for name := range c.volumes {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(renderVolume(c.volumes[name]))
	}
	return b.String(), nil
}

func renderVolume(v *simVolume) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nVolume Name: %s\n", v.name)
	fmt.Fprintf(&b, "Type: %s\n", volumeType(v))
	fmt.Fprintf(&b, "Volume ID: %s\n", v.id)
	fmt.Fprintf(&b, "Status: %s\n", v.status)
	b.WriteString("Snapshot Count: 0\n")
	fmt.Fprintf(&b, "Number of Bricks: %s\n", brickCount(v))
	transport := v.transport
	if transport == "" {
		transport = "tcp"
	}
	fmt.Fprintf(&b, "Transport-type: %s\n", transport)
	b.WriteString("Bricks:\n")
	for i, br := range v.bricks {
		fmt.Fprintf(&b, "Brick%d: %s\n", i+1, br)
	}
	b.WriteString("Options Reconfigured:\ntransport.address-family: inet\nnfs.disable: on\n")
	return b.String()
}

func groupSize(v *simVolume) int {
	spec := types.VolumeSpec{Replica: v.replica, Stripe: v.stripe}
	return spec.GroupSize()
}

func volumeType(v *simVolume) string {
	distributed := len(v.bricks) > groupSize(v)
	var t string
	switch {
	case v.replica > 0 && v.stripe > 0:
		t = "Striped-Replicate"
	case v.replica > 0:
		t = "Replicate"
	case v.stripe > 0:
		t = "Stripe"
	default:
		return "Distribute"
	}
	if distributed {
		return "Distributed-" + t
	}
	return t
}

func brickCount(v *simVolume) string {
	n := len(v.bricks)
	group := groupSize(v)
	if group == 1 {
		return strconv.Itoa(n)
	}
	dist := n / group
	switch {
	case v.replica > 0 && v.stripe > 0:
		return fmt.Sprintf("%d x %d x %d = %d", dist, v.stripe, v.replica, n)
	case v.replica > 0:
		return fmt.Sprintf("%d x %d = %d", dist, v.replica, n)
	default:
		return fmt.Sprintf("%d x %d = %d", dist, v.stripe, n)
	}
}

func (c *Cluster) create(args []string) (string, error) {
	if len(args) < 4 {
		return c.fail(args, "Usage: volume create <NEW-VOLNAME> [replica <COUNT>] [stripe <COUNT>] [transport <tcp|rdma>] <NEW-BRICK>... [force]")
	}
	name := args[2]
	if _, ok := c.volumes[name]; ok {
		return c.fail(args, fmt.Sprintf("volume create: %s: failed: Volume %s already exists", name, name))
	}
	v := &simVolume{name: name, id: uuid.NewString(), status: "Created"}
	rest := args[3:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "replica", "stripe", "transport":
			if i+1 >= len(rest) {
				return c.fail(args, "volume create: "+name+": failed: missing value for "+rest[i])
			}
			val := rest[i+1]
			i++
			if rest[i-1] == "transport" {
				v.transport = val
				continue
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return c.fail(args, "volume create: "+name+": failed: invalid count "+val)
			}
			if rest[i-1] == "replica" {
				v.replica = n
			} else {
				v.stripe = n
			}
		case "force":
			if i != len(rest)-1 {
				return c.fail(args, "volume create: "+name+": failed: force must be the last argument")
			}
		default:
			brick, err := types.ParseBrick(rest[i])
			if err != nil {
				return c.fail(args, "volume create: "+name+": failed: "+err.Error())
			}
			if !c.isSelf(brick.Host) {
				p := c.findPeer(brick.Host)
				if p == nil || p.state != stateInCluster {
					return c.fail(args, fmt.Sprintf("volume create: %s: failed: Host %s is not in 'Peer in Cluster' state", name, brick.Host))
				}
			}
			v.bricks = append(v.bricks, brick)
		}
	}
	if len(v.bricks) == 0 || len(v.bricks)%groupSize(v) != 0 {
		return c.fail(args, fmt.Sprintf("volume create: %s: failed: Incorrect number of bricks supplied %d with count %d", name, len(v.bricks), groupSize(v)))
	}
	c.volumes[name] = v
	return fmt.Sprintf("volume create: %s: success: please start the volume to access data\n", name), nil
}

func (c *Cluster) start(args []string) (string, error) {
	name := args[2]
	v, ok := c.volumes[name]
	if !ok {
		return c.fail(args, fmt.Sprintf("volume start: %s: failed: Volume %s does not exist", name, name))
	}
	if v.status == "Started" {
		return c.fail(args, fmt.Sprintf("volume start: %s: failed: Volume %s already started", name, name))
	}
	v.status = "Started"
	return fmt.Sprintf("volume start: %s: success\n", name), nil
}

func (c *Cluster) stop(args []string) (string, error) {
	name := args[2]
	v, ok := c.volumes[name]
	if !ok {
		return c.fail(args, fmt.Sprintf("volume stop: %s: failed: Volume %s does not exist", name, name))
	}
	if v.status != "Started" {
		return c.fail(args, fmt.Sprintf("volume stop: %s: failed: Volume %s is not in the started state", name, name))
	}
	v.status = "Stopped"
	return fmt.Sprintf("volume stop: %s: success\n", name), nil
}

func (c *Cluster) delete(args []string) (string, error) {
	name := args[2]
	v, ok := c.volumes[name]
	if !ok {
		return c.fail(args, fmt.Sprintf("volume delete: %s: failed: Volume %s does not exist", name, name))
	}
	if v.status == "Started" {
		return c.fail(args, fmt.Sprintf("volume delete: %s: failed: Volume %s has been started.Volume needs to be stopped before deletion.", name, name))
	}
	delete(c.volumes, name)
	return fmt.Sprintf("volume delete: %s: success\n", name), nil
}
