package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/types"
)

// Resource kinds a manifest may declare
const (
	KindPeer    = "Peer"
	KindVolume  = "Volume"
	KindService = "Service"
)

// Resource is one YAML document of a manifest
type Resource struct {
	APIVersion string           `yaml:"apiVersion,omitempty"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// StringList accepts either a single string or a list of strings
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// PeerSpec is the spec of a Peer document
type PeerSpec struct {
	Peer             string     `yaml:"peer,omitempty"` // defaults to metadata.name
	Ensure           string     `yaml:"ensure,omitempty"`
	LocalPeerAliases StringList `yaml:"localPeerAliases,omitempty"`
}

// VolumeSpec is the spec of a Volume document
type VolumeSpec struct {
	Ensure    string   `yaml:"ensure,omitempty"`
	Bricks    []string `yaml:"bricks"`
	Replica   int      `yaml:"replica,omitempty"`
	Stripe    int      `yaml:"stripe,omitempty"`
	Transport string   `yaml:"transport,omitempty"`
	Force     bool     `yaml:"force,omitempty"`
}

// Manifest is the declared state of one node, in declaration order
type Manifest struct {
	Source   string
	Peers    []*types.PeerSpec
	Volumes  []*types.VolumeSpec
	Services []string

	refs map[types.ResourceRef]bool
}

// Load reads a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Source = path
	return m, nil
}

// Parse decodes a multi-document YAML manifest. Structural problems (bad
// YAML, unknown kinds or fields, unparseable bricks, duplicates) fail the
// whole manifest; value constraints are checked per resource at apply time.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{refs: make(map[types.ResourceRef]bool)}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for doc := 1; ; doc++ {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: failed to parse YAML: %w", doc, err)
		}
		if res.Kind == "" && res.Metadata.Name == "" {
			continue // empty document
		}
		if err := m.add(&res); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
	}
	return m, nil
}

func (m *Manifest) add(res *Resource) error {
	name := res.Metadata.Name
	if name == "" {
		return fmt.Errorf("%s: metadata.name is required", res.Kind)
	}
	ref := types.ResourceRef{Kind: res.Kind, Name: name}
	if m.refs[ref] {
		return fmt.Errorf("%s declared twice", ref)
	}

	switch res.Kind {
	case KindPeer:
		var spec PeerSpec
		if err := decodeSpec(&res.Spec, &spec); err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		p := &types.PeerSpec{
			Peer:             spec.Peer,
			Ensure:           types.PeerEnsure(spec.Ensure),
			LocalPeerAliases: spec.LocalPeerAliases,
		}
		if p.Peer == "" {
			p.Peer = name
		}
		m.Peers = append(m.Peers, p)

	case KindVolume:
		var spec VolumeSpec
		if err := decodeSpec(&res.Spec, &spec); err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		v := &types.VolumeSpec{
			Name:      name,
			Replica:   spec.Replica,
			Stripe:    spec.Stripe,
			Transport: spec.Transport,
			Force:     spec.Force,
			Ensure:    types.VolumeEnsure(spec.Ensure),
		}
		for _, s := range spec.Bricks {
			b, err := types.ParseBrick(s)
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			v.Bricks = append(v.Bricks, b)
		}
		m.Volumes = append(m.Volumes, v)

	case KindService:
		m.Services = append(m.Services, name)

	default:
		return fmt.Errorf("unsupported resource kind: %q", res.Kind)
	}

	m.refs[ref] = true
	return nil
}

func decodeSpec(node *yaml.Node, out interface{}) error {
	if node.Kind == 0 {
		return nil // no spec given
	}
	// Node.Decode has no strict mode; round-trip through a strict decoder so
	// typos in field names are reported.
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid spec: %w", err)
	}
	return nil
}

// Has reports whether the manifest declares ref
func (m *Manifest) Has(ref types.ResourceRef) bool {
	return m.refs[ref]
}

// Requires returns the declared resources ref must be ordered after
func (m *Manifest) Requires(ref types.ResourceRef) []types.ResourceRef {
	if ref.Kind == KindPeer {
		return peer.AutoRequire(m)
	}
	return nil
}

// VolumeNames returns the declared volume names in order
func (m *Manifest) VolumeNames() []string {
	names := make([]string, len(m.Volumes))
	for i, v := range m.Volumes {
		names[i] = v.Name
	}
	return names
}
