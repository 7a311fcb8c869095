package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/deckhand/deckhand/internal/value"
)

// envelope is the raw shape every document (normal or control) must
// decode into before further interpretation; unknown top-level keys are
// rejected per the wire contract (§6).
type envelope struct {
	Schema   string      `yaml:"schema"`
	Metadata rawMetadata `yaml:"metadata"`
	Data     any         `yaml:"data"`
	rawData  any
}

type rawMetadata struct {
	Schema             string            `yaml:"schema"`
	Name               string            `yaml:"name"`
	StoragePolicy      string            `yaml:"storagePolicy"`
	Labels             map[string]string `yaml:"labels"`
	LayeringDefinition *rawLayeringDef   `yaml:"layeringDefinition"`
	Replacement        bool              `yaml:"replacement"`
	Substitutions      []rawSubstitution `yaml:"substitutions"`
}

type rawLayeringDef struct {
	Layer          string            `yaml:"layer"`
	Abstract       bool              `yaml:"abstract"`
	ParentSelector map[string]string `yaml:"parentSelector"`
	Actions        []rawAction       `yaml:"actions"`
}

type rawAction struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

type rawSubstitution struct {
	Src  rawSubSrc  `yaml:"src"`
	Dest rawSubDest `yaml:"dest"`
}

type rawSubSrc struct {
	Schema string `yaml:"schema"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
}

type rawSubDest struct {
	Path    string  `yaml:"path"`
	Pattern *string `yaml:"pattern"`
}

// ParseStream decodes a multi-document YAML stream (media type
// application/x-yaml, documents separated by `---`) into Documents and
// the revision's control-document set.
func ParseStream(raw []byte) ([]*Document, ControlSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))

	var docs []*Document
	var controls ControlSet
	var layeringPolicyCount int

	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, ControlSet{}, fmt.Errorf("decode YAML stream: %w", err)
		}
		if node.Kind == 0 {
			continue
		}

		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return nil, ControlSet{}, fmt.Errorf("decode document: %w", err)
		}
		if err := rejectUnknownKeys(raw); err != nil {
			return nil, ControlSet{}, err
		}

		env, err := decodeEnvelope(raw)
		if err != nil {
			return nil, ControlSet{}, err
		}

		doc, err := fromEnvelope(env)
		if err != nil {
			return nil, ControlSet{}, err
		}

		switch doc.Schema {
		case SchemaLayeringPolicy:
			lp, err := parseLayeringPolicy(doc.Data)
			if err != nil {
				return nil, ControlSet{}, err
			}
			layeringPolicyCount++
			controls.LayeringPolicy = lp
		case SchemaDataSchema:
			controls.DataSchemas = append(controls.DataSchemas, DataSchema{
				Name: doc.Metadata.Name,
				Spec: doc.Data,
			})
		case SchemaValidationPolicy:
			vp, err := parseValidationPolicy(doc.Metadata.Name, doc.Data)
			if err != nil {
				return nil, ControlSet{}, err
			}
			controls.ValidationPolicies = append(controls.ValidationPolicies, vp)
		default:
			docs = append(docs, doc)
		}
	}

	if layeringPolicyCount > 1 {
		return nil, ControlSet{}, fmt.Errorf("multiple LayeringPolicy documents in revision")
	}

	return docs, controls, nil
}

func rejectUnknownKeys(raw map[string]any) error {
	for k := range raw {
		switch k {
		case "schema", "metadata", "data":
		default:
			return fmt.Errorf("unknown top-level document key %q", k)
		}
	}
	return nil
}

func decodeEnvelope(raw map[string]any) (envelope, error) {
	buf, err := yaml.Marshal(raw)
	if err != nil {
		return envelope{}, fmt.Errorf("re-marshal document: %w", err)
	}
	var env envelope
	if err := yaml.Unmarshal(buf, &env); err != nil {
		return envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	env.rawData = raw["data"]
	return env, nil
}

func fromEnvelope(env envelope) (*Document, error) {
	if env.Schema == "" {
		return nil, fmt.Errorf("document missing schema")
	}
	if env.Metadata.Name == "" {
		return nil, fmt.Errorf("document %s missing metadata.name", env.Schema)
	}

	storagePolicy := StoragePolicy(env.Metadata.StoragePolicy)
	if storagePolicy == "" {
		storagePolicy = StorageCleartext
	}

	metaSchema := MetaSchema(env.Metadata.Schema)

	var layeringDef *LayeringDefinition
	if env.Metadata.LayeringDefinition != nil {
		raw := env.Metadata.LayeringDefinition
		actions := make([]Action, 0, len(raw.Actions))
		for _, a := range raw.Actions {
			actions = append(actions, Action{Method: ActionMethod(a.Method), Path: a.Path})
		}
		layeringDef = &LayeringDefinition{
			Layer:          raw.Layer,
			Abstract:       raw.Abstract,
			ParentSelector: raw.ParentSelector,
			Actions:        actions,
		}
	}

	subs := make([]Substitution, 0, len(env.Metadata.Substitutions))
	for _, s := range env.Metadata.Substitutions {
		subs = append(subs, Substitution{
			Src: SubstitutionSource{
				Schema: s.Src.Schema,
				Name:   s.Src.Name,
				Path:   s.Src.Path,
			},
			Dest: SubstitutionDest{
				Path:    s.Dest.Path,
				Pattern: s.Dest.Pattern,
			},
		})
	}

	data, err := value.FromInterface(env.rawData)
	if err != nil {
		return nil, fmt.Errorf("document %s/%s: %w", env.Schema, env.Metadata.Name, err)
	}

	return &Document{
		Schema: env.Schema,
		Metadata: Metadata{
			Schema:             metaSchema,
			Name:               env.Metadata.Name,
			StoragePolicy:      storagePolicy,
			Labels:             env.Metadata.Labels,
			LayeringDefinition: layeringDef,
			Replacement:        env.Metadata.Replacement,
			Substitutions:      subs,
		},
		Data: data,
	}, nil
}

func parseLayeringPolicy(data value.Value) (*LayeringPolicy, error) {
	m, ok := data.(value.Mapping)
	if !ok {
		return nil, fmt.Errorf("LayeringPolicy data must be a mapping")
	}
	seqVal, ok := m["layerOrder"]
	if !ok {
		return nil, fmt.Errorf("LayeringPolicy missing layerOrder")
	}
	seq, ok := seqVal.(value.Sequence)
	if !ok {
		return nil, fmt.Errorf("LayeringPolicy layerOrder must be a list")
	}
	order := make([]string, 0, len(seq))
	for _, e := range seq {
		s, ok := e.(value.String)
		if !ok {
			return nil, fmt.Errorf("LayeringPolicy layerOrder entries must be strings")
		}
		order = append(order, string(s))
	}
	return &LayeringPolicy{LayerOrder: order}, nil
}

func parseValidationPolicy(name string, data value.Value) (ValidationPolicy, error) {
	vp := ValidationPolicy{Name: name}
	m, ok := data.(value.Mapping)
	if !ok {
		return vp, nil
	}
	seqVal, ok := m["validations"]
	if !ok {
		return vp, nil
	}
	seq, ok := seqVal.(value.Sequence)
	if !ok {
		return vp, fmt.Errorf("ValidationPolicy %s: validations must be a list", name)
	}
	for _, e := range seq {
		switch t := e.(type) {
		case value.String:
			vp.Validations = append(vp.Validations, string(t))
		case value.Mapping:
			if nv, ok := t["name"].(value.String); ok {
				vp.Validations = append(vp.Validations, string(nv))
			}
		}
	}
	return vp, nil
}
