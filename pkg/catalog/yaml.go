package catalog

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

// yamlSignal is one element of the "signals" list.
// Scalars are decoded as text and converted by the tree loader.
type yamlSignal struct {
	Path        string   `yaml:"path"`
	ID          *uint32  `yaml:"id"`
	Element     string   `yaml:"element"`
	Type        string   `yaml:"type"`
	Unit        string   `yaml:"unit"`
	Min         string   `yaml:"min"`
	Max         string   `yaml:"max"`
	Description string   `yaml:"description"`
	Enum        []string `yaml:"enum"`
	Default     string   `yaml:"default"`
}

// ReadYAML parses a YAML catalog:
//
//	signals:
//	  - path: Vehicle.Speed
//	    id: 2
//	    element: sensor
//	    type: float
//	    max: 250
func ReadYAML(r io.Reader) ([]Entry, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &model.LoadError{Err: fmt.Errorf("yaml: %w", err)}
	}

	list := signalsNode(&root)
	if list == nil {
		return nil, &model.LoadError{Line: root.Line, Err: errors.New(`missing "signals" list`)}
	}

	entries := make([]Entry, 0, len(list.Content))
	for _, item := range list.Content {
		var s yamlSignal
		if err := item.Decode(&s); err != nil {
			return nil, &model.LoadError{Line: item.Line, Err: fmt.Errorf("yaml: %w", err)}
		}
		e := Entry{
			Path:        s.Path,
			Element:     s.Element,
			Type:        s.Type,
			Unit:        s.Unit,
			Min:         s.Min,
			Max:         s.Max,
			Description: s.Description,
			Enum:        s.Enum,
			Default:     s.Default,
			Line:        item.Line,
		}
		if s.ID != nil {
			e.ID = *s.ID
			e.HasID = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func signalsNode(root *yaml.Node) *yaml.Node {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(doc.Content)-1; i += 2 {
		if doc.Content[i].Value == "signals" && doc.Content[i+1].Kind == yaml.SequenceNode {
			return doc.Content[i+1]
		}
	}
	return nil
}
