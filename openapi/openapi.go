// Package openapi emits an OpenAPI 3.0 description of the generated CRUD
// service. The document is built as an explicit yaml.Node tree so key order
// is fixed by construction: an unchanged model reproduces a byte-identical
// document.
package openapi

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// Render builds the OpenAPI document for the model. The relation style
// shapes how relationship properties appear in component schemas.
func Render(m *resolve.Model, style string, api dbscaf.APIConfig) ([]byte, error) {
	if style == "" {
		style = dbscaf.StylePK
	}
	if !dbscaf.KnownRelationStyle(style) {
		return nil, fmt.Errorf("openapi: unknown relation style %q", style)
	}

	e := &emitter{model: m, style: style}

	root := mapping(
		scalar("openapi"), scalar("3.0.3"),
		scalar("info"), e.info(api),
		scalar("paths"), e.paths(),
		scalar("components"), mapping(scalar("schemas"), e.schemas()),
	)
	if api.ServerURL != "" {
		insertPair(root, 2, scalar("servers"),
			sequence(mapping(scalar("url"), scalar(api.ServerURL))))
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}

	return yaml.Marshal(doc)
}

type emitter struct {
	model *resolve.Model
	style string
}

func (e *emitter) info(api dbscaf.APIConfig) *yaml.Node {
	title := api.Title
	if title == "" {
		title = "Generated API"
	}
	version := api.Version
	if version == "" {
		version = "0.1.0"
	}

	info := mapping(
		scalar("title"), scalar(title),
		scalar("version"), scalar(version),
	)
	if api.Description != "" {
		insertPair(info, 1, scalar("description"), scalar(api.Description))
	}

	return info
}

// node constructors

func scalar(v string) *yaml.Node {
	n := &yaml.Node{}
	n.SetString(v)

	return n
}

func intScalar(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", v)}
}

func boolScalar(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", v)}
}

func mapping(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: pairs}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Content: items}
}

// insertPair inserts a key/value pair at the given pair index of a mapping.
func insertPair(m *yaml.Node, index int, key, value *yaml.Node) {
	at := index * 2
	rest := append([]*yaml.Node{key, value}, m.Content[at:]...)
	m.Content = append(m.Content[:at:at], rest...)
}

func appendPair(m *yaml.Node, key, value *yaml.Node) {
	m.Content = append(m.Content, key, value)
}
