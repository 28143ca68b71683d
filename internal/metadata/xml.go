package metadata

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// node is a namespace-agnostic element tree. The instrument export mixes
// namespaced and plain elements, so every lookup matches on local names only.
type node struct {
	name     string
	attrs    map[string]string
	text     string
	children []*node
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// child returns the first direct child with the given local name.
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// descendant returns the first element below n (depth first) with the given
// local name.
func (n *node) descendant(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if d := c.descendant(name); d != nil {
			return d
		}
	}
	return nil
}

// all collects every element below n, document order, with the given name.
func (n *node) all(name string, out []*node) []*node {
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = c.all(name, out)
	}
	return out
}

func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	root := &node{name: "#document"}
	stack := []*node{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse metadata XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}

	return root, nil
}

// ParseFile reads an instrument metadata export from disk.
func ParseFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse extracts calibration metadata from an instrument XML export.
//
// Extraction rules:
//   - Scaling: every Distance element with an Id attribute and a Value
//     descendant; later entries overwrite earlier ones for the same axis.
//   - Channels: every Channel element, in document order.
//   - Stage position: the first Scenes/Scene/Positions/Position element
//     (attributes X, Y, Z). When no scene position exists, the
//     ParameterCollection entries MTBStageAxisX, MTBStageAxisY and MTBFocus
//     are used instead. Unparseable or missing axes stay unknown.
//   - Z-scan: the ZStackSetup element (IsActivated attribute, IsCenterMode and
//     IsIntervalKept children). ZScan is nil when the element is absent.
//   - Tiles: every SingleTileRegion element with its Name attribute and X, Y,
//     Z children.
func Parse(r io.Reader) (*Metadata, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		Scaling:  extractScaling(root),
		Channels: extractChannels(root),
		ZScan:    extractZScan(root),
		Tiles:    extractTiles(root),
	}
	if positions := extractPositions(root); len(positions) > 0 {
		md.Stage = positions[0]
	}

	return md, nil
}

func extractScaling(root *node) Scaling {
	var s Scaling
	for _, dist := range root.all("Distance", nil) {
		axis, ok := dist.attr("Id")
		if !ok || axis == "" {
			continue
		}
		val := dist.descendant("Value")
		if val == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val.text), 64)
		if err != nil {
			continue
		}
		switch axis {
		case "X":
			s.X = v
		case "Y":
			s.Y = v
		case "Z":
			s.Z = v
		}
	}
	return s
}

func extractChannels(root *node) []Channel {
	var channels []Channel
	for _, ch := range root.all("Channel", nil) {
		id, _ := ch.attr("Id")
		c := Channel{ID: id}
		if n := ch.descendant("Name"); n != nil {
			c.Name = strings.TrimSpace(n.text)
		}
		if n := ch.descendant("EmissionWavelength"); n != nil {
			c.EmissionNM = parseOptional(n.text)
		}
		if n := ch.descendant("ExcitationWavelength"); n != nil {
			c.ExcitationNM = parseOptional(n.text)
		}
		channels = append(channels, c)
	}
	return channels
}

var stageAxes = map[string]string{
	"MTBStageAxisX": "x",
	"MTBStageAxisY": "y",
	"MTBFocus":      "z",
}

func extractPositions(root *node) []Position {
	var positions []Position

	for _, scenes := range root.all("Scenes", nil) {
		for _, scene := range scenes.children {
			if scene.name != "Scene" {
				continue
			}
			list := scene.child("Positions")
			if list == nil {
				continue
			}
			for _, pos := range list.children {
				if pos.name != "Position" {
					continue
				}
				x, _ := pos.attr("X")
				y, _ := pos.attr("Y")
				z, _ := pos.attr("Z")
				positions = append(positions, Position{
					X: parseOptional(x),
					Y: parseOptional(y),
					Z: parseOptional(z),
				})
			}
		}
	}

	var axes Position
	found := false
	for _, pc := range root.all("ParameterCollection", nil) {
		id, _ := pc.attr("Id")
		axis, ok := stageAxes[id]
		if !ok {
			continue
		}
		pos := pc.child("Position")
		if pos == nil || strings.TrimSpace(pos.text) == "" {
			continue
		}
		found = true
		v := parseOptional(pos.text)
		switch axis {
		case "x":
			axes.X = v
		case "y":
			axes.Y = v
		case "z":
			axes.Z = v
		}
	}
	if found {
		positions = append(positions, axes)
	}

	return positions
}

func extractZScan(root *node) *ZScan {
	setup := root.descendant("ZStackSetup")
	if setup == nil {
		return nil
	}

	z := &ZScan{}
	if v, ok := setup.attr("IsActivated"); ok {
		z.Activated = strings.EqualFold(v, "true")
	}
	if c := setup.child("IsCenterMode"); c != nil {
		z.CenterMode = strings.EqualFold(strings.TrimSpace(c.text), "true")
	}
	if c := setup.child("IsIntervalKept"); c != nil {
		z.IntervalKept = strings.EqualFold(strings.TrimSpace(c.text), "true")
	}
	return z
}

func extractTiles(root *node) []Tile {
	var tiles []Tile
	for _, region := range root.all("SingleTileRegion", nil) {
		name, _ := region.attr("Name")
		t := Tile{Name: name}
		if c := region.child("X"); c != nil {
			t.X = parseOptional(c.text)
		}
		if c := region.child("Y"); c != nil {
			t.Y = parseOptional(c.text)
		}
		if c := region.child("Z"); c != nil {
			t.Z = parseOptional(c.text)
		}
		tiles = append(tiles, t)
	}
	return tiles
}

func parseOptional(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
