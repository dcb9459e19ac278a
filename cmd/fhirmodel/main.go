// Package main implements the fhirmodel CLI tool: format conversion
// and inspection for raw FHIR payloads.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	fhirmodel "github.com/gofhir/model"
	"github.com/gofhir/model/loader"
)

const (
	version = "0.1.0"
	usage   = `fhirmodel - FHIR payload conversion and inspection

Usage:
  fhirmodel [options] <file>...
  fhirmodel [options] -          (read from stdin)
  cat patient.json | fhirmodel -

Examples:
  fhirmodel patient.json
  fhirmodel -to yaml patient.json
  fhirmodel -to json -indent 2 patient.yaml
  fhirmodel -strip-comments patient.json
  fhirmodel -type patient.json

Options:
`
)

type config struct {
	To            string
	Indent        int
	StripComments bool
	TypeOnly      bool
	ShowVersion   bool
	Files         []string
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("fhirmodel v%s\n", version)
		os.Exit(0)
	}
	if len(cfg.Files) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

func parseFlags() *config {
	cfg := &config{}

	flag.StringVar(&cfg.To, "to", "json", "Output format: json, yaml")
	flag.IntVar(&cfg.Indent, "indent", 0, "Indent width for JSON output")
	flag.BoolVar(&cfg.StripComments, "strip-comments", false, "Remove fhir_comments annotations at every depth")
	flag.BoolVar(&cfg.TypeOnly, "type", false, "Print only the declared resourceType")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.To = strings.ToLower(cfg.To)
	cfg.Files = flag.Args()
	return cfg
}

func run(cfg *config) int {
	exit := 0
	for _, file := range cfg.Files {
		if err := processFile(cfg, file); err != nil {
			fmt.Fprintf(os.Stderr, "fhirmodel: %s: %v\n", file, err)
			exit = 1
		}
	}
	return exit
}

func processFile(cfg *config, file string) error {
	var values map[string]any
	var err error
	if file == "-" {
		var data []byte
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		if cfg.TypeOnly {
			return printType(data)
		}
		values, err = loader.LoadBytes(data, loader.ContentTypeUnknown)
	} else {
		if cfg.TypeOnly {
			data, rerr := os.ReadFile(file)
			if rerr != nil {
				return rerr
			}
			return printType(data)
		}
		values, err = loader.LoadFile(file)
	}
	if err != nil {
		return err
	}

	var tree any = values
	if cfg.StripComments {
		tree = fhirmodel.StripComments(tree)
		if tree == nil {
			tree = map[string]any{}
		}
	}

	switch cfg.To {
	case "json":
		return writeJSON(tree, cfg.Indent)
	case "yaml":
		return writeYAML(tree)
	default:
		return fmt.Errorf("unknown output format %q", cfg.To)
	}
}

func printType(data []byte) error {
	name := loader.PeekResourceType(data)
	if name == "" {
		return fmt.Errorf("payload declares no resourceType")
	}
	fmt.Println(name)
	return nil
}

// writeJSON keeps resourceType first and sorts the remaining keys, so
// converted output stays diffable.
func writeJSON(tree any, indent int) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc.Encode(orderTree(tree))
}

func writeYAML(tree any) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(orderTree(tree))
}

// orderTree rewrites mappings into explicit key/value pair lists with
// resourceType leading and the remaining keys sorted, since plain maps
// lose ordering through both encoders.
func orderTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if k == "resourceType" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if _, ok := t["resourceType"]; ok {
			keys = append([]string{"resourceType"}, keys...)
		}
		pairs := make(orderedPairs, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, pair{Key: k, Value: orderTree(t[k])})
		}
		return pairs
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = orderTree(item)
		}
		return out
	default:
		return v
	}
}

type pair struct {
	Key   string
	Value any
}

type orderedPairs []pair

func (p orderedPairs) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, kv := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (p orderedPairs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range p {
		valNode, err := yamlValueNode(kv.Value)
		if err != nil {
			return nil, err
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: kv.Key}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// yamlValueNode encodes a value for YAML output. json.Number becomes an
// untagged scalar so numbers come out bare and keep their full
// precision, at any depth.
func yamlValueNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case json.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: t.String()}, nil
	case orderedPairs:
		out, err := t.MarshalYAML()
		if err != nil {
			return nil, err
		}
		return out.(*yaml.Node), nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			child, err := yamlValueNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}
