// Package plan reads import plan files: which company the debts belong to
// and where the rows come from.
package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/source"
)

type Plan struct {
	Company models.Company `yaml:"company"`
	Source  SourceSpec     `yaml:"source"`

	dir string
}

// SourceSpec describes the input. Type may be omitted when File has a
// recognizable extension.
type SourceSpec struct {
	Type     string     `yaml:"type"`
	File     string     `yaml:"file"`
	Encoding string     `yaml:"encoding"`
	Records  [][]string `yaml:"records"`
}

// Load reads and validates a plan. Relative source paths are resolved
// against the directory of the plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	p.dir = filepath.Dir(path)
	return p, nil
}

// Parse decodes and validates plan YAML.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) validate() error {
	if strings.TrimSpace(p.Company.Name) == "" && strings.TrimSpace(p.Company.TaxID) == "" {
		return fmt.Errorf("plan has no company")
	}
	kind, err := source.ParseKind(p.Source.Type)
	if err != nil {
		return err
	}
	switch {
	case kind == source.KindLiteral && len(p.Source.Records) == 0:
		return fmt.Errorf("literal source has no records")
	case kind != source.KindLiteral && p.Source.File == "" && len(p.Source.Records) == 0:
		return fmt.Errorf("plan has no source file")
	}
	return nil
}

// Kind is the effective source type.
func (p *Plan) Kind() source.Kind {
	kind, _ := source.ParseKind(p.Source.Type)
	if kind != "" {
		return kind
	}
	if p.Source.File == "" {
		return source.KindLiteral
	}
	return source.DetectKind(p.Source.File)
}

// File returns the source path with ~ expanded and relative paths anchored
// at the plan directory.
func (p *Plan) File() (string, error) {
	f := p.Source.File
	if f == "" {
		return "", nil
	}
	if f == "~" || strings.HasPrefix(f, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(f[1:], "/")), nil
	}
	if !filepath.IsAbs(f) && p.dir != "" {
		return filepath.Join(p.dir, f), nil
	}
	return f, nil
}

// Open builds the source the plan points at.
func (p *Plan) Open() (source.Source, error) {
	switch p.Kind() {
	case source.KindLiteral:
		return &source.Literal{Records: p.Source.Records}, nil
	case source.KindXLS:
		f, err := p.File()
		if err != nil {
			return nil, err
		}
		return &source.XLS{Name: f, Encoding: p.Source.Encoding}, nil
	default:
		f, err := p.File()
		if err != nil {
			return nil, err
		}
		return &source.CSV{Name: f, Encoding: p.Source.Encoding}, nil
	}
}

func (p *Plan) Print(w io.Writer) {
	fmt.Fprintf(w, "Company: %s (cnpj %s)\n", p.Company.Name, p.Company.TaxID)
	switch p.Kind() {
	case source.KindLiteral:
		fmt.Fprintf(w, "Source: literal, %d records\n", len(p.Source.Records))
	default:
		f, _ := p.File()
		enc := p.Source.Encoding
		if enc == "" {
			enc = "utf-8"
		}
		fmt.Fprintf(w, "Source: %s %s (%s)\n", p.Kind(), f, enc)
	}
}
