// Package mapping loads the ordered list of VLAN mapping rules.
//
// Two formats are accepted, chosen by file extension:
//
//	# rules.csv (.csv, .txt)
//	OLDVLAN,NEWVLAN
//	10,20
//	11,21
//
//	# rules.yaml (.yaml, .yml)
//	rules:
//	  - old: "10"
//	    new: "20"
//
// Loading preserves rule order and does not drop malformed rows; each rule is
// checked with Validate when it is applied so a bad row rejects only itself.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/vlanshift/pkg/util"
)

// Rule moves interfaces from OldVLAN to NewVLAN.
type Rule struct {
	OldVLAN string `yaml:"old" json:"old" validate:"required,number"`
	NewVLAN string `yaml:"new" json:"new" validate:"required,number"`

	// Line is the source line of the rule, 0 when unknown.
	Line int `yaml:"-" json:"line,omitempty"`
}

// String renders the rule as "old->new".
func (r Rule) String() string {
	return r.OldVLAN + "->" + r.NewVLAN
}

var validate = validator.New()

// Validate returns a *util.MappingError when either identifier is empty or
// not a plain decimal number.
func (r Rule) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return util.NewMappingError(r.OldVLAN, r.NewVLAN, r.Line, err.Error())
	}
	fe := fieldErrs[0]
	name := "old VLAN"
	if fe.Field() == "NewVLAN" {
		name = "new VLAN"
	}
	reason := name + " is not numeric"
	if fe.Tag() == "required" {
		reason = name + " is empty"
	}
	return util.NewMappingError(r.OldVLAN, r.NewVLAN, r.Line, reason)
}

// Load reads rules from path, picking the format from the extension.
func Load(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseCSV(f)
	}
}

// ParseCSV reads rules from CSV with an OLDVLAN,NEWVLAN header. Header names
// are case-insensitive and extra columns are ignored.
func ParseCSV(r io.Reader) ([]Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing mapping header: %w", err)
	}

	oldCol, newCol := -1, -1
	for i, h := range header {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case "OLDVLAN":
			oldCol = i
		case "NEWVLAN":
			newCol = i
		}
	}
	if oldCol < 0 || newCol < 0 {
		return nil, fmt.Errorf("mapping header must contain OLDVLAN and NEWVLAN columns, got %q: %w",
			strings.Join(header, ","), util.ErrInvalidConfig)
	}

	var rules []Rule
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing mapping file: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rules = append(rules, Rule{
			OldVLAN: cell(record, oldCol),
			NewVLAN: cell(record, newCol),
			Line:    line,
		})
	}
	return rules, nil
}

type yamlFile struct {
	Rules []yaml.Node `yaml:"rules"`
}

// ParseYAML reads rules from a YAML document with a top-level "rules" list.
func ParseYAML(r io.Reader) ([]Rule, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing mapping YAML: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i := range doc.Rules {
		node := &doc.Rules[i]
		var rule Rule
		if err := node.Decode(&rule); err != nil {
			return nil, fmt.Errorf("parsing mapping rule at line %d: %w", node.Line, err)
		}
		rule.OldVLAN = strings.TrimSpace(rule.OldVLAN)
		rule.NewVLAN = strings.TrimSpace(rule.NewVLAN)
		rule.Line = node.Line
		rules = append(rules, rule)
	}
	return rules, nil
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
