// Package apilint lints the OpenAPI 3.x document for this API's conventions:
// camelCase operationIds, $ref'd schemas, the Error envelope on every non-2xx
// response, resource-named list schemas, and pagination parameter consistency.
// The checks are written as vacuum rule functions so they can also run inside
// a vacuum ruleset; Run bridges their results back to line-numbered findings.
package apilint

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/daveshanley/vacuum/model"
	"go.yaml.in/yaml/v4"
)

// Severity levels for lint violations.
type Severity string

// Severity constants.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// sevRank maps severity to a numeric rank for comparison.
var sevRank = map[Severity]int{SeverityInfo: 0, SeverityWarning: 1, SeverityError: 2}

// Violation is a single lint finding.
type Violation struct {
	File     string
	Line     int
	RuleID   string
	Severity Severity
	Message  string
}

// String formats a violation in golangci-lint style.
func (v Violation) String() string {
	return fmt.Sprintf("%s:%d: %s %s: %s", v.File, v.Line, v.RuleID, v.Severity, v.Message)
}

// RuleInfo describes one registered rule for introspection (-list-rules).
type RuleInfo struct {
	ID          string
	Description string
	Severity    Severity
}

// ruleSpec binds a vacuum rule function to its ID and default severity.
type ruleSpec struct {
	id          string
	description string
	severity    Severity
	fn          model.RuleFunction
}

// ruleTable lists every rule in execution order.
var ruleTable = []ruleSpec{
	{"operation-id", "operations have a unique lowerCamelCase operationId", SeverityError, &fnCheckOperationID{}},
	{"operation-summary", "operations have a summary", SeverityWarning, &fnCheckOperationSummary{}},
	{"schema-ref", "2xx JSON responses and JSON request bodies use $ref, not inline schemas", SeverityWarning, &fnCheckSchemaRef{}},
	{"error-schema-ref", "non-2xx responses resolve to the Error schema", SeverityError, &fnCheckErrorSchemaRef{}},
	{"refs-resolve", "every local $ref points at a defined component", SeverityError, &fnCheckRefsResolve{}},
	{"get-resource-404", "GET operations on parameterized paths include a 404 response", SeverityWarning, &fnCheckGetResource404{}},
	{"mutating-ops-403", "mutating operations include a 403 response", SeverityWarning, &fnCheckMutatingOps403{}},
	{"secured-endpoint-401", "secured operations include a 401 response", SeverityWarning, &fnCheckSecuredEndpoint401{}},
	{"delete-responses", "DELETE operations return 204 and take no request body", SeverityWarning, &fnCheckDeleteResponses{}},
	{"list-schema-shape", "*List schemas carry a required collection array and a string next_page_token when paged", SeverityError, &fnCheckListSchemaShape{}},
	{"pagination-consistency", "max_results/page_token parameters and next_page_token in the 200 schema go together", SeverityError, &fnCheckPaginationConsistency{}},
	{"param-casing", "query parameters are snake_case, path parameters camelCase", SeverityError, &fnCheckParamCasing{}},
	{"property-casing", "schema properties are snake_case", SeverityError, &fnCheckPropertyCasing{}},
	{"post-create-status", "POST-create operations return 201, not 200", SeverityWarning, &fnCheckPostCreateStatus{}},
	{"collection-method-order", "on collection paths GET is declared before POST", SeverityInfo, &fnCheckCollectionMethodOrder{}},
	{"enum-min-values", "enums declare at least two values", SeverityInfo, &fnCheckEnumMinValues{}},
}

// Rules returns the registered rules for introspection.
func Rules() []RuleInfo {
	out := make([]RuleInfo, 0, len(ruleTable))
	for _, spec := range ruleTable {
		out = append(out, RuleInfo{ID: spec.id, Description: spec.description, Severity: spec.severity})
	}
	return out
}

// RuleFunctions exposes the checks as vacuum custom functions, keyed by
// function name, for embedding in a vacuum ruleset.
func RuleFunctions() map[string]model.RuleFunction {
	out := make(map[string]model.RuleFunction, len(ruleTable))
	for _, spec := range ruleTable {
		out[spec.fn.GetSchema().Name] = spec.fn
	}
	return out
}

// Linter holds one parsed OpenAPI document.
type Linter struct {
	file string
	doc  *yaml.Node
	root *yaml.Node
}

// New reads and parses the YAML file at path.
func New(path string) (*Linter, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewFromBytes(path, data)
}

// NewFromBytes parses an in-memory document. The name is used in findings,
// so the embedded server spec can be linted without touching disk.
func NewFromBytes(name string, data []byte) (*Linter, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s: empty or invalid YAML document", name)
	}
	return &Linter{file: name, doc: &doc, root: doc.Content[0]}, nil
}

// Run executes every rule at its default severity and returns violations
// sorted by line number.
func (l *Linter) Run() []Violation {
	return l.RunWithConfig(nil)
}

// RunWithConfig executes every rule using the given configuration (nil for
// defaults). Rules overridden to "off" are skipped. Inline suppression
// comments are honoured.
func (l *Linter) RunWithConfig(cfg *Config) []Violation {
	var vs []Violation
	for _, spec := range ruleTable {
		sev := effectiveSeverity(cfg, spec)
		if sev == "" { // "off"
			continue
		}
		for _, res := range spec.fn.RunRule([]*yaml.Node{l.doc}, model.RuleFunctionContext{}) {
			line := 0
			if res.StartNode != nil {
				line = int(res.StartNode.Line)
			}
			if isSuppressed(l.root, line, spec.id) {
				continue
			}
			vs = append(vs, Violation{
				File:     l.file,
				Line:     line,
				RuleID:   spec.id,
				Severity: sev,
				Message:  res.Message,
			})
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Line < vs[j].Line })
	return vs
}

// HasErrors reports whether any violation has error severity.
func HasErrors(vs []Violation) bool {
	for _, v := range vs {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter returns violations at or above the given severity.
func Filter(vs []Violation, minSev Severity) []Violation {
	minRank := sevRank[minSev]
	var out []Violation
	for _, v := range vs {
		if sevRank[v.Severity] >= minRank {
			out = append(out, v)
		}
	}
	return out
}

// === Inline suppression ===

// suppressRe matches YAML comments like "apilint:ignore schema-ref enum-min-values".
var suppressRe = regexp.MustCompile(`apilint:ignore\s+([a-z][a-z0-9-]*(?:\s+[a-z][a-z0-9-]*)*)`)

// isSuppressed returns true if the rule is suppressed at the given line via a
// YAML comment containing "apilint:ignore <rule-id>". It checks the node at
// the violation line, the node one line above (parent key comments), and
// ancestor mapping keys whose value spans the line.
func isSuppressed(root *yaml.Node, line int, ruleID string) bool {
	if node := findNodeAtLine(root, line); node != nil {
		if commentSuppresses(node.LineComment, ruleID) ||
			commentSuppresses(node.HeadComment, ruleID) {
			return true
		}
	}
	if node := findNodeAtLine(root, line-1); node != nil {
		if commentSuppresses(node.LineComment, ruleID) ||
			commentSuppresses(node.HeadComment, ruleID) {
			return true
		}
	}
	return ancestorSuppresses(root, line, ruleID)
}

func ancestorSuppresses(n *yaml.Node, line int, ruleID string) bool {
	if n == nil {
		return false
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i < len(n.Content)-1; i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			if int(keyNode.Line) <= line && containsLine(valNode, line) {
				if commentSuppresses(keyNode.LineComment, ruleID) ||
					commentSuppresses(keyNode.HeadComment, ruleID) {
					return true
				}
				return ancestorSuppresses(valNode, line, ruleID)
			}
		}
	}
	for _, c := range n.Content {
		if containsLine(c, line) {
			if ancestorSuppresses(c, line, ruleID) {
				return true
			}
		}
	}
	return false
}

func containsLine(n *yaml.Node, line int) bool {
	if n == nil {
		return false
	}
	if int(n.Line) == line {
		return true
	}
	for _, c := range n.Content {
		if containsLine(c, line) {
			return true
		}
	}
	return false
}

func findNodeAtLine(n *yaml.Node, line int) *yaml.Node {
	if n == nil {
		return nil
	}
	if int(n.Line) == line {
		return n
	}
	for _, c := range n.Content {
		if found := findNodeAtLine(c, line); found != nil {
			return found
		}
	}
	return nil
}

func commentSuppresses(comment, ruleID string) bool {
	if comment == "" {
		return false
	}
	for _, m := range suppressRe.FindAllStringSubmatch(comment, -1) {
		for _, id := range strings.Fields(m[1]) {
			if id == ruleID {
				return true
			}
		}
	}
	return false
}
