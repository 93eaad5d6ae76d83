package apilint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/daveshanley/vacuum/model"
	"go.yaml.in/yaml/v4"
)

// === YAML helpers ===

func yGet(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(m.Content)-1; i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func yOpID(op *yaml.Node) string {
	if n := yGet(op, "operationId"); n != nil {
		return n.Value
	}
	return ""
}

// opLabel names an operation for messages, falling back to "method path"
// when the operationId is missing.
func opLabel(op *yaml.Node, path, method string) string {
	if id := yOpID(op); id != "" {
		return id
	}
	return method + " " + path
}

var httpMethodSet = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

var camelRe = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)
var snakeRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

type opVisitor = func(path, method string, op *yaml.Node)

func forEachOp(root *yaml.Node, fn opVisitor) {
	paths := yGet(root, "paths")
	if paths == nil {
		return
	}
	for i := 0; i < len(paths.Content)-1; i += 2 {
		pathKey := paths.Content[i].Value
		pathItem := paths.Content[i+1]
		if pathItem.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j < len(pathItem.Content)-1; j += 2 {
			method := pathItem.Content[j].Value
			if httpMethodSet[method] {
				fn(pathKey, method, pathItem.Content[j+1])
			}
		}
	}
}

func hasGlobalSecurity(root *yaml.Node) bool {
	sec := yGet(root, "security")
	return sec != nil && len(sec.Content) > 0
}

// securityDisabled reports whether an operation overrides security to empty.
func securityDisabled(op *yaml.Node) bool {
	sec := yGet(op, "security")
	return sec != nil && len(sec.Content) == 0
}

func rootNode(nodes []*yaml.Node) *yaml.Node {
	if len(nodes) == 0 {
		return nil
	}
	n := nodes[0]
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}

// resolveRefNode follows a local "#/a/b/c" reference to its component node.
// External refs and unresolved paths return nil.
func resolveRefNode(root *yaml.Node, ref string) *yaml.Node {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	node := root
	for _, p := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		node = yGet(node, p)
		if node == nil {
			return nil
		}
	}
	return node
}

func makeResult(msg, path, ruleID string, node *yaml.Node, ctx model.RuleFunctionContext) model.RuleFunctionResult {
	return model.RuleFunctionResult{
		Message:   msg,
		Path:      path,
		RuleId:    ruleID,
		StartNode: node,
		EndNode:   node,
		Rule:      ctx.Rule,
	}
}

// ================================================================
// operation-id: present, unique, lowerCamelCase
// ================================================================

type fnCheckOperationID struct{}

func (f *fnCheckOperationID) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkOperationID"}
}
func (f *fnCheckOperationID) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckOperationID) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	seen := map[string]int{} // operationId → first line
	forEachOp(root, func(path, method string, op *yaml.Node) {
		idNode := yGet(op, "operationId")
		if idNode == nil {
			results = append(results, makeResult(
				fmt.Sprintf("operation %s %s is missing 'operationId'", method, path),
				fmt.Sprintf("$.paths.%s.%s", path, method),
				"check-operation-id", op, ctx))
			return
		}
		if !camelRe.MatchString(idNode.Value) {
			results = append(results, makeResult(
				fmt.Sprintf("operationId %q is not lowerCamelCase", idNode.Value),
				fmt.Sprintf("$.paths.%s.%s.operationId", path, method),
				"check-operation-id", idNode, ctx))
		}
		if prev, ok := seen[idNode.Value]; ok {
			results = append(results, makeResult(
				fmt.Sprintf("duplicate operationId %q (first seen at line %d)", idNode.Value, prev),
				fmt.Sprintf("$.paths.%s.%s.operationId", path, method),
				"check-operation-id", idNode, ctx))
			return
		}
		seen[idNode.Value] = int(idNode.Line)
	})
	return results
}

// ================================================================
// operation-summary: every operation has a summary
// ================================================================

type fnCheckOperationSummary struct{}

func (f *fnCheckOperationSummary) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkOperationSummary"}
}
func (f *fnCheckOperationSummary) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckOperationSummary) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		summary := yGet(op, "summary")
		if summary == nil || strings.TrimSpace(summary.Value) == "" {
			results = append(results, makeResult(
				fmt.Sprintf("operation %q has no summary", opLabel(op, path, method)),
				fmt.Sprintf("$.paths.%s.%s", path, method),
				"check-operation-summary", op, ctx))
		}
	})
	return results
}

// ================================================================
// schema-ref: 2xx JSON responses and JSON request bodies use $ref
// ================================================================

type fnCheckSchemaRef struct{}

func (f *fnCheckSchemaRef) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkSchemaRef"}
}
func (f *fnCheckSchemaRef) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckSchemaRef) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		label := opLabel(op, path, method)
		responses := yGet(op, "responses")
		if responses != nil {
			for i := 0; i < len(responses.Content)-1; i += 2 {
				statusCode := responses.Content[i].Value
				if !strings.HasPrefix(statusCode, "2") {
					continue
				}
				if n := findInlineSchema(responses.Content[i+1]); n != nil {
					results = append(results, makeResult(
						fmt.Sprintf("operation %q response %s uses inline schema instead of $ref", label, statusCode),
						fmt.Sprintf("$.paths.%s.%s.responses.%s", path, method, statusCode),
						"check-schema-ref", n, ctx))
				}
			}
		}
		if reqBody := yGet(op, "requestBody"); reqBody != nil {
			if n := findInlineSchema(reqBody); n != nil {
				results = append(results, makeResult(
					fmt.Sprintf("operation %q requestBody uses inline schema instead of $ref", label),
					fmt.Sprintf("$.paths.%s.%s.requestBody", path, method),
					"check-schema-ref", n, ctx))
			}
		}
	})
	return results
}

// findInlineSchema returns the application/json schema node when it is an
// inline object rather than a $ref. Non-JSON content is not checked.
func findInlineSchema(obj *yaml.Node) *yaml.Node {
	appJSON := yGet(yGet(obj, "content"), "application/json")
	if appJSON == nil {
		return nil
	}
	schema := yGet(appJSON, "schema")
	if schema == nil {
		return nil
	}
	if yGet(schema, "$ref") == nil {
		return schema
	}
	return nil
}

// ================================================================
// error-schema-ref: non-2xx responses resolve to the Error schema
// ================================================================

type fnCheckErrorSchemaRef struct{}

func (f *fnCheckErrorSchemaRef) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkErrorSchemaRef"}
}
func (f *fnCheckErrorSchemaRef) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckErrorSchemaRef) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		responses := yGet(op, "responses")
		if responses == nil {
			return
		}
		label := opLabel(op, path, method)
		for i := 0; i < len(responses.Content)-1; i += 2 {
			statusCode := responses.Content[i].Value
			if strings.HasPrefix(statusCode, "2") {
				continue
			}
			responseObj := responses.Content[i+1]
			// A shared response reference is followed into components.
			target := responseObj
			if refNode := yGet(responseObj, "$ref"); refNode != nil {
				target = resolveRefNode(root, refNode.Value)
				if target == nil {
					continue // refs-resolve reports it
				}
			}
			appJSON := yGet(yGet(target, "content"), "application/json")
			if appJSON == nil {
				continue
			}
			schema := yGet(appJSON, "schema")
			if schema == nil {
				continue
			}
			ref := yGet(schema, "$ref")
			if ref == nil || !strings.HasSuffix(ref.Value, "/Error") {
				results = append(results, makeResult(
					fmt.Sprintf("operation %q response %s should reference the Error schema", label, statusCode),
					fmt.Sprintf("$.paths.%s.%s.responses.%s", path, method, statusCode),
					"check-error-schema-ref", responseObj, ctx))
			}
		}
	})
	return results
}

// ================================================================
// refs-resolve: every local $ref points at a defined component
// ================================================================

type fnCheckRefsResolve struct{}

func (f *fnCheckRefsResolve) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkRefsResolve"}
}
func (f *fnCheckRefsResolve) GetCategory() string { return model.CategorySchemas }

func (f *fnCheckRefsResolve) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			if ref := yGet(n, "$ref"); ref != nil &&
				strings.HasPrefix(ref.Value, "#/") && resolveRefNode(root, ref.Value) == nil {
				results = append(results, makeResult(
					fmt.Sprintf("unresolved $ref %q", ref.Value),
					"$",
					"check-refs-resolve", ref, ctx))
			}
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(root)
	return results
}

// ================================================================
// get-resource-404: GET on parameterized paths includes 404
// ================================================================

type fnCheckGetResource404 struct{}

func (f *fnCheckGetResource404) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkGetResource404"}
}
func (f *fnCheckGetResource404) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckGetResource404) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if method != "get" || !strings.Contains(path, "{") {
			return
		}
		responses := yGet(op, "responses")
		if responses == nil || yGet(responses, "404") != nil {
			return
		}
		results = append(results, makeResult(
			fmt.Sprintf("GET operation %q on resource path should include a 404 response", opLabel(op, path, method)),
			fmt.Sprintf("$.paths.%s.get.responses", path),
			"check-get-resource-404", responses, ctx))
	})
	return results
}

// ================================================================
// mutating-ops-403: mutating operations include 403
// ================================================================

type fnCheckMutatingOps403 struct{}

func (f *fnCheckMutatingOps403) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkMutatingOps403"}
}
func (f *fnCheckMutatingOps403) GetCategory() string { return model.CategorySecurity }

var mutatingMethodSet = map[string]bool{
	"post": true, "put": true, "patch": true, "delete": true,
}

func (f *fnCheckMutatingOps403) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil || !hasGlobalSecurity(root) {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if !mutatingMethodSet[method] || securityDisabled(op) {
			return
		}
		responses := yGet(op, "responses")
		if responses == nil || yGet(responses, "403") != nil {
			return
		}
		results = append(results, makeResult(
			fmt.Sprintf("mutating operation %q should include a 403 response", opLabel(op, path, method)),
			fmt.Sprintf("$.paths.%s.%s.responses", path, method),
			"check-mutating-ops-403", responses, ctx))
	})
	return results
}

// ================================================================
// secured-endpoint-401: secured operations include 401
// ================================================================

type fnCheckSecuredEndpoint401 struct{}

func (f *fnCheckSecuredEndpoint401) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkSecuredEndpoint401"}
}
func (f *fnCheckSecuredEndpoint401) GetCategory() string { return model.CategorySecurity }

func (f *fnCheckSecuredEndpoint401) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil || !hasGlobalSecurity(root) {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if securityDisabled(op) {
			return
		}
		responses := yGet(op, "responses")
		if responses == nil || yGet(responses, "401") != nil {
			return
		}
		results = append(results, makeResult(
			fmt.Sprintf("operation %q is secured but has no 401 response", opLabel(op, path, method)),
			fmt.Sprintf("$.paths.%s.%s.responses", path, method),
			"check-secured-endpoint-401", responses, ctx))
	})
	return results
}

// ================================================================
// delete-responses: DELETE returns 204 and takes no body
// ================================================================

type fnCheckDeleteResponses struct{}

func (f *fnCheckDeleteResponses) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkDeleteResponses"}
}
func (f *fnCheckDeleteResponses) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckDeleteResponses) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if method != "delete" {
			return
		}
		label := opLabel(op, path, method)
		if body := yGet(op, "requestBody"); body != nil {
			results = append(results, makeResult(
				fmt.Sprintf("DELETE operation %q has a requestBody", label),
				fmt.Sprintf("$.paths.%s.delete.requestBody", path),
				"check-delete-responses", body, ctx))
		}
		responses := yGet(op, "responses")
		if responses == nil || yGet(responses, "204") != nil {
			return
		}
		results = append(results, makeResult(
			fmt.Sprintf("DELETE operation %q should include a 204 response", label),
			fmt.Sprintf("$.paths.%s.delete.responses", path),
			"check-delete-responses", responses, ctx))
	})
	return results
}

// ================================================================
// list-schema-shape: *List schemas carry a required collection array
// ================================================================

type fnCheckListSchemaShape struct{}

func (f *fnCheckListSchemaShape) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkListSchemaShape"}
}
func (f *fnCheckListSchemaShape) GetCategory() string { return model.CategorySchemas }

func (f *fnCheckListSchemaShape) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	schemas := yGet(yGet(root, "components"), "schemas")
	if schemas == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	for i := 0; i < len(schemas.Content)-1; i += 2 {
		name := schemas.Content[i].Value
		if !strings.HasSuffix(name, "List") {
			continue
		}
		schema := schemas.Content[i+1]
		props := yGet(schema, "properties")
		if props == nil {
			results = append(results, makeResult(
				fmt.Sprintf("list schema %q has no properties", name),
				fmt.Sprintf("$.components.schemas.%s", name),
				"check-list-schema-shape", schema, ctx))
			continue
		}
		// Exactly one property is the collection: the first array-typed one.
		collection := ""
		for j := 0; j < len(props.Content)-1; j += 2 {
			propName := props.Content[j].Value
			typeNode := yGet(props.Content[j+1], "type")
			if typeNode != nil && typeNode.Value == "array" {
				collection = propName
				break
			}
		}
		if collection == "" {
			results = append(results, makeResult(
				fmt.Sprintf("list schema %q has no array collection property", name),
				fmt.Sprintf("$.components.schemas.%s", name),
				"check-list-schema-shape", props, ctx))
			continue
		}
		if !requiredContains(schema, collection) {
			results = append(results, makeResult(
				fmt.Sprintf("list schema %q collection property %q should be required", name, collection),
				fmt.Sprintf("$.components.schemas.%s", name),
				"check-list-schema-shape", schema, ctx))
		}
		if npt := yGet(props, "next_page_token"); npt != nil {
			typeNode := yGet(npt, "type")
			if typeNode == nil || typeNode.Value != "string" {
				results = append(results, makeResult(
					fmt.Sprintf("list schema %q 'next_page_token' must be type: string", name),
					fmt.Sprintf("$.components.schemas.%s.properties.next_page_token", name),
					"check-list-schema-shape", npt, ctx))
			}
		}
	}
	return results
}

func requiredContains(schema *yaml.Node, prop string) bool {
	required := yGet(schema, "required")
	if required == nil || required.Kind != yaml.SequenceNode {
		return false
	}
	for _, item := range required.Content {
		if item.Value == prop {
			return true
		}
	}
	return false
}

// ================================================================
// pagination-consistency: params and next_page_token go together
// ================================================================

type fnCheckPaginationConsistency struct{}

func (f *fnCheckPaginationConsistency) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkPaginationConsistency"}
}
func (f *fnCheckPaginationConsistency) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckPaginationConsistency) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if method != "get" {
			return
		}
		hasMax, hasPage := paginationParams(root, path, op)
		hasToken := false
		schemaName := ""
		if ref := responseSchemaRef(op, "200"); ref != "" {
			parts := strings.Split(ref, "/")
			schemaName = parts[len(parts)-1]
			if schema := resolveRefNode(root, ref); schema != nil {
				hasToken = yGet(yGet(schema, "properties"), "next_page_token") != nil
			}
		}
		label := opLabel(op, path, method)
		if hasToken && !(hasMax && hasPage) {
			var missing []string
			if !hasMax {
				missing = append(missing, "max_results")
			}
			if !hasPage {
				missing = append(missing, "page_token")
			}
			results = append(results, makeResult(
				fmt.Sprintf("paged operation %q is missing %s parameters", label, strings.Join(missing, ", ")),
				fmt.Sprintf("$.paths.%s.get", path),
				"check-pagination-consistency", op, ctx))
		}
		if !hasToken && (hasMax || hasPage) {
			target := "an inline schema"
			if schemaName != "" {
				target = fmt.Sprintf("%q", schemaName)
			}
			results = append(results, makeResult(
				fmt.Sprintf("operation %q has pagination parameters but its 200 schema %s has no next_page_token", label, target),
				fmt.Sprintf("$.paths.%s.get", path),
				"check-pagination-consistency", op, ctx))
		}
	})
	return results
}

func responseSchemaRef(op *yaml.Node, status string) string {
	responses := yGet(op, "responses")
	appJSON := yGet(yGet(yGet(responses, status), "content"), "application/json")
	if ref := yGet(yGet(appJSON, "schema"), "$ref"); ref != nil {
		return ref.Value
	}
	return ""
}

// paginationParams reports whether the operation declares max_results and
// page_token, either inline or via the shared MaxResults/PageToken components,
// at the operation or path level.
func paginationParams(root *yaml.Node, path string, op *yaml.Node) (hasMaxResults, hasPageToken bool) {
	check := func(params *yaml.Node) {
		if params == nil {
			return
		}
		for _, p := range params.Content {
			if p.Kind != yaml.MappingNode {
				continue
			}
			if nameNode := yGet(p, "name"); nameNode != nil {
				if nameNode.Value == "max_results" {
					hasMaxResults = true
				}
				if nameNode.Value == "page_token" {
					hasPageToken = true
				}
			}
			if refNode := yGet(p, "$ref"); refNode != nil {
				if strings.HasSuffix(refNode.Value, "/MaxResults") {
					hasMaxResults = true
				}
				if strings.HasSuffix(refNode.Value, "/PageToken") {
					hasPageToken = true
				}
			}
		}
	}
	check(yGet(op, "parameters"))
	check(yGet(yGet(yGet(root, "paths"), path), "parameters"))
	return
}

// ================================================================
// param-casing: query snake_case, path camelCase
// ================================================================

type fnCheckParamCasing struct{}

func (f *fnCheckParamCasing) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkParamCasing"}
}
func (f *fnCheckParamCasing) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckParamCasing) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	checkParam := func(p *yaml.Node, where string) {
		if p == nil || p.Kind != yaml.MappingNode {
			return
		}
		inNode := yGet(p, "in")
		nameNode := yGet(p, "name")
		if inNode == nil || nameNode == nil {
			return
		}
		switch inNode.Value {
		case "query":
			if !snakeRe.MatchString(nameNode.Value) {
				results = append(results, makeResult(
					fmt.Sprintf("query parameter %q is not snake_case", nameNode.Value),
					where,
					"check-param-casing", nameNode, ctx))
			}
		case "path":
			if !camelRe.MatchString(nameNode.Value) {
				results = append(results, makeResult(
					fmt.Sprintf("path parameter %q is not camelCase", nameNode.Value),
					where,
					"check-param-casing", nameNode, ctx))
			}
		}
	}
	checkList := func(params *yaml.Node, where string) {
		if params == nil {
			return
		}
		for _, p := range params.Content {
			checkParam(p, where)
		}
	}

	if compParams := yGet(yGet(root, "components"), "parameters"); compParams != nil {
		for i := 0; i < len(compParams.Content)-1; i += 2 {
			checkParam(compParams.Content[i+1], "$.components.parameters."+compParams.Content[i].Value)
		}
	}

	paths := yGet(root, "paths")
	if paths == nil {
		return results
	}
	for i := 0; i < len(paths.Content)-1; i += 2 {
		pathKey := paths.Content[i].Value
		pathItem := paths.Content[i+1]
		checkList(yGet(pathItem, "parameters"), fmt.Sprintf("$.paths.%s.parameters", pathKey))
		for j := 0; j < len(pathItem.Content)-1; j += 2 {
			method := pathItem.Content[j].Value
			if httpMethodSet[method] {
				checkList(yGet(pathItem.Content[j+1], "parameters"),
					fmt.Sprintf("$.paths.%s.%s.parameters", pathKey, method))
			}
		}
	}
	return results
}

// ================================================================
// property-casing: schema properties snake_case
// ================================================================

type fnCheckPropertyCasing struct{}

func (f *fnCheckPropertyCasing) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkPropertyCasing"}
}
func (f *fnCheckPropertyCasing) GetCategory() string { return model.CategorySchemas }

func (f *fnCheckPropertyCasing) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult

	var walk func(n *yaml.Node, context string)
	walk = func(n *yaml.Node, context string) {
		if n == nil || n.Kind != yaml.MappingNode {
			if n != nil {
				for _, c := range n.Content {
					walk(c, context)
				}
			}
			return
		}
		if props := yGet(n, "properties"); props != nil && props.Kind == yaml.MappingNode {
			for j := 0; j < len(props.Content)-1; j += 2 {
				propName := props.Content[j].Value
				if !snakeRe.MatchString(propName) {
					results = append(results, makeResult(
						fmt.Sprintf("property %q%s is not snake_case", propName, context),
						"$",
						"check-property-casing", props.Content[j], ctx))
				}
				walk(props.Content[j+1], context)
			}
		}
		if items := yGet(n, "items"); items != nil {
			walk(items, context)
		}
		if addProps := yGet(n, "additionalProperties"); addProps != nil {
			walk(addProps, context)
		}
	}

	schemas := yGet(yGet(root, "components"), "schemas")
	if schemas != nil {
		for i := 0; i < len(schemas.Content)-1; i += 2 {
			walk(schemas.Content[i+1], fmt.Sprintf(" in schema %q", schemas.Content[i].Value))
		}
	}
	if paths := yGet(root, "paths"); paths != nil {
		// Inline schemas under paths.
		var dig func(n *yaml.Node)
		dig = func(n *yaml.Node) {
			if n == nil {
				return
			}
			if n.Kind == yaml.MappingNode {
				if schema := yGet(n, "schema"); schema != nil {
					walk(schema, "")
				}
			}
			for _, c := range n.Content {
				dig(c)
			}
		}
		dig(paths)
	}
	return results
}

// ================================================================
// post-create-status: POST-create returns 201
// ================================================================

type fnCheckPostCreateStatus struct{}

func (f *fnCheckPostCreateStatus) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkPostCreateStatus"}
}
func (f *fnCheckPostCreateStatus) GetCategory() string { return model.CategoryOperations }

// actionOpSet lists POST operations that act on existing resources rather
// than creating one; a 200 or 202 is the right shape for those.
var actionOpSet = map[string]bool{
	"applyDatasets":  true,
	"triggerDataset": true,
	"scanDatasets":   true,
	"resetWatermark": true,
	"validateFile":   true,
}

func (f *fnCheckPostCreateStatus) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	forEachOp(root, func(path, method string, op *yaml.Node) {
		if method != "post" || actionOpSet[yOpID(op)] {
			return
		}
		responses := yGet(op, "responses")
		if responses == nil {
			return
		}
		if yGet(responses, "200") != nil && yGet(responses, "201") == nil {
			results = append(results, makeResult(
				fmt.Sprintf("POST operation %q returns 200 instead of 201", opLabel(op, path, method)),
				fmt.Sprintf("$.paths.%s.post.responses", path),
				"check-post-create-status", responses, ctx))
		}
	})
	return results
}

// ================================================================
// collection-method-order: GET declared before POST
// ================================================================

type fnCheckCollectionMethodOrder struct{}

func (f *fnCheckCollectionMethodOrder) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkCollectionMethodOrder"}
}
func (f *fnCheckCollectionMethodOrder) GetCategory() string { return model.CategoryOperations }

func (f *fnCheckCollectionMethodOrder) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	paths := yGet(root, "paths")
	if paths == nil {
		return nil
	}
	var results []model.RuleFunctionResult
	for i := 0; i < len(paths.Content)-1; i += 2 {
		pathKey := paths.Content[i].Value
		pathItem := paths.Content[i+1]
		if pathItem.Kind != yaml.MappingNode {
			continue
		}
		getLine, postLine := 0, 0
		var postNode *yaml.Node
		for j := 0; j < len(pathItem.Content)-1; j += 2 {
			m := pathItem.Content[j]
			switch m.Value {
			case "get":
				getLine = int(m.Line)
			case "post":
				postLine = int(m.Line)
				postNode = m
			}
		}
		if getLine > 0 && postLine > 0 && postLine < getLine {
			results = append(results, makeResult(
				fmt.Sprintf("on %q, POST (line %d) is declared before GET (line %d)", pathKey, postLine, getLine),
				fmt.Sprintf("$.paths.%s", pathKey),
				"check-collection-method-order", postNode, ctx))
		}
	}
	return results
}

// ================================================================
// enum-min-values: enums declare at least two values
// ================================================================

type fnCheckEnumMinValues struct{}

func (f *fnCheckEnumMinValues) GetSchema() model.RuleFunctionSchema {
	return model.RuleFunctionSchema{Name: "checkEnumMinValues"}
}
func (f *fnCheckEnumMinValues) GetCategory() string { return model.CategorySchemas }

func (f *fnCheckEnumMinValues) RunRule(nodes []*yaml.Node, ctx model.RuleFunctionContext) []model.RuleFunctionResult {
	root := rootNode(nodes)
	if root == nil {
		return nil
	}
	var results []model.RuleFunctionResult

	var walk func(n *yaml.Node, context string)
	walk = func(n *yaml.Node, context string) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			enumNode := yGet(n, "enum")
			if enumNode != nil && enumNode.Kind == yaml.SequenceNode && len(enumNode.Content) < 2 {
				results = append(results, makeResult(
					fmt.Sprintf("enum%s has only %d value(s)", context, len(enumNode.Content)),
					"$",
					"check-enum-min-values", enumNode, ctx))
			}
		}
		for _, c := range n.Content {
			walk(c, context)
		}
	}

	schemas := yGet(yGet(root, "components"), "schemas")
	if schemas != nil {
		for i := 0; i < len(schemas.Content)-1; i += 2 {
			walk(schemas.Content[i+1], fmt.Sprintf(" in schema %q", schemas.Content[i].Value))
		}
	}
	if paths := yGet(root, "paths"); paths != nil {
		walk(paths, "")
	}
	return results
}
