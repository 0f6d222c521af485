package invariant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ForbiddenFields are field names that would expose more than one choice.
var ForbiddenFields = []string{
	"options",
	"alternatives",
	"suggestions",
	"choices",
	"list",
	"items",
	"candidates",
	"recommendations",
	"results",
}

var forbidden = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ForbiddenFields))
	for _, name := range ForbiddenFields {
		m[name] = struct{}{}
	}
	return m
}()

// Violation is a structural contract failure.
type Violation struct {
	Path   string
	Rule   string
	Detail string
}

func (v *Violation) Error() string {
	path := v.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("invariant violation (%s) at %s: %s", v.Rule, path, v.Detail)
}

// ErrorKind classifies the error for logging and exit codes.
func (v *Violation) ErrorKind() string {
	return "invariant"
}

const (
	RuleMalformed     = "malformed"
	RuleArray         = "array"
	RuleForbidden     = "forbidden_field"
	RuleShape         = "shape"
	RuleRequired      = "required_field"
	RuleType          = "wrong_type"
	RuleUnknownField  = "unknown_field"
	RuleDecisionValue = "decision_value"
)

var (
	actionFields = map[string][]field{
		"cook": {
			{"mealId", kindString},
			{"title", kindString},
			{"steps", kindString},
			{"estMinutes", kindNumber},
		},
		"order": {
			{"vendorKey", kindString},
			{"deepLinkUrl", kindString},
			{"title", kindString},
		},
		"zero_cook": {
			{"title", kindString},
			{"steps", kindString},
		},
	}
	responseFields = map[string]struct{}{"decision": {}, "drmRecommended": {}, "reason": {}, "autopilot": {}}
	rescueFields   = map[string]struct{}{"rescue": {}, "exhausted": {}}
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

type field struct {
	name string
	kind kind
}

// ValidateAction checks one action object.
func ValidateAction(payload []byte) error {
	root, err := parseObject(payload)
	if err != nil {
		return err
	}
	if err := walk(root, ""); err != nil {
		return err
	}
	return checkAction(root, "")
}

// ValidateResponse checks a decision response: exactly decision,
// drmRecommended, reason and autopilot.
func ValidateResponse(payload []byte) error {
	root, err := parseObject(payload)
	if err != nil {
		return err
	}
	if err := walk(root, ""); err != nil {
		return err
	}
	if err := onlyFields(root, responseFields); err != nil {
		return err
	}
	if err := requireKind(root, "", "drmRecommended", kindBool, false); err != nil {
		return err
	}
	if err := optionalKind(root, "", "reason", kindString); err != nil {
		return err
	}
	if err := optionalKind(root, "", "autopilot", kindBool); err != nil {
		return err
	}
	return checkSingle(root, "decision")
}

// ValidateRescue checks a DRM response: exactly rescue and exhausted.
func ValidateRescue(payload []byte) error {
	root, err := parseObject(payload)
	if err != nil {
		return err
	}
	if err := walk(root, ""); err != nil {
		return err
	}
	if err := onlyFields(root, rescueFields); err != nil {
		return err
	}
	if err := requireKind(root, "", "exhausted", kindBool, false); err != nil {
		return err
	}
	return checkSingle(root, "rescue")
}

// MarshalAction encodes v and validates it as an action, returning the
// validated bytes.
func MarshalAction(v any) ([]byte, error) {
	return marshalChecked(v, ValidateAction)
}

// MarshalResponse encodes v and validates it as a decision response.
func MarshalResponse(v any) ([]byte, error) {
	return marshalChecked(v, ValidateResponse)
}

// MarshalRescue encodes v and validates it as a DRM response.
func MarshalRescue(v any) ([]byte, error) {
	return marshalChecked(v, ValidateRescue)
}

func marshalChecked(v any, validate func([]byte) error) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &Violation{Rule: RuleMalformed, Detail: err.Error()}
	}
	if err := validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

func parseObject(payload []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, &Violation{Rule: RuleMalformed, Detail: "payload is not valid JSON"}
	}
	root := gjson.ParseBytes(payload)
	if root.IsArray() {
		return gjson.Result{}, &Violation{Rule: RuleArray, Detail: "payload is an array"}
	}
	if !root.IsObject() {
		return gjson.Result{}, &Violation{Rule: RuleShape, Detail: "payload must be an object"}
	}
	return root, nil
}

// walk rejects arrays and forbidden field names anywhere below value.
func walk(value gjson.Result, path string) error {
	if value.IsArray() {
		return &Violation{Path: path, Rule: RuleArray, Detail: "arrays are not allowed"}
	}
	if !value.IsObject() {
		return nil
	}
	var violation error
	value.ForEach(func(key, child gjson.Result) bool {
		name := key.String()
		childPath := joinPath(path, name)
		if _, bad := forbidden[strings.ToLower(name)]; bad {
			violation = &Violation{Path: childPath, Rule: RuleForbidden, Detail: fmt.Sprintf("field %q is not allowed", name)}
			return false
		}
		if err := walk(child, childPath); err != nil {
			violation = err
			return false
		}
		return true
	})
	return violation
}

func checkSingle(root gjson.Result, name string) error {
	value := root.Get(name)
	if !value.Exists() {
		return &Violation{Path: name, Rule: RuleRequired, Detail: "field is required"}
	}
	switch {
	case value.Type == gjson.Null:
		return nil
	case value.IsObject():
		return checkAction(value, name)
	default:
		return &Violation{Path: name, Rule: RuleDecisionValue, Detail: "must be a single object or null"}
	}
}

func checkAction(obj gjson.Result, path string) error {
	if err := requireKind(obj, path, "decisionType", kindString, true); err != nil {
		return err
	}
	decisionType := obj.Get("decisionType").String()
	fields, ok := actionFields[decisionType]
	if !ok {
		return &Violation{Path: joinPath(path, "decisionType"), Rule: RuleType, Detail: fmt.Sprintf("unknown decision type %q", decisionType)}
	}
	if err := requireKind(obj, path, "decisionEventId", kindString, true); err != nil {
		return err
	}
	if err := requireKind(obj, path, "contextHash", kindString, true); err != nil {
		return err
	}
	for _, f := range fields {
		nonEmpty := f.name == "mealId" || f.name == "vendorKey" || f.name == "deepLinkUrl"
		if err := requireKind(obj, path, f.name, f.kind, nonEmpty); err != nil {
			return err
		}
	}
	return nil
}

func onlyFields(obj gjson.Result, allowed map[string]struct{}) error {
	var violation error
	obj.ForEach(func(key, _ gjson.Result) bool {
		if _, ok := allowed[key.String()]; !ok {
			violation = &Violation{Path: key.String(), Rule: RuleUnknownField, Detail: "field is not part of the contract"}
			return false
		}
		return true
	})
	return violation
}

func requireKind(obj gjson.Result, path, name string, want kind, nonEmpty bool) error {
	value := obj.Get(name)
	fieldPath := joinPath(path, name)
	if !value.Exists() || value.Type == gjson.Null {
		return &Violation{Path: fieldPath, Rule: RuleRequired, Detail: "field is required"}
	}
	if !hasKind(value, want) {
		return &Violation{Path: fieldPath, Rule: RuleType, Detail: "wrong type " + value.Type.String()}
	}
	if nonEmpty && want == kindString && strings.TrimSpace(value.String()) == "" {
		return &Violation{Path: fieldPath, Rule: RuleRequired, Detail: "field must not be empty"}
	}
	return nil
}

func optionalKind(obj gjson.Result, path, name string, want kind) error {
	value := obj.Get(name)
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}
	if !hasKind(value, want) {
		return &Violation{Path: joinPath(path, name), Rule: RuleType, Detail: "wrong type " + value.Type.String()}
	}
	return nil
}

func hasKind(value gjson.Result, want kind) bool {
	switch want {
	case kindString:
		return value.Type == gjson.String
	case kindNumber:
		return value.Type == gjson.Number
	case kindBool:
		return value.Type == gjson.True || value.Type == gjson.False
	}
	return false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
