package analysis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/tidwall/gjson"
)

// schemaKeys lists every key of the structured record, in schema order
var schemaKeys = []string{
	"startup_name",
	"value_proposition",
	"number_of_founders",
	"founders",
	"problem",
	"solution",
	"target_market",
	"traction",
	"funding",
	"notable_points",
	"summary",
	"investor_remark",
}

var firstInt = regexp.MustCompile(`-?\d+`)

// ParseRecord extracts the JSON object from a model reply and coerces it into
// a StructuredRecord. It returns the schema keys the reply left out. The reply
// may wrap the object in code fences or prose, braces in the prose included.
func ParseRecord(reply string) (*domain.StructuredRecord, []string, error) {
	obj, trailing, found := extractObject(reply)
	if obj == "" {
		if found {
			return nil, nil, domain.AnalysisError("Reply does not match the record schema", nil)
		}
		return nil, nil, domain.AnalysisError("Reply contains no JSON object", nil)
	}

	root := gjson.Parse(obj)
	var missing []string
	for _, key := range schemaKeys {
		if !root.Get(key).Exists() {
			missing = append(missing, key)
		}
	}

	record := &domain.StructuredRecord{
		StartupName:      asString(root.Get("startup_name")),
		ValueProposition: asString(root.Get("value_proposition")),
		NumberOfFounders: asIntPtr(root.Get("number_of_founders")),
		Founders:         asNames(root.Get("founders")),
		Problem:          asString(root.Get("problem")),
		Solution:         asString(root.Get("solution")),
		TargetMarket:     asString(root.Get("target_market")),
		Traction:         asString(root.Get("traction")),
		Funding:          asFunding(root.Get("funding")),
		NotablePoints:    asList(root.Get("notable_points")),
		Summary:          asString(root.Get("summary")),
		InvestorRemark:   asString(root.Get("investor_remark")),
	}

	// Some models put the investor remark on a line after the object
	if record.InvestorRemark == "" {
		record.InvestorRemark = trailingRemark(trailing)
	}

	return record, missing, nil
}

// extractObject scans s for the first JSON object that shares a key with the
// record schema and returns it with the prose that follows it. found reports
// whether any JSON object was seen at all.
func extractObject(s string) (obj, trailing string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		found = true
		end := i + int(dec.InputOffset())
		if !hasSchemaKey(gjson.ParseBytes(raw)) {
			// skip past the object; nested braces are not candidates
			i = end - 1
			continue
		}
		return string(raw), strings.ReplaceAll(s[end:], "```", ""), true
	}
	return "", "", found
}

func hasSchemaKey(root gjson.Result) bool {
	if !root.IsObject() {
		return false
	}
	for _, key := range schemaKeys {
		if root.Get(key).Exists() {
			return true
		}
	}
	return false
}

const maxRemarkRunes = 200

var remarkLabel = regexp.MustCompile(`(?i)^\W*(investor\s+)?remark\s*[:\-]\s*`)

var signOffs = []string{"let me know", "i hope", "hope this", "feel free", "if you need", "if you have", "happy to", "would you like", "here is", "here's"}

// trailingRemark returns the one-line remark a reply puts after its JSON
// object, or "" when the prose there is not a remark.
func trailingRemark(prose string) string {
	var lines []string
	for _, l := range strings.Split(prose, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	for _, l := range lines {
		if loc := remarkLabel.FindStringIndex(l); loc != nil {
			return strings.Trim(l[loc[1]:], "\"' ")
		}
	}

	if len(lines) != 1 {
		return ""
	}
	line := strings.Trim(lines[0], "\"' ")
	lower := strings.ToLower(line)
	if utf8.RuneCountInString(line) > maxRemarkRunes || strings.HasSuffix(line, "?") {
		return ""
	}
	for _, p := range signOffs {
		if strings.HasPrefix(lower, p) {
			return ""
		}
	}
	return line
}

func asString(r gjson.Result) string {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return ""
	case r.IsArray():
		return strings.Join(asList(r), "; ")
	case r.IsObject():
		return r.Raw
	default:
		return strings.TrimSpace(r.String())
	}
}

func asStringPtr(r gjson.Result) *string {
	s := asString(r)
	if s == "" {
		return nil
	}
	return &s
}

func asIntPtr(r gjson.Result) *int {
	switch r.Type {
	case gjson.Number:
		n := int(r.Num)
		return &n
	case gjson.String:
		m := firstInt.FindString(r.Str)
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// asList accepts a list, or a single string as a one-element list
func asList(r gjson.Result) []string {
	out := []string{}
	switch {
	case r.IsArray():
		for _, item := range r.Array() {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asNames is asList that also accepts founder objects carrying a name key
func asNames(r gjson.Result) []string {
	if !r.IsArray() {
		return asList(r)
	}
	out := []string{}
	for _, item := range r.Array() {
		if item.IsObject() {
			item = item.Get("name")
		}
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asFunding accepts {"amount","round"} or a bare string amount
func asFunding(r gjson.Result) *domain.Funding {
	switch {
	case r.IsObject():
		f := &domain.Funding{
			Amount: asStringPtr(r.Get("amount")),
			Round:  asStringPtr(r.Get("round")),
		}
		if f.Amount == nil && f.Round == nil {
			return nil
		}
		return f
	case r.Type == gjson.String || r.Type == gjson.Number:
		if amount := asStringPtr(r); amount != nil {
			return &domain.Funding{Amount: amount}
		}
	}
	return nil
}
