// Package query turns untrusted parser output into a validated descriptor.
//
// Decode enforces the wire schema, Normalizer canonicalizes values and
// applies what the question text states explicitly, and ApplyContext fills
// the gaps of a follow-up question from the previous turn.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
)

// Placeholders a parser may emit.
const (
	Missing = "__MISSING__"
	Multi   = "__MULTI__"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\s*\n?")
	fenceCloseRe = regexp.MustCompile("\n?```$")
)

var descriptorKeys = map[string]struct{}{
	"query_type":    {},
	"patient_id":    {},
	"patient":       {},
	"metric":        {},
	"game":          {},
	"date":          {},
	"date_range":    {},
	"session":       {},
	"session_range": {},
	"compare_to":    {},
}

var selectorKeys = map[string]struct{}{
	"date":       {},
	"date_range": {},
	"session":    {},
}

var rangeKeys = map[string]struct{}{
	"start": {},
	"end":   {},
}

// StripFences removes a surrounding markdown code fence and returns the
// trimmed body.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = fenceOpenRe.ReplaceAllString(text, "")
		text = fenceCloseRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
	}
	return text
}

// ExtractObject returns text as a single JSON object, or ErrParse when
// anything other than one object is present.
func ExtractObject(text string) ([]byte, error) {
	const op = "query.ExtractObject"
	body := StripFences(text)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return nil, errs.Newf(op, errs.ErrParse, "model did not return a single JSON object")
	}
	dec := json.NewDecoder(strings.NewReader(body))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Newf(op, errs.ErrParse, "model output is not valid JSON: %v", err)
	}
	if dec.More() {
		return nil, errs.Newf(op, errs.ErrParse, "model did not return a single JSON object")
	}
	return []byte(body), nil
}

// Decode validates raw parser output against the descriptor schema. Values
// are returned as given; see Normalizer for canonicalization.
func Decode(raw string) (model.Descriptor, error) {
	const op = "query.Decode"
	var d model.Descriptor

	body, err := ExtractObject(raw)
	if err != nil {
		return d, err
	}
	fields, err := object(body, descriptorKeys, "descriptor")
	if err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if _, both := fields["patient"]; both {
		if _, ok := fields["patient_id"]; ok {
			return d, errs.Newf(op, errs.ErrParse, "use only one of patient_id and patient")
		}
		fields["patient_id"] = fields["patient"]
	}

	qt, _, err := text(fields["query_type"], "query_type", false)
	if err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	d.QueryType = model.QueryType(strings.ToLower(qt))

	if d.PatientID, _, err = text(fields["patient_id"], "patient_id", true); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"metric", &d.Metric},
		{"game", &d.Game},
		{"date", &d.Date},
		{"session", &d.Session},
	} {
		if *f.dst, _, err = text(fields[f.key], f.key, f.key == "session"); err != nil {
			return d, errs.WrapKind(op, errs.ErrParse, err)
		}
	}
	if d.DateRange, err = dateRange(fields["date_range"]); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if d.SessionRange, err = sessionRange(fields["session_range"]); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	if d.CompareTo, err = selector(fields["compare_to"]); err != nil {
		return d, errs.WrapKind(op, errs.ErrParse, err)
	}
	return d, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func object(raw json.RawMessage, allowed map[string]struct{}, what string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object", what)
	}
	var unknown []string
	for k := range fields {
		if _, ok := allowed[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown %s field(s): %s", what, strings.Join(unknown, ", "))
	}
	return fields, nil
}

// text decodes an optional scalar field. Null, "" and Missing mean absent.
// A list, or Multi, means the question named several values.
func text(raw json.RawMessage, name string, allowNumber bool) (string, bool, error) {
	if isNull(raw) {
		return "", false, nil
	}
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, fmt.Errorf("%s must be a string", name)
		}
		s = strings.TrimSpace(s)
		switch {
		case s == "" || strings.EqualFold(s, Missing):
			return "", false, nil
		case strings.EqualFold(s, Multi):
			return "", false, multiErr(name)
		}
		return s, true, nil
	case '[':
		return "", false, multiErr(name)
	}
	if allowNumber {
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			if i, err := n.Int64(); err == nil {
				return strconv.FormatInt(i, 10), true, nil
			}
		}
		return "", false, fmt.Errorf("%s must be a string or an integer", name)
	}
	return "", false, fmt.Errorf("%s must be a string", name)
}

func multiErr(name string) error {
	return fmt.Errorf("more than one %s mentioned, please specify only one %s", name, name)
}

func bounds(raw json.RawMessage, name string, allowNumber bool) (string, string, bool, error) {
	if isNull(raw) {
		return "", "", false, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) != 2 {
			return "", "", false, fmt.Errorf("%s must be an object with start and end", name)
		}
		start, _, err := text(pair[0], name+".start", allowNumber)
		if err != nil {
			return "", "", false, err
		}
		end, _, err := text(pair[1], name+".end", allowNumber)
		if err != nil {
			return "", "", false, err
		}
		return start, end, start != "" || end != "", nil
	}
	fields, err := object(trimmed, rangeKeys, name)
	if err != nil {
		return "", "", false, err
	}
	start, _, err := text(fields["start"], name+".start", allowNumber)
	if err != nil {
		return "", "", false, err
	}
	end, _, err := text(fields["end"], name+".end", allowNumber)
	if err != nil {
		return "", "", false, err
	}
	return start, end, start != "" || end != "", nil
}

func dateRange(raw json.RawMessage) (*model.DateRange, error) {
	start, end, ok, err := bounds(raw, "date_range", false)
	if err != nil || !ok {
		return nil, err
	}
	return &model.DateRange{Start: start, End: end}, nil
}

func sessionRange(raw json.RawMessage) (*model.SessionRange, error) {
	start, end, ok, err := bounds(raw, "session_range", true)
	if err != nil || !ok {
		return nil, err
	}
	return &model.SessionRange{Start: start, End: end}, nil
}

func selector(raw json.RawMessage) (*model.Selector, error) {
	if isNull(raw) {
		return nil, nil
	}
	fields, err := object(raw, selectorKeys, "compare_to")
	if err != nil {
		return nil, err
	}
	var s model.Selector
	if s.Date, _, err = text(fields["date"], "compare_to.date", false); err != nil {
		return nil, err
	}
	if s.Session, _, err = text(fields["session"], "compare_to.session", true); err != nil {
		return nil, err
	}
	if s.DateRange, err = dateRange(fields["date_range"]); err != nil {
		return nil, err
	}
	if s.Empty() {
		return nil, nil
	}
	return &s, nil
}
