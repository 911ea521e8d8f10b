package app

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	qs "github.com/derekstavis/go-qs"
	"github.com/pkg/errors"
)

// maxFormIndex is the largest bracket index that still produces an array;
// "a[21]=x" stays an object keyed "21".
const maxFormIndex = 20

var bracketUnescaper = strings.NewReplacer("%5B", "[", "%5D", "]")

// formArray is an array under construction. It may have holes until
// finishForm compacts it.
type formArray map[int]any

// DecodeForm parses an urlencoded body with bracket syntax:
// "a[b][c]=1" becomes {"a": {"b": {"c": "1"}}}, "a[]" and "a[0]" build
// arrays, and repeated or conflicting keys are merged rather than dropped.
func DecodeForm(raw string) (map[string]any, error) {
	out := make(map[string]any)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key := unescapeForm(k)
		if key == "" {
			continue
		}

		// The value is re-escaped so "=" and "&" inside it survive the
		// bracket parse untouched.
		parsed, err := qs.Unmarshal(bracketUnescaper.Replace(url.QueryEscape(key)) + "=" + url.QueryEscape(unescapeForm(v)))
		if err != nil {
			return nil, errors.Wrapf(err, "decode form key %q", key)
		}
		for pk, pv := range parsed {
			pv = toFormArrays(pv)
			if cur, ok := out[pk]; ok {
				pv = mergeForm(cur, pv)
			}
			out[pk] = pv
		}
	}
	for k, v := range out {
		out[k] = finishForm(v)
	}
	return out, nil
}

// unescapeForm keeps malformed escapes as literal text.
func unescapeForm(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// toFormArrays converts slices, and objects whose keys are all small
// indices, into formArrays.
func toFormArrays(v any) any {
	switch t := v.(type) {
	case []any:
		arr := make(formArray, len(t))
		for i, child := range t {
			arr[i] = toFormArrays(child)
		}
		return arr
	case map[string]any:
		arr := make(formArray, len(t))
		for k, child := range t {
			t[k] = toFormArrays(child)
			if n, ok := formIndex(k); ok {
				arr[n] = t[k]
			}
		}
		if len(t) > 0 && len(arr) == len(t) {
			return arr
		}
		return t
	}
	return v
}

func formIndex(k string) (int, bool) {
	n, err := strconv.Atoi(k)
	if err != nil || n < 0 || n > maxFormIndex || strconv.Itoa(n) != k {
		return 0, false
	}
	return n, true
}

// mergeForm merges source into target and returns the result:
//   - scalars on either side collect into an array
//   - arrays merge by index when both elements are containers, and append
//     otherwise
//   - an array merged with an object becomes an object keyed by index
//   - a scalar merged into an object becomes a key set to true
func mergeForm(target, source any) any {
	switch t := target.(type) {
	case map[string]any:
		switch s := source.(type) {
		case map[string]any:
			mergeFormKeys(t, s)
		case formArray:
			mergeFormKeys(t, s.object())
		case string:
			t[s] = true
		}
		return t

	case formArray:
		switch s := source.(type) {
		case formArray:
			for _, i := range s.indices() {
				cur, ok := t[i]
				switch {
				case !ok:
					t[i] = s[i]
				case isFormContainer(cur) && isFormContainer(s[i]):
					t[i] = mergeForm(cur, s[i])
				default:
					t.push(s[i])
				}
			}
			return t
		case map[string]any:
			obj := t.object()
			mergeFormKeys(obj, s)
			return obj
		}
		t.push(source)
		return t
	}

	arr := formArray{0: target}
	if s, ok := source.(formArray); ok {
		for _, i := range s.indices() {
			arr.push(s[i])
		}
		return arr
	}
	arr.push(source)
	return arr
}

func mergeFormKeys(target, source map[string]any) {
	for k, v := range source {
		if cur, ok := target[k]; ok {
			v = mergeForm(cur, v)
		}
		target[k] = v
	}
}

func (a formArray) indices() []int {
	idx := make([]int, 0, len(a))
	for i := range a {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// push appends after the highest index.
func (a formArray) push(v any) {
	next := 0
	for i := range a {
		if i >= next {
			next = i + 1
		}
	}
	a[next] = v
}

func (a formArray) object() map[string]any {
	m := make(map[string]any, len(a))
	for i, v := range a {
		m[strconv.Itoa(i)] = v
	}
	return m
}

func isFormContainer(v any) bool {
	switch v.(type) {
	case map[string]any, formArray:
		return true
	}
	return false
}

// finishForm compacts formArrays into plain slices ordered by index.
func finishForm(v any) any {
	switch t := v.(type) {
	case formArray:
		out := make([]any, 0, len(t))
		for _, i := range t.indices() {
			out = append(out, finishForm(t[i]))
		}
		return out
	case map[string]any:
		for k, child := range t {
			t[k] = finishForm(child)
		}
	}
	return v
}
