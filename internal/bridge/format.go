package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

const indentUnit = "  "

type member struct {
	key   string
	value any
}

// object keeps members in the order a browser enumerates them.
type object []member

// FormatExport re-serializes a JSON document the way a browser's
// JSON.stringify(JSON.parse(data), null, 2) does: two-space indentation,
// surrounding whitespace dropped, numbers in their shortest form, the last
// of any duplicate keys kept, integer-like keys first in ascending order and
// the rest in source order.
func FormatExport(data string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return "", err
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after document", tok)
		}
		return "", err
	}

	var b strings.Builder
	writeValue(&b, v, "")
	return b.String(), nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected %q", t)
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (object, error) {
	obj := object{}
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if i, dup := seen[key]; dup {
			obj[i].value = v
			continue
		}
		seen[key] = len(obj)
		obj = append(obj, member{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	sort.SliceStable(obj, func(i, j int) bool {
		ai, aok := arrayIndex(obj[i].key)
		bi, bok := arrayIndex(obj[j].key)
		if aok && bok {
			return ai < bi
		}
		return aok && !bok
	})
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// arrayIndex reports whether key is a canonical array index, which object
// enumeration puts ahead of every other key.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n >= math.MaxUint32 {
		return 0, false
	}
	return n, true
}

func writeValue(b *strings.Builder, v any, indent string) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		writeString(b, t)
	case json.Number:
		b.WriteString(formatNumber(string(t)))
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return
		}
		inner := indent + indentUnit
		b.WriteString("[\n")
		for i, e := range t {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			writeValue(b, e, inner)
		}
		b.WriteString("\n" + indent + "]")
	case object:
		if len(t) == 0 {
			b.WriteString("{}")
			return
		}
		inner := indent + indentUnit
		b.WriteString("{\n")
		for i, m := range t {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			writeString(b, m.key)
			b.WriteString(": ")
			writeValue(b, m.value, inner)
		}
		b.WriteString("\n" + indent + "}")
	}
}

// formatNumber prints a JSON number literal the way a JavaScript number
// converts to a string. Values too large for a float64 become null.
func formatNumber(lit string) string {
	f, _ := strconv.ParseFloat(lit, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
