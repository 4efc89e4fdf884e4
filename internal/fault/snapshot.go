package fault

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxDepth bounds the diagnostic walk so cyclic state cannot recurse forever.
const MaxDepth = 64

// Type tags of values that serialise cleanly.
const (
	TagArray   = "Array"
	TagBoolean = "Boolean"
	TagDate    = "Date"
	TagNumber  = "Number"
	TagObject  = "Object"
	TagString  = "String"

	// TagMaxDepth marks a node the walk refused to descend into.
	TagMaxDepth = "max-depth"
)

var timeType = reflect.TypeOf(time.Time{})

// Finding is a value whose type is outside the allowed set.
type Finding struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Snapshot walks state and reports every value that is not an array, boolean,
// date, number, plain object or string. Paths look like ".players[0].deck".
func Snapshot(state any, maxDepth int) []Finding {
	w := walker{maxDepth: maxDepth, findings: []Finding{}}
	w.visit(reflect.ValueOf(state), "", 0)
	return w.findings
}

type walker struct {
	maxDepth int
	findings []Finding
}

func (w *walker) visit(v reflect.Value, path string, depth int) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return
	}

	tag := typeTag(v)
	if tag != TagArray && tag != TagObject {
		if !allowed(tag) {
			w.findings = append(w.findings, Finding{Path: path, Type: tag})
		}
		return
	}

	if depth >= w.maxDepth {
		w.findings = append(w.findings, Finding{Path: path, Type: TagMaxDepth})
		return
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.visit(v.Index(i), path+"["+strconv.Itoa(i)+"]", depth+1)
		}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keyString(keys[i]) < keyString(keys[j]) })
		for _, k := range keys {
			w.visit(v.MapIndex(k), path+"."+keyString(k), depth+1)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := fieldName(f)
			if skip {
				continue
			}
			w.visit(v.Field(i), path+"."+name, depth+1)
		}
	}
}

// typeTag names v the way a serialiser sees it.
func typeTag(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Bool:
		return TagBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TagNumber
	case reflect.String:
		return TagString
	case reflect.Slice, reflect.Array:
		return TagArray
	case reflect.Map:
		if serialisableKey(v.Type().Key()) {
			return TagObject
		}
		return v.Type().String()
	case reflect.Struct:
		if v.Type() == timeType {
			return TagDate
		}
		return TagObject
	default:
		return v.Type().String()
	}
}

func allowed(tag string) bool {
	switch tag {
	case TagArray, TagBoolean, TagDate, TagNumber, TagObject, TagString:
		return true
	}
	return false
}

func serialisableKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func keyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return k.Type().String()
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}
