// Package mathutil holds small numeric helpers used by report handlers.
package mathutil

import "reflect"

// SumDeep sums the numeric values found depth levels down in data.
//
// data must be a map, slice or array; anything else sums to 0. At depth 1 the
// values of data itself are added, at depth 2 the values of each nested
// collection, and so on. Non-numeric values at the target depth count as 0,
// as does a depth below 1.
func SumDeep(data any, depth int) float64 {
	return sumDeep(reflect.ValueOf(data), depth)
}

func sumDeep(rv reflect.Value, depth int) float64 {
	rv = indirect(rv)
	if depth < 1 || !isCollection(rv) {
		return 0
	}

	var sum float64
	each(rv, func(v reflect.Value) {
		if depth == 1 {
			sum += number(v)
			return
		}
		sum += sumDeep(v, depth-1)
	})
	return sum
}

func isCollection(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func each(rv reflect.Value, fn func(reflect.Value)) {
	if rv.Kind() == reflect.Map {
		iter := rv.MapRange()
		for iter.Next() {
			fn(iter.Value())
		}
		return
	}
	for i := 0; i < rv.Len(); i++ {
		fn(rv.Index(i))
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func number(v reflect.Value) float64 {
	v = indirect(v)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}
