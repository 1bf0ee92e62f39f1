// Package layering composes value layers ordered from strongest to weakest.
//
// The defaults cache uses it to resolve locale defaults: the active locale
// layer wins and the base locale fills whatever it leaves out.
package layering

import "reflect"

// MergeLayers returns a new value keeping explicit entries from stronger
// layers and filling missing ones from weaker layers. Maps merge per key, nil
// pointers, interfaces, maps and slices count as missing, and every other
// value is taken from the strongest layer whole.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() {
		return zero
	}
	target := reflect.TypeOf(zero)
	if target != nil && merged.Type() != target {
		merged = merged.Convert(target)
	}
	return merged.Interface().(T)
}

// Clone deep copies maps, slices and pointers reachable from value.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	return cloned.Interface().(T)
}

// Lookup returns the entry for key from the strongest layer holding a non-nil
// value for it.
func Lookup[K comparable, V any](key K, layers ...map[K]V) (V, bool) {
	var zero V
	for _, layer := range layers {
		value, ok := layer[key]
		if !ok || isNil(reflect.ValueOf(value)) {
			continue
		}
		return value, true
	}
	return zero, false
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if isNil(strong) {
		return cloneValue(weak)
	}
	switch strong.Kind() {
	case reflect.Pointer:
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type().Elem())
		result.Elem().Set(mergeValue(strong.Elem(), weakElem))
		return result
	case reflect.Interface:
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		return mergeValue(strong.Elem(), weakElem).Convert(strong.Type())
	case reflect.Map:
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && weak.Type() == strong.Type() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			if existing := result.MapIndex(key); existing.IsValid() {
				result.SetMapIndex(key, mergeValue(iter.Value(), existing))
				continue
			}
			result.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return result
	default:
		return cloneValue(strong)
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		return cloneValue(v.Elem()).Convert(v.Type())
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Struct, reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		return clone
	default:
		return reflect.ValueOf(v.Interface())
	}
}
