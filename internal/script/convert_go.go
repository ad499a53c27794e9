package script

import (
	"fmt"

	"go.starlark.net/starlark"
)

func starlarkToString(v starlark.Value) (string, error) {
	s, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("expected string, got %s", v.Type())
	}
	return s, nil
}

func starlarkToStringList(v starlark.Value) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []string
	var item starlark.Value
	for iter.Next(&item) {
		s, err := starlarkToString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func starlarkToStringMap(v starlark.Value) (map[string]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	mapping, ok := v.(starlark.IterableMapping)
	if !ok {
		return nil, fmt.Errorf("expected dict, got %s", v.Type())
	}

	out := make(map[string]string)
	for _, item := range mapping.Items() {
		k, err := starlarkToString(item[0])
		if err != nil {
			return nil, err
		}
		val, err := starlarkToString(item[1])
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

func starlarkToBool(v starlark.Value) bool {
	b, ok := v.(starlark.Bool)
	if !ok {
		return false
	}
	return bool(b)
}

func attrString(m starlark.Mapping, key string) (string, bool) {
	v, found, _ := m.Get(starlark.String(key))
	if !found {
		return "", false
	}
	str, err := starlarkToString(v)
	if err != nil {
		return "", false
	}
	return str, true
}

func attrBool(m starlark.Mapping, key string) bool {
	v, found, _ := m.Get(starlark.String(key))
	if !found {
		return false
	}
	return starlarkToBool(v)
}

func attrValue(m starlark.Mapping, key string) (starlark.Value, bool) {
	v, found, _ := m.Get(starlark.String(key))
	return v, found
}
