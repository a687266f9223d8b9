package sim

// Deps maps dependency names to their resolved values. Injectables resolve
// to plain values; tables resolve to Table handles.
type Deps map[string]any

// Get returns the value for name.
func (d Deps) Get(name string) (any, error) {
	v, ok := d[name]
	if !ok {
		return nil, &MissingDependencyError{Names: []string{name}}
	}
	return v, nil
}

// Table returns the table handle injected under name.
func (d Deps) Table(name string) (Table, error) {
	v, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	t, ok := v.(Table)
	if !ok {
		return nil, &TypeMismatchError{Kind: "table dependency", Name: name, Value: v}
	}
	return t, nil
}

// Int returns an integer injectable. Any Go integer type is accepted.
func (d Deps) Int(name string) (int, error) {
	v, err := d.Get(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint32:
		return int(x), nil
	}
	return 0, &TypeMismatchError{Kind: "int dependency", Name: name, Value: v}
}

// Float64 returns a numeric injectable as float64.
func (d Deps) Float64(name string) (float64, error) {
	v, err := d.Get(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, &TypeMismatchError{Kind: "float dependency", Name: name, Value: v}
}

// String returns a string injectable.
func (d Deps) String(name string) (string, error) {
	v, err := d.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeMismatchError{Kind: "string dependency", Name: name, Value: v}
	}
	return s, nil
}
