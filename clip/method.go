package clip

import (
	"fmt"
	"strings"
)

// Method selects how the selection may be changed.
type Method int

const (
	// Manual allows free moving and resizing.
	Manual Method = iota
	// Fixed keeps a caller supplied box size; the box can be moved but not resized.
	Fixed
	// Custom allows manual resizing or typing an exact size, see InputMode.
	Custom
)

var methodNames = map[Method]string{
	Manual: "manual",
	Fixed:  "fixed",
	Custom: "custom",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod parses a method name. The empty string is Manual.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return Manual, nil
	}
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return Manual, &ConfigurationError{Reason: fmt.Sprintf("unknown clip method %q", s)}
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// InputMode is the sub-mode of the Custom method.
type InputMode int

const (
	// InputManual sizes the selection with the handles.
	InputManual InputMode = iota
	// InputTyped sizes the selection from typed width and height; handles are locked.
	InputTyped
)

func (m InputMode) String() string {
	switch m {
	case InputManual:
		return "manual"
	case InputTyped:
		return "typed"
	}
	return fmt.Sprintf("InputMode(%d)", int(m))
}

func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(s) {
	case "", "manual":
		return InputManual, nil
	case "typed", "custom":
		return InputTyped, nil
	}
	return InputManual, fmt.Errorf("unknown input mode %q", s)
}

func (m InputMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *InputMode) UnmarshalText(text []byte) error {
	parsed, err := ParseInputMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
