package xmlser

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Registry errors.
var (
	ErrNotStruct    = errors.New("descriptor target must be a struct type")
	ErrUnknownField = errors.New("descriptor references unknown field")
	ErrUnregistered = errors.New("type has no XML descriptor")
	ErrNoFormatter  = errors.New("formatter not registered")
)

// QName is a namespace-qualified XML name.
type QName struct {
	Space string
	Local string
}

// Name builds a QName.
func Name(space, local string) QName {
	return QName{Space: space, Local: local}
}

// FieldKind says how a struct field is written.
type FieldKind int

const (
	// KindElement writes the field as nested element(s). This is the implicit
	// kind for struct, pointer and slice fields without metadata.
	KindElement FieldKind = iota
	// KindAttr writes the field as an attribute of the enclosing element.
	KindAttr
	// KindIgnore skips the field entirely.
	KindIgnore
)

// FieldMeta describes one struct field.
type FieldMeta struct {
	Kind FieldKind
	// Name overrides the attribute or element name. An empty Local defaults
	// to the lower-cased Go field name for attributes and to the type name
	// for elements.
	Name QName
	// Formatter names a formatter registered with RegisterFormatter.
	Formatter string
}

// Attr describes an attribute field.
func Attr(local string) FieldMeta {
	return FieldMeta{Kind: KindAttr, Name: QName{Local: local}}
}

// AttrNS describes a namespaced attribute field.
func AttrNS(space, local string) FieldMeta {
	return FieldMeta{Kind: KindAttr, Name: QName{Space: space, Local: local}}
}

// FormattedAttr describes an attribute written through a named formatter.
func FormattedAttr(local, formatter string) FieldMeta {
	return FieldMeta{Kind: KindAttr, Name: QName{Local: local}, Formatter: formatter}
}

// Ignored marks a field the serializer must skip.
func Ignored() FieldMeta {
	return FieldMeta{Kind: KindIgnore}
}

// TypeMeta describes a struct type: its element name and field metadata keyed
// by Go field name.
type TypeMeta struct {
	Name   QName
	Fields map[string]FieldMeta
}

// ValueFormatter turns a field value into attribute text.
type ValueFormatter interface {
	FormatValue(v any) (string, error)
}

// FormatterFactory builds a ValueFormatter sharing the serializer's number
// formatter.
type FormatterFactory func(nf *NumberFormatter) ValueFormatter

// BoolFormatterID names the built-in formatter writing booleans as 1 or 0.
const BoolFormatterID = "bool01"

// Registry holds descriptors and formatters. It is safe for concurrent use;
// registration normally happens once at package initialisation.
type Registry struct {
	mu         sync.RWMutex
	types      map[reflect.Type]*TypeMeta
	formatters map[string]FormatterFactory
}

// NewRegistry creates a registry with the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{
		types:      make(map[reflect.Type]*TypeMeta),
		formatters: make(map[string]FormatterFactory),
	}
	r.RegisterFormatter(BoolFormatterID, func(*NumberFormatter) ValueFormatter {
		return boolFormatter{}
	})
	return r
}

// Register attaches meta to the struct type of sample (a value or pointer).
func (r *Registry) Register(sample any, meta TypeMeta) error {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrNotStruct, sample)
	}
	for field := range meta.Fields {
		if _, ok := t.FieldByName(field); !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name(), field)
		}
	}

	m := meta
	if m.Fields == nil {
		m.Fields = map[string]FieldMeta{}
	}

	r.mu.Lock()
	r.types[t] = &m
	r.mu.Unlock()
	return nil
}

// MustRegister is Register that panics on error. Meant for init-time tables.
func (r *Registry) MustRegister(sample any, meta TypeMeta) {
	if err := r.Register(sample, meta); err != nil {
		panic(err)
	}
}

// RegisterFormatter adds or replaces a named formatter.
func (r *Registry) RegisterFormatter(id string, f FormatterFactory) {
	r.mu.Lock()
	r.formatters[id] = f
	r.mu.Unlock()
}

// Lookup returns the descriptor registered for t.
func (r *Registry) Lookup(t reflect.Type) (*TypeMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.types[t]
	return m, ok
}

func (r *Registry) formatter(id string) (FormatterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[id]
	return f, ok
}

type boolFormatter struct{}

func (boolFormatter) FormatValue(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("bool formatter: unsupported type %T", v)
	}
	if b {
		return "1", nil
	}
	return "0", nil
}
