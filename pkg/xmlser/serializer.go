package xmlser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Serializer writes a registered value graph as namespace-qualified XML.
//
// Serialize runs two passes. The first walks the graph and assigns a prefix to
// every namespace it meets: the root namespace becomes the default (bare
// xmlns), the others get ns0, ns1, ... in first-encounter order. The second
// pass opens the root element, declares the namespaces and writes the graph.
type Serializer struct {
	b   *Builder
	reg *Registry
	nf  *NumberFormatter

	prefixes    map[string]string // lower-cased URI -> prefix, "" for default
	uris        []string          // declaration order, original spelling
	prefixCount int
	formatters  map[string]ValueFormatter
}

// NewSerializer creates a serializer writing through b.
func NewSerializer(b *Builder, reg *Registry, opts FormatOptions) (*Serializer, error) {
	nf, err := NewNumberFormatter(opts)
	if err != nil {
		return nil, err
	}
	return &Serializer{
		b:          b,
		reg:        reg,
		nf:         nf,
		prefixes:   make(map[string]string),
		formatters: make(map[string]ValueFormatter),
	}, nil
}

// WithNamespace pre-assigns prefixes so they are declared even when the
// graph does not use them.
func (s *Serializer) WithNamespace(uris ...string) *Serializer {
	for _, uri := range uris {
		s.assign(uri, false)
	}
	return s
}

// WithPrefix binds uri to an explicit prefix, for documents that refer to
// namespaces by prefix (3MF extension lists). Generated prefixes skip it.
func (s *Serializer) WithPrefix(prefix, uri string) *Serializer {
	key := strings.ToLower(uri)
	if _, ok := s.prefixes[key]; ok || uri == "" || prefix == "" {
		return s
	}
	s.prefixes[key] = prefix
	s.uris = append(s.uris, uri)
	return s
}

// Prefix returns the prefix assigned to uri. The default namespace has "".
func (s *Serializer) Prefix(uri string) (string, bool) {
	p, ok := s.prefixes[strings.ToLower(uri)]
	return p, ok
}

// Serialize writes root, which must be a registered struct or a pointer to
// one, as a complete element.
func (s *Serializer) Serialize(root any) error {
	v, ok := indirect(reflect.ValueOf(root))
	if !ok {
		return fmt.Errorf("serialize: nil root")
	}
	meta, ok := s.reg.Lookup(v.Type())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregistered, v.Type())
	}

	if meta.Name.Space != "" {
		s.assign(meta.Name.Space, true)
	}
	s.gather(reflect.ValueOf(root), make(visitSet))

	s.b.Ele(meta.Name.Local)
	if meta.Name.Space != "" {
		s.b.Att("xmlns", meta.Name.Space)
	}
	for _, uri := range s.uris {
		if prefix := s.prefixes[strings.ToLower(uri)]; prefix != "" {
			s.b.Att("xmlns:"+prefix, uri)
		}
	}

	seen := make(visitSet)
	seen.visit(v)
	if err := s.writeContent(v, meta, seen); err != nil {
		return err
	}
	s.b.End()
	return s.b.Err()
}

func (s *Serializer) assign(uri string, isDefault bool) {
	if uri == "" {
		return
	}
	key := strings.ToLower(uri)
	if _, ok := s.prefixes[key]; ok {
		return
	}
	if isDefault {
		s.prefixes[key] = ""
	} else {
		s.prefixes[key] = s.nextPrefix()
	}
	s.uris = append(s.uris, uri)
}

func (s *Serializer) nextPrefix() string {
	for {
		p := "ns" + strconv.Itoa(s.prefixCount)
		s.prefixCount++
		taken := false
		for _, existing := range s.prefixes {
			if existing == p {
				taken = true
				break
			}
		}
		if !taken {
			return p
		}
	}
}

func (s *Serializer) gather(v reflect.Value, seen visitSet) {
	v, ref, ok := deref(v)
	if !ok {
		return
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if isPrimitive(v.Index(i).Kind()) {
				continue
			}
			s.gather(v.Index(i), seen)
		}

	case reflect.Struct:
		if ref && seen.visit(v) {
			return
		}
		meta, registered := s.reg.Lookup(v.Type())
		if registered {
			s.assign(meta.Name.Space, false)
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			if registered {
				if fm, has := meta.Fields[sf.Name]; has {
					if fm.Kind == KindIgnore {
						continue
					}
					// Only namespaces that end up in the output are declared.
					if present(v.Field(i)) {
						s.assign(fm.Name.Space, false)
					}
				}
			}
			if isPrimitive(sf.Type.Kind()) {
				continue
			}
			s.gather(v.Field(i), seen)
		}
	}
}

// writeObject emits v as an element. Unregistered structs are skipped.
func (s *Serializer) writeObject(v reflect.Value, override QName, seen visitSet) error {
	v, ref, ok := deref(v)
	if !ok {
		return nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			item, ok := indirect(v.Index(i))
			if !ok {
				continue
			}
			if item.Kind() == reflect.String {
				s.b.Text(item.String())
				continue
			}
			if isPrimitive(item.Kind()) {
				continue
			}
			if err := s.writeObject(v.Index(i), override, seen); err != nil {
				return err
			}
		}
		return nil

	case reflect.Struct:
		if ref && seen.visit(v) {
			return nil
		}
		meta, ok := s.reg.Lookup(v.Type())
		if !ok {
			return nil
		}
		name := meta.Name
		if override.Local != "" {
			name = override
		}
		s.b.Ele(s.qualify(name))
		if err := s.writeContent(v, meta, seen); err != nil {
			return err
		}
		s.b.End()
		return s.b.Err()
	}
	return nil
}

func (s *Serializer) writeContent(v reflect.Value, meta *TypeMeta, seen visitSet) error {
	t := v.Type()

	// Attributes must be written before the start tag is closed.
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fm, has := meta.Fields[sf.Name]
		if !has || fm.Kind != KindAttr || !sf.IsExported() {
			continue
		}
		if err := s.writeAttr(v.Field(i), sf, fm); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fm, has := meta.Fields[sf.Name]
		if has && fm.Kind != KindElement {
			continue
		}

		fv, ok := indirect(v.Field(i))
		if !ok {
			continue
		}
		if !has {
			if fv.Kind() == reflect.String {
				if text := fv.String(); text != "" {
					s.b.Text(text)
				}
				continue
			}
			if isPrimitive(fv.Kind()) {
				continue
			}
		}
		if err := s.writeObject(v.Field(i), fm.Name, seen); err != nil {
			return err
		}
	}
	return s.b.Err()
}

func (s *Serializer) writeAttr(fv reflect.Value, sf reflect.StructField, fm FieldMeta) error {
	fv, ok := indirect(fv)
	if !ok {
		return nil
	}

	var (
		text string
		err  error
	)
	if fm.Formatter != "" {
		f, ferr := s.valueFormatter(fm.Formatter)
		if ferr != nil {
			return ferr
		}
		text, err = f.FormatValue(fv.Interface())
	} else {
		text, err = s.formatScalar(fv)
	}
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	name := fm.Name
	if name.Local == "" {
		name.Local = strings.ToLower(sf.Name)
	}
	s.b.Att(s.qualify(name), text)
	return nil
}

func (s *Serializer) formatScalar(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return s.nf.Format(v.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.String:
		return v.String(), nil
	}
	if st, ok := v.Interface().(fmt.Stringer); ok {
		return st.String(), nil
	}
	return "", fmt.Errorf("unsupported attribute type %s", v.Type())
}

func (s *Serializer) valueFormatter(id string) (ValueFormatter, error) {
	if f, ok := s.formatters[id]; ok {
		return f, nil
	}
	factory, ok := s.reg.formatter(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFormatter, id)
	}
	f := factory(s.nf)
	s.formatters[id] = f
	return f, nil
}

// qualify prefixes name unless its namespace is the default one.
func (s *Serializer) qualify(name QName) string {
	if name.Space == "" {
		return name.Local
	}
	prefix, ok := s.prefixes[strings.ToLower(name.Space)]
	if !ok || prefix == "" {
		return name.Local
	}
	return prefix + ":" + name.Local
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

// visitSet tracks structs reached through pointers by address, so the same
// struct shared by two parents is written once. Values held inline (slice
// elements, embedded fields) cannot be shared and are never marked.
type visitSet map[visitKey]struct{}

// visit marks v and reports whether it was already marked.
func (vs visitSet) visit(v reflect.Value) bool {
	if !v.CanAddr() {
		return false
	}
	key := visitKey{ptr: v.Addr().Pointer(), typ: v.Type()}
	if _, ok := vs[key]; ok {
		return true
	}
	vs[key] = struct{}{}
	return false
}

// indirect follows pointers and interfaces. It reports false for nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	v, _, ok := deref(v)
	return v, ok
}

// deref is indirect that also reports whether a pointer was followed.
func deref(v reflect.Value) (reflect.Value, bool, bool) {
	ref := false
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false, false
		}
		if v.Kind() == reflect.Pointer {
			ref = true
		}
		v = v.Elem()
	}
	return v, ref, v.IsValid()
}

// present reports whether a field value would produce output: it is not nil
// and, for strings, not empty.
func present(v reflect.Value) bool {
	v, ok := indirect(v)
	if !ok {
		return false
	}
	if v.Kind() == reflect.String {
		return v.Len() > 0
	}
	return true
}

func isPrimitive(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
