// Package xmlser writes XML documents from plain Go values.
//
// Types describe their XML shape out of band through a Registry: a qualified
// element name plus per-field metadata (attribute or element, override name,
// formatter). The Serializer walks a value graph with reflection, consults the
// registry and emits text through a Builder, which in turn writes to any
// io.StringWriter such as the streaming ChunkWriter.
package xmlser

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Builder errors.
var (
	ErrNoOpenElement = errors.New("no open element")
	ErrTagClosed     = errors.New("start tag already closed")
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
)

type openElement struct {
	name   string
	closed bool // '>' of the start tag written
}

// Builder emits XML tokens to a writer. Errors are sticky: after the first
// failure every call is a no-op and Err reports the failure.
type Builder struct {
	w     io.StringWriter
	stack []openElement
	err   error
}

// NewBuilder creates a builder writing to w.
func NewBuilder(w io.StringWriter) *Builder {
	return &Builder{w: w}
}

// Err returns the first error encountered.
func (b *Builder) Err() error {
	return b.err
}

// Depth returns the number of open elements.
func (b *Builder) Depth() int {
	return len(b.stack)
}

// Dec writes the XML declaration.
func (b *Builder) Dec(version, encoding string) *Builder {
	b.write("<?xml")
	b.writeAttr("version", version)
	if encoding != "" {
		b.writeAttr("encoding", encoding)
	}
	b.write("?>")
	return b
}

// Ele opens a new element. name may carry a prefix ("p:UUID").
func (b *Builder) Ele(name string) *Builder {
	if b.err != nil {
		return b
	}
	b.closeStartTag()
	b.stack = append(b.stack, openElement{name: name})
	b.write("<", name)
	return b
}

// Att writes an attribute on the innermost open element.
func (b *Builder) Att(name, value string) *Builder {
	if b.err != nil {
		return b
	}
	top := b.top()
	if top == nil {
		b.fail(fmt.Errorf("att %q: %w", name, ErrNoOpenElement))
		return b
	}
	if top.closed {
		b.fail(fmt.Errorf("att %q on <%s>: %w", name, top.name, ErrTagClosed))
		return b
	}
	b.writeAttr(name, value)
	return b
}

// Text writes escaped character data inside the innermost open element.
func (b *Builder) Text(s string) *Builder {
	if b.err != nil {
		return b
	}
	if b.top() == nil {
		b.fail(fmt.Errorf("text: %w", ErrNoOpenElement))
		return b
	}
	b.closeStartTag()
	b.write(textEscaper.Replace(s))
	return b
}

// End closes the innermost open element, using the short form when it has no
// content.
func (b *Builder) End() *Builder {
	if b.err != nil || len(b.stack) == 0 {
		return b
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	if !top.closed {
		b.write("/>")
	} else {
		b.write("</", top.name, ">")
	}
	return b
}

func (b *Builder) top() *openElement {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

func (b *Builder) closeStartTag() {
	if top := b.top(); top != nil && !top.closed {
		b.write(">")
		top.closed = true
	}
}

func (b *Builder) writeAttr(name, value string) {
	b.write(" ", name, `="`, attrEscaper.Replace(value), `"`)
}

func (b *Builder) write(parts ...string) {
	for _, p := range parts {
		if b.err != nil {
			return
		}
		if _, err := b.w.WriteString(p); err != nil {
			b.fail(err)
		}
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
