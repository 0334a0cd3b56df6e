// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/adhearsion/blather-sub001/xmlnode"
)

// EventKind is the type of an event emitted by a Parser.
type EventKind uint8

// A list of parser events.
const (
	// StreamOpened is emitted once the stream header has been read.
	StreamOpened EventKind = iota + 1

	// StanzaReceived is emitted for every complete first level child of the
	// stream.
	StanzaReceived

	// StreamClosed is emitted when the stream's closing tag is read.
	StreamClosed
)

// Event is a single unit of output from a Parser.
type Event struct {
	Kind EventKind

	// Info is set for StreamOpened events.
	Info Info

	// Element is set for StanzaReceived events.
	// It is detached from the stream root.
	Element *xmlnode.Element
}

// ParseError is returned by a parser when the input is not a well-formed
// stream. It is fatal to the stream.
type ParseError struct {
	// Cond is the stream error condition that describes the failure.
	Cond Error
	// Offset is the input offset at which the error was detected.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stream: parse error at offset %d: %s", e.Offset, e.Cond.Err)
	}
	return fmt.Sprintf("stream: parse error at offset %d: %s: %v", e.Offset, e.Cond.Err, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the stream error condition of e.
func (e *ParseError) Is(target error) bool {
	return e.Cond.Is(target)
}

// Parser is an incremental stream parser.
//
// It reads an XML stream from an io.Reader and emits an event for the stream
// header, for every first level child of the stream and for the closing tag.
// Because state is kept in the underlying decoder, the input may be split
// across reads at any byte offset.
type Parser struct {
	d      *xml.Decoder
	root   *xmlnode.Element
	stack  []*xmlnode.Element
	start  int64
	closed bool

	// MaxStanzaSize limits the number of bytes a single stanza may take up on
	// the wire. Zero means no limit.
	MaxStanzaSize int64
}

// NewParser returns a parser that reads from r.
func NewParser(r io.Reader) *Parser {
	p := &Parser{}
	p.Reset(r)
	return p
}

// Reset discards all state and starts parsing a new stream from r.
// It is used after STARTTLS and SASL where the stream is restarted.
func (p *Parser) Reset(r io.Reader) {
	p.d = xml.NewDecoder(r)
	p.root = nil
	p.stack = p.stack[:0]
	p.start = 0
	p.closed = false
}

// Root returns the stream root element or nil if the header has not been
// read yet. The root never accumulates children.
func (p *Parser) Root() *xmlnode.Element {
	return p.root
}

// Next blocks until the next event is available.
// After the stream has been closed Next returns io.EOF.
// Malformed input results in a *ParseError and if the input ends before the
// stream is closed io.ErrUnexpectedEOF is returned. Any other error is an
// error from the underlying reader.
func (p *Parser) Next() (Event, error) {
	if p.closed {
		return Event{}, io.EOF
	}
	for {
		tok, err := p.d.Token()
		if err != nil {
			return Event{}, p.wrapErr(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if p.root == nil {
				var info Info
				if err := info.FromStartElement(t); err != nil {
					var cond Error
					errors.As(err, &cond)
					return Event{}, &ParseError{Cond: cond, Offset: p.d.InputOffset()}
				}
				p.root = xmlnode.FromStart(t)
				p.start = p.d.InputOffset()
				return Event{Kind: StreamOpened, Info: info}, nil
			}
			el := xmlnode.FromStart(t)
			if len(p.stack) == 0 {
				p.root.AppendChild(el)
			} else {
				p.stack[len(p.stack)-1].AppendChild(el)
			}
			p.stack = append(p.stack, el)
		case xml.CharData:
			if len(p.stack) > 0 {
				top := p.stack[len(p.stack)-1]
				top.SetText(top.Text() + string(t))
			}
		case xml.EndElement:
			if len(p.stack) == 0 {
				p.closed = true
				return Event{Kind: StreamClosed}, nil
			}
			el := p.stack[len(p.stack)-1]
			p.stack[len(p.stack)-1] = nil
			p.stack = p.stack[:len(p.stack)-1]
			if len(p.stack) == 0 {
				el.Detach()
				p.start = p.d.InputOffset()
				return Event{Kind: StanzaReceived, Element: el}, nil
			}
		}

		if p.MaxStanzaSize > 0 && len(p.stack) > 0 && p.d.InputOffset()-p.start > p.MaxStanzaSize {
			return Event{}, &ParseError{Cond: PolicyViolation, Offset: p.d.InputOffset(), Err: ErrStanzaTooLarge}
		}
		if len(p.stack) == 0 {
			p.start = p.d.InputOffset()
		}
	}
}

// ErrStanzaTooLarge is wrapped by the ParseError returned when a stanza exceeds
// the parser's MaxStanzaSize.
var ErrStanzaTooLarge = errors.New("stream: stanza too large")

func (p *Parser) wrapErr(err error) error {
	if err == io.EOF {
		if p.root != nil {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		// The decoder reports EOF inside an open element as a syntax error.
		if syntaxErr.Msg == "unexpected EOF" {
			return io.ErrUnexpectedEOF
		}
		return &ParseError{Cond: NotWellFormed, Offset: p.d.InputOffset(), Err: err}
	}
	return err
}
