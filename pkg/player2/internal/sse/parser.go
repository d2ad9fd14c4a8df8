// ABOUTME: Incremental Server-Sent Events parser fed with arbitrary byte chunks
// ABOUTME: Handles id/event/data fields, comments, CR stripping, and a per-event size cap

package sse

import (
	"bytes"
	"strings"
)

// DefaultMaxEventSize bounds the accumulated payload of a single event.
const DefaultMaxEventSize = 2 * 1024 * 1024

// Event represents a single Server-Sent Event.
type Event struct {
	Type string
	Data string
	ID   string
}

// Emit receives each completed event.
type Emit func(Event)

// Parser turns a byte stream into events. Chunk boundaries do not need to
// line up with line or event boundaries. A Parser is not safe for
// concurrent use; one connection owns one parser.
type Parser struct {
	maxEventSize int

	line     []byte
	skipLine bool

	id       string
	typ      string
	data     []byte
	hasData  bool
	pending  bool
	discard  bool
	overflow func(size int)
}

// NewParser creates a parser. maxEventSize <= 0 selects DefaultMaxEventSize.
func NewParser(maxEventSize int) *Parser {
	if maxEventSize <= 0 {
		maxEventSize = DefaultMaxEventSize
	}
	return &Parser{maxEventSize: maxEventSize}
}

// OnOverflow registers a callback invoked when an event is discarded for
// exceeding the size cap. size is the length that would have been reached.
func (p *Parser) OnOverflow(fn func(size int)) {
	p.overflow = fn
}

// Feed consumes a chunk and emits every event it completes, in order.
func (p *Parser) Feed(chunk []byte, emit Emit) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			p.appendLine(chunk)
			return
		}
		p.appendLine(chunk[:i])
		chunk = chunk[i+1:]

		if p.skipLine {
			p.skipLine = false
			p.line = p.line[:0]
			continue
		}
		p.processLine(p.line, emit)
		p.line = p.line[:0]
	}
}

// Flush handles connection teardown: a trailing unterminated line is
// processed, then any in-progress event is emitted.
func (p *Parser) Flush(emit Emit) {
	if len(p.line) > 0 && !p.skipLine {
		p.processLine(p.line, emit)
	}
	p.line = p.line[:0]
	p.skipLine = false

	if p.pending && !p.discard {
		p.finish(emit)
	}
	p.Reset()
}

// Reset drops any partial line and in-progress event.
func (p *Parser) Reset() {
	p.line = p.line[:0]
	p.skipLine = false
	p.resetEvent()
	p.discard = false
}

// Pending reports whether an event has been started but not terminated.
func (p *Parser) Pending() bool {
	return p.pending || len(p.line) > 0
}

// appendLine grows the line buffer, stripping carriage returns. A single
// line longer than the cap poisons the current event.
func (p *Parser) appendLine(b []byte) {
	if p.skipLine {
		return
	}
	for _, c := range b {
		if c != '\r' {
			p.line = append(p.line, c)
		}
	}
	if len(p.line) > p.maxEventSize {
		p.tooLarge(len(p.line))
		p.line = p.line[:0]
		p.skipLine = true
	}
}

func (p *Parser) processLine(line []byte, emit Emit) {
	if len(line) == 0 {
		if p.discard {
			p.discard = false
			p.resetEvent()
			return
		}
		if p.pending {
			p.finish(emit)
		}
		return
	}

	if p.discard || line[0] == ':' {
		return
	}

	field, value, ok := parseLine(string(line))
	if !ok {
		return
	}
	p.applyField(field, value)
}

// parseLine splits an SSE line into field name and value. Lines without a
// colon carry no field and are ignored.
func parseLine(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}

	field := line[:idx]
	value := line[idx+1:]

	// Strip optional leading space after colon.
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}

	return field, value, true
}

// applyField applies a parsed field to the in-progress event.
func (p *Parser) applyField(field, value string) {
	switch field {
	case "id":
		p.id = strings.TrimSpace(value)
		p.pending = true
	case "event":
		p.typ = value
		p.pending = true
	case "data":
		size := len(p.data) + len(value)
		if p.hasData {
			size++
		}
		if size > p.maxEventSize {
			p.tooLarge(size)
			return
		}
		if p.hasData {
			p.data = append(p.data, '\n')
		}
		p.data = append(p.data, value...)
		p.hasData = true
		p.pending = true
	}
}

func (p *Parser) tooLarge(size int) {
	if p.overflow != nil {
		p.overflow(size)
	}
	p.resetEvent()
	p.discard = true
}

func (p *Parser) finish(emit Emit) {
	ev := Event{Type: p.typ, Data: string(p.data), ID: p.id}
	p.resetEvent()
	emit(ev)
}

func (p *Parser) resetEvent() {
	p.id = ""
	p.typ = ""
	p.data = p.data[:0]
	p.hasData = false
	p.pending = false
}
