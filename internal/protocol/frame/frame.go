package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danmuck/levellog/internal/protocol"
)

// FailureKind classifies why a raw line did not produce a Record.
type FailureKind string

const (
	KindUndecodable FailureKind = "undecodable"
	KindEmpty       FailureKind = "empty"
	KindHeaderEcho  FailureKind = "header_echo"
	KindFieldCount  FailureKind = "field_count_mismatch"
	KindNonNumeric  FailureKind = "non_numeric"
	KindOversized   FailureKind = "oversized"
)

// RawLine is one line as received from the transport, without its
// terminator.
type RawLine struct {
	Bytes   []byte
	Decoded bool
}

// NewRawLine copies b and records whether it is valid UTF-8 text.
func NewRawLine(b []byte) RawLine {
	cp := make([]byte, len(b))
	copy(cp, b)
	return RawLine{Bytes: cp, Decoded: utf8.Valid(cp)}
}

// Text returns the line as a string. Invalid sequences are replaced so
// the result is always safe to log.
func (l RawLine) Text() string {
	if l.Decoded {
		return string(l.Bytes)
	}
	return strings.ToValidUTF8(string(l.Bytes), "�")
}

// Record is a validated, timestamped frame. Device fields are carried as
// received.
type Record struct {
	ReceiptTime     time.Time
	DeviceTimeMS    string
	LevelX          string
	LevelY          string
	InputVoltageX   string
	InputVoltageY   string
	InputVoltageSum string
}

// Fields returns the six device fields in wire order.
func (r Record) Fields() []string {
	return []string{
		r.DeviceTimeMS,
		r.LevelX,
		r.LevelY,
		r.InputVoltageX,
		r.InputVoltageY,
		r.InputVoltageSum,
	}
}

// Row renders the seven log columns: receipt time followed by the device
// fields.
func (r Record) Row() []string {
	row := make([]string, 0, len(protocol.LogColumns))
	row = append(row, r.ReceiptTime.Format(protocol.ReceiptTimeLayout))
	return append(row, r.Fields()...)
}

// ParseError reports a line that did not produce a Record.
type ParseError struct {
	Kind   FailureKind
	Raw    string
	Fields int
	Field  string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindFieldCount:
		return fmt.Sprintf("frame: expected %d fields, got %d: %q", protocol.FieldCount, e.Fields, e.Raw)
	case KindNonNumeric:
		return fmt.Sprintf("frame: field %q is not numeric: %q", e.Field, e.Raw)
	default:
		return fmt.Sprintf("frame: %s: %q", e.Kind, e.Raw)
	}
}

func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case KindUndecodable:
		return protocol.ErrUndecodable
	case KindEmpty:
		return protocol.ErrEmpty
	case KindHeaderEcho:
		return protocol.ErrHeaderEcho
	case KindFieldCount:
		return protocol.ErrFieldCount
	case KindNonNumeric:
		return protocol.ErrNonNumeric
	case KindOversized:
		return protocol.ErrOversized
	}
	return nil
}

// Ignorable reports failures that are expected stream noise and do not
// warrant a diagnostic.
func (e *ParseError) Ignorable() bool {
	return e.Kind == KindEmpty || e.Kind == KindHeaderEcho
}

// AsParseError extracts a *ParseError from err.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Parser validates raw lines. The zero value is not usable; start from
// DefaultParser.
type Parser struct {
	HeaderToken string
	Delimiter   string
	// Strict additionally requires every field to parse as a float. Logs
	// written without it accept any six fields.
	Strict bool
}

// DefaultParser matches the controller firmware framing.
func DefaultParser() Parser {
	return Parser{
		HeaderToken: protocol.HeaderToken,
		Delimiter:   protocol.Delimiter,
	}
}

// Parse turns raw into a Record stamped with ts, or returns a *ParseError.
func (p Parser) Parse(raw RawLine, ts time.Time) (Record, error) {
	if !raw.Decoded {
		return Record{}, &ParseError{Kind: KindUndecodable, Raw: raw.Text()}
	}
	line := strings.TrimSpace(string(raw.Bytes))
	if line == "" {
		return Record{}, &ParseError{Kind: KindEmpty}
	}
	if p.HeaderToken != "" && strings.HasPrefix(line, p.HeaderToken) {
		return Record{}, &ParseError{Kind: KindHeaderEcho, Raw: line}
	}

	delim := p.Delimiter
	if delim == "" {
		delim = protocol.Delimiter
	}
	parts := strings.Split(line, delim)
	if len(parts) != protocol.FieldCount {
		return Record{}, &ParseError{Kind: KindFieldCount, Raw: line, Fields: len(parts)}
	}
	for i := 0; p.Strict && i < len(parts); i++ {
		if _, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64); err != nil {
			return Record{}, &ParseError{
				Kind:   KindNonNumeric,
				Raw:    line,
				Fields: len(parts),
				Field:  protocol.DeviceColumns[i],
			}
		}
	}

	return Record{
		ReceiptTime:     ts,
		DeviceTimeMS:    parts[0],
		LevelX:          parts[1],
		LevelY:          parts[2],
		InputVoltageX:   parts[3],
		InputVoltageY:   parts[4],
		InputVoltageSum: parts[5],
	}, nil
}
