// Package xmlrpc decodes XML-RPC method calls and encodes responses and faults.
//
// Values map to Go types as follows: int/i4/i8 → int64, boolean → bool,
// double → float64, string (or untyped) → string, dateTime.iso8601 →
// time.Time, base64 → []byte, struct → map[string]any, array → []any,
// nil → nil.
package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Call is a decoded methodCall.
type Call struct {
	Method string
	Params Params
}

// ErrNoMethod is returned for documents without a methodName.
var ErrNoMethod = errors.New("xmlrpc: missing methodName")

// DecodeCall parses a methodCall document. Bodies declared in a non-UTF-8
// encoding are converted first.
func DecodeCall(r io.Reader) (*Call, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	p := &parser{d: d}

	call := &Call{}
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "methodCall", "params", "param":
			case "methodName":
				name, err := p.text()
				if err != nil {
					return nil, err
				}
				call.Method = strings.TrimSpace(name)
			case "value":
				v, err := p.value()
				if err != nil {
					return nil, err
				}
				call.Params = append(call.Params, v)
			default:
				return nil, fmt.Errorf("xmlrpc: unexpected <%s>", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "methodCall" {
				if call.Method == "" {
					return nil, ErrNoMethod
				}
				return call, nil
			}
		}
	}

	if call.Method == "" {
		return nil, ErrNoMethod
	}
	return call, nil
}

type parser struct {
	d *xml.Decoder
}

// text reads character data up to the end of the current element.
func (p *parser) text() (string, error) {
	var b strings.Builder
	for {
		tok, err := p.d.Token()
		if err != nil {
			return "", fmt.Errorf("xmlrpc: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			return "", fmt.Errorf("xmlrpc: unexpected <%s> in text", t.Name.Local)
		case xml.EndElement:
			return b.String(), nil
		}
	}
}

// value reads the contents of a <value> element whose start was consumed.
func (p *parser) value() (any, error) {
	var (
		raw    strings.Builder
		result any
		typed  bool
	)
	for {
		tok, err := p.d.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if !typed {
				raw.Write(t)
			}
		case xml.StartElement:
			if typed {
				return nil, fmt.Errorf("xmlrpc: multiple types in one value")
			}
			result, err = p.typed(t)
			if err != nil {
				return nil, err
			}
			typed = true
		case xml.EndElement:
			if typed {
				return result, nil
			}
			return raw.String(), nil
		}
	}
}

func (p *parser) typed(start xml.StartElement) (any, error) {
	switch start.Name.Local {
	case "string":
		return p.text()
	case "int", "i4", "i8":
		s, err := p.text()
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: invalid int %q", s)
		}
		return n, nil
	case "boolean":
		s, err := p.text()
		if err != nil {
			return nil, err
		}
		switch strings.TrimSpace(s) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("xmlrpc: invalid boolean %q", s)
	case "double":
		s, err := p.text()
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: invalid double %q", s)
		}
		return f, nil
	case "dateTime.iso8601":
		s, err := p.text()
		if err != nil {
			return nil, err
		}
		return ParseTime(s)
	case "base64":
		s, err := p.text()
		if err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: invalid base64: %w", err)
		}
		return b, nil
	case "nil":
		if _, err := p.text(); err != nil {
			return nil, err
		}
		return nil, nil
	case "struct":
		return p.structValue()
	case "array":
		return p.arrayValue()
	default:
		return nil, fmt.Errorf("xmlrpc: unsupported type <%s>", start.Name.Local)
	}
}

func (p *parser) structValue() (map[string]any, error) {
	m := make(map[string]any)
	for {
		tok, err := p.d.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "member" {
				return nil, fmt.Errorf("xmlrpc: unexpected <%s> in struct", t.Name.Local)
			}
			name, v, err := p.member()
			if err != nil {
				return nil, err
			}
			m[name] = v
		case xml.EndElement:
			return m, nil
		}
	}
}

func (p *parser) member() (string, any, error) {
	var (
		name  string
		v     any
		found bool
	)
	for {
		tok, err := p.d.Token()
		if err != nil {
			return "", nil, fmt.Errorf("xmlrpc: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				if name, err = p.text(); err != nil {
					return "", nil, err
				}
				name = strings.TrimSpace(name)
			case "value":
				if v, err = p.value(); err != nil {
					return "", nil, err
				}
				found = true
			default:
				return "", nil, fmt.Errorf("xmlrpc: unexpected <%s> in member", t.Name.Local)
			}
		case xml.EndElement:
			if !found {
				return "", nil, fmt.Errorf("xmlrpc: member %q has no value", name)
			}
			return name, v, nil
		}
	}
}

func (p *parser) arrayValue() ([]any, error) {
	values := []any{}
	for {
		tok, err := p.d.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlrpc: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "data":
			case "value":
				v, err := p.value()
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			default:
				return nil, fmt.Errorf("xmlrpc: unexpected <%s> in array", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "array" {
				return values, nil
			}
		}
	}
}

var timeLayouts = []string{
	"20060102T15:04:05",
	"20060102T15:04:05Z07:00",
	"20060102T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
	"20060102T150405",
	"20060102T150405Z",
}

// ParseTime accepts the dateTime.iso8601 variants editors send. Values
// without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("xmlrpc: invalid dateTime.iso8601 %q", s)
}
