package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// EncodeResponse renders a methodResponse carrying v.
func EncodeResponse(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("<methodResponse><params><param>")
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	buf.WriteString("</param></params></methodResponse>")
	return buf.Bytes(), nil
}

// EncodeFault renders a methodResponse fault.
func EncodeFault(code int, message string) []byte {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("<methodResponse><fault>")
	// Cannot fail: only ints and strings.
	_ = encodeValue(&buf, map[string]any{
		"faultCode":   code,
		"faultString": message,
	})
	buf.WriteString("</fault></methodResponse>")
	return buf.Bytes()
}

// TimeLayout is the dateTime.iso8601 form written in responses.
const TimeLayout = "20060102T15:04:05Z"

func encodeValue(buf *bytes.Buffer, v any) error {
	buf.WriteString("<value>")
	if err := encodeInner(buf, v); err != nil {
		return err
	}
	buf.WriteString("</value>")
	return nil
}

func encodeInner(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("<nil/>")
		return nil
	case string:
		buf.WriteString("<string>")
		escape(buf, x)
		buf.WriteString("</string>")
		return nil
	case bool:
		if x {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
		return nil
	case time.Time:
		buf.WriteString("<dateTime.iso8601>")
		buf.WriteString(x.UTC().Format(TimeLayout))
		buf.WriteString("</dateTime.iso8601>")
		return nil
	case []byte:
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(x))
		buf.WriteString("</base64>")
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeInt(buf, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			buf.WriteString("<double>")
			buf.WriteString(strconv.FormatUint(u, 10))
			buf.WriteString("</double>")
			return nil
		}
		writeInt(buf, int64(u))
	case reflect.Float32, reflect.Float64:
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
		buf.WriteString("</double>")
	case reflect.String:
		buf.WriteString("<string>")
		escape(buf, rv.String())
		buf.WriteString("</string>")
	case reflect.Slice, reflect.Array:
		buf.WriteString("<array><data>")
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(buf, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("xmlrpc: map key must be string, got %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		buf.WriteString("<struct>")
		for _, k := range keys {
			buf.WriteString("<member><name>")
			escape(buf, k)
			buf.WriteString("</name>")
			if err := encodeValue(buf, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()); err != nil {
				return err
			}
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("<nil/>")
			return nil
		}
		return encodeInner(buf, rv.Elem().Interface())
	default:
		return fmt.Errorf("xmlrpc: cannot encode %T", v)
	}
	return nil
}

// writeInt uses <int> within the i4 range and the common <i8> extension beyond it.
func writeInt(buf *bytes.Buffer, n int64) {
	tag := "int"
	if n < math.MinInt32 || n > math.MaxInt32 {
		tag = "i8"
	}
	buf.WriteString("<" + tag + ">")
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteString("</" + tag + ">")
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
