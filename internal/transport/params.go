package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"sort"
	"strconv"
)

// Content types used for request bodies
const (
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Params maps parameter names to values.
// Values may be strings, booleans, integers, floats, json.Number, []byte or
// *InputFile. Composite values must be serialized to a string by the caller.
type Params map[string]any

// InputFile is a binary payload sent as a multipart file part
type InputFile struct {
	Name string
	Data []byte
}

// NewInputFile reads r fully into an InputFile
func NewInputFile(name string, r io.Reader) (*InputFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return &InputFile{Name: name, Data: data}, nil
}

// Clone returns a shallow copy of the map; binary payloads are copied too
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	clone := make(Params, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case []byte:
			clone[k] = append([]byte(nil), val...)
		case *InputFile:
			if val != nil {
				clone[k] = &InputFile{Name: val.Name, Data: append([]byte(nil), val.Data...)}
			}
		default:
			clone[k] = v
		}
	}
	return clone
}

// HasBinary returns true if any value needs a multipart body
func (p Params) HasBinary() bool {
	for _, v := range p {
		switch val := v.(type) {
		case []byte:
			return true
		case *InputFile:
			if val != nil {
				return true
			}
		}
	}
	return false
}

// Encode builds a request body for params and returns it with its content type.
// Nil values are skipped and keys are written in sorted order.
func Encode(params Params) ([]byte, string, error) {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		if f, ok := v.(*InputFile); ok && f == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if params.HasBinary() {
		return encodeMultipart(params, keys)
	}

	form := url.Values{}
	for _, k := range keys {
		s, err := formatValue(params[k])
		if err != nil {
			return nil, "", fmt.Errorf("parameter %s: %w", k, err)
		}
		form.Set(k, s)
	}
	return []byte(form.Encode()), ContentTypeForm, nil
}

func encodeMultipart(params Params, keys []string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range keys {
		var err error
		switch val := params[k].(type) {
		case *InputFile:
			err = writeFilePart(w, k, val.Name, val.Data)
		case []byte:
			err = writeFilePart(w, k, k, val)
		default:
			var s string
			s, err = formatValue(val)
			if err == nil {
				err = w.WriteField(k, s)
			}
		}
		if err != nil {
			return nil, "", fmt.Errorf("parameter %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field, name string, data []byte) error {
	if name == "" {
		name = field
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// formatValue renders a scalar parameter value as a form string
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case json.RawMessage:
		return string(val), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
