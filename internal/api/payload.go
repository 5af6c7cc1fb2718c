package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

// File is a newly attached binary upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Payload is an entity submission. It is sent as JSON unless File is set,
// in which case every field is stringified into a multipart form.
type Payload struct {
	Fields map[string]any
	File   *File
}

// Multipart reports whether p must be sent as multipart/form-data.
func (p Payload) Multipart() bool {
	return p.File != nil
}

// encode returns the body and content type. update adds the _method=PUT
// override to multipart bodies, which travel over POST.
func (p Payload) encode(update bool) ([]byte, string, error) {
	if !p.Multipart() {
		fields := p.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, "", fmt.Errorf("marshal payload: %w", err)
		}
		return body, "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == p.File.Field {
			continue
		}
		if err := w.WriteField(k, stringify(p.Fields[k])); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if update {
		if err := w.WriteField("_method", "PUT"); err != nil {
			return nil, "", fmt.Errorf("write method override: %w", err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.File.Field, p.File.Name))
	h.Set("Content-Type", p.File.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(p.File.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []int64:
		parts := make([]string, len(t))
		for i, n := range t {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return fmt.Sprint(v)
}
