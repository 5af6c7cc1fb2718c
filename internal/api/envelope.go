package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/smartshop/internal/model"
)

// Responses are read as {data: entity} and {data: [...], meta: {...}}.
// Some backend routes still answer with a named key ({"user": ...}) or the
// bare entity; decodeEntity and decodeList accept those too so callers see a
// single contract.

func decodeEntity[T any](data []byte, keys ...string) (*T, error) {
	raw, err := unwrap(data, keys...)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &v, nil
}

func decodeList[T any](data []byte, keys ...string) (*model.Page[T], error) {
	var env map[string]json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return singlePage(items), nil
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var items []T
	for _, k := range append([]string{"data"}, keys...) {
		if raw, ok := env[k]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			break
		}
	}
	if items == nil {
		items = []T{}
	}

	raw, ok := env["meta"]
	if !ok {
		return singlePage(items), nil
	}
	var meta model.PaginationMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &model.Page[T]{Items: items, Meta: meta}, nil
}

// singlePage describes an unpaginated listing as one page holding everything.
func singlePage[T any](items []T) *model.Page[T] {
	meta := model.PaginationMeta{CurrentPage: 1, LastPage: 1, PerPage: len(items), Total: len(items)}
	if len(items) > 0 {
		meta.From, meta.To = 1, len(items)
	}
	return &model.Page[T]{Items: items, Meta: meta}
}

// unwrap returns the entity payload from data, looking under "data" and then
// each named key before falling back to the whole document.
// emptyBody reports a 2xx answered without a payload, such as 204.
func emptyBody(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

func unwrap(data []byte, keys ...string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode response: empty body")
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	for _, k := range append([]string{"data"}, keys...) {
		if raw, ok := env[k]; ok && !isNull(raw) {
			return raw, nil
		}
	}
	return trimmed, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
