package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses content into a value of type T.
//
// Primitive targets (string, bool, integers, floats) are converted directly.
// Every other target is decoded as JSON after the payload has been isolated
// from Markdown fences and surrounding prose. When decoding fails the payload
// is passed through jsonrepair and decoded again; as a last resort values the
// model wrapped as {"type": ..., "value": ...} are unwrapped.
//
//	decision, err := parse.ParseStringAs[Decision]("```json\n{\"next_steps\": [\"aci\"],}\n```")
func ParseStringAs[T any](content string) (T, error) {
	var result T
	target := reflect.ValueOf(&result).Elem()
	trimmed := strings.TrimSpace(content)

	switch target.Kind() {
	case reflect.String:
		if unwrapped, err := tryUnwrapPrimitive(trimmed); err == nil {
			target.SetString(unwrapped)
			return result, nil
		}
		target.SetString(content)
		return result, nil

	case reflect.Bool:
		value, err := parsePrimitive(trimmed, strconv.ParseBool)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		target.SetBool(value)
		return result, nil

	case reflect.Float32, reflect.Float64:
		value, err := parsePrimitive(trimmed, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		target.SetFloat(value)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value, err := parsePrimitive(trimmed, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		target.SetInt(value)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value, err := parsePrimitive(trimmed, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		target.SetUint(value)
		return result, nil
	}

	payload := ExtractJSON(trimmed)
	if payload == "" {
		return result, fmt.Errorf("no JSON payload found in content %q", TruncateForError(content))
	}

	unmarshalErr := json.Unmarshal([]byte(payload), &result)
	if unmarshalErr == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(payload)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: %w (repair error: %v)", result, unmarshalErr, repairErr)
	}

	// Reset anything the first attempt partially decoded.
	result = *new(T)
	if err := json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}

	unwrapped, err := unwrapSchemaValues(repaired)
	if err == nil {
		result = *new(T)
		if err = json.Unmarshal([]byte(unwrapped), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (content: %s)", result, err, TruncateForError(content))
}

// ExtractJSON isolates the JSON document inside content. Fenced code blocks
// win; otherwise the span from the first opening brace or bracket to the last
// matching closer is returned. An empty string means nothing JSON-like was found.
func ExtractJSON(content string) string {
	if start := strings.Index(content, "```"); start != -1 {
		rest := content[start+3:]
		// Drop the info string (```json).
		if newline := strings.IndexByte(rest, '\n'); newline != -1 {
			rest = rest[newline+1:]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	openIndex := strings.IndexAny(content, "{[")
	if openIndex == -1 {
		return ""
	}

	closer := byte('}')
	if content[openIndex] == '[' {
		closer = ']'
	}
	closeIndex := strings.LastIndexByte(content, closer)
	if closeIndex < openIndex {
		// Unterminated payloads are left for jsonrepair.
		return content[openIndex:]
	}
	return content[openIndex : closeIndex+1]
}

// TruncateForError shortens content for inclusion in error messages.
func TruncateForError(content string) string {
	const maxLength = 200
	if len(content) <= maxLength {
		return content
	}
	return content[:maxLength] + "..."
}

func parsePrimitive[V any](content string, convert func(string) (V, error)) (V, error) {
	value, err := convert(content)
	if err == nil {
		return value, nil
	}
	if unwrapped, unwrapErr := tryUnwrapPrimitive(content); unwrapErr == nil {
		if value, unwrappedErr := convert(unwrapped); unwrappedErr == nil {
			return value, nil
		}
	}
	return value, err
}

// tryUnwrapPrimitive extracts the value of a {"type": ..., "value": ...} object.
func tryUnwrapPrimitive(content string) (string, error) {
	if !strings.HasPrefix(content, "{") {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", err
	}

	value, hasValue := data["value"]
	_, hasType := data["type"]
	if !hasType || !hasValue || len(data) != 2 {
		return "", fmt.Errorf("not a schema-wrapped value")
	}

	switch typed := value.(type) {
	case string:
		return typed, nil
	case float64, bool:
		return fmt.Sprintf("%v", typed), nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// unwrapSchemaValues rewrites objects whose fields the model emitted as
// {"type": "string", "value": "x"} into plain values, recursively.
//
//	{"root_cause": {"type": "string", "value": "ACL drop"}} -> {"root_cause": "ACL drop"}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	encoded, err := json.Marshal(unwrapValue(data))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func unwrapValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if inner, hasValue := typed["value"]; hasValue {
			if _, hasType := typed["type"]; hasType && len(typed) == 2 {
				return unwrapValue(inner)
			}
		}
		unwrapped := make(map[string]any, len(typed))
		for key, item := range typed {
			unwrapped[key] = unwrapValue(item)
		}
		return unwrapped
	case []any:
		unwrapped := make([]any, len(typed))
		for i, item := range typed {
			unwrapped[i] = unwrapValue(item)
		}
		return unwrapped
	default:
		return value
	}
}
