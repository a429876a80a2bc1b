package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"crm-agent-backend/service/agent/tool"
)

var ErrInvalidParameters = errors.New("invalid tool parameters")

// ValidateParams 按工具声明校验推理引擎给出的参数，未声明的键被丢弃
func ValidateParams(t tool.Tool, params tool.Params) (tool.Params, error) {
	clean := make(tool.Params, len(params))

	for _, p := range t.Parameters() {
		value, ok := params[p.Name]
		if !ok || value == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q", ErrInvalidParameters, p.Name)
			}
			continue
		}

		if !matchesType(p.Type, value) {
			return nil, fmt.Errorf("%w: parameter %q must be %s", ErrInvalidParameters, p.Name, p.Type)
		}

		if s, isString := value.(string); isString && p.Required && s == "" {
			return nil, fmt.Errorf("%w: parameter %q must not be empty", ErrInvalidParameters, p.Name)
		}

		if len(p.Enum) > 0 {
			s, _ := value.(string)
			if !slices.Contains(p.Enum, s) {
				return nil, fmt.Errorf("%w: parameter %q must be one of %v", ErrInvalidParameters, p.Name, p.Enum)
			}
		}

		clean[p.Name] = value
	}

	return clean, nil
}

func matchesType(t tool.ParamType, value any) bool {
	switch t {
	case tool.ParamString:
		_, ok := value.(string)
		return ok
	case tool.ParamNumber:
		_, ok := toFloat(value)
		return ok
	case tool.ParamInteger:
		f, ok := toFloat(value)
		return ok && f == math.Trunc(f)
	case tool.ParamBoolean:
		_, ok := value.(bool)
		return ok
	case tool.ParamArray:
		_, ok := value.([]any)
		return ok
	case tool.ParamObject:
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
