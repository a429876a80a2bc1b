package tool

// FunctionSchema function calling 格式的工具描述，不依赖具体模型厂商
type FunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterObject `json:"parameters"`
}

type ParameterObject struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

type Property struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

func SchemaOf(t Tool) FunctionSchema {
	params := ParameterObject{
		Type:       "object",
		Properties: make(map[string]Property),
		Required:   []string{},
	}
	for _, p := range t.Parameters() {
		params.Properties[p.Name] = Property{
			Type:        p.Type,
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Required {
			params.Required = append(params.Required, p.Name)
		}
	}

	return FunctionSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  params,
	}
}

// Names 返回工具名称列表
func Names(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}
