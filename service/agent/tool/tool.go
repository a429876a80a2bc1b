// Package tool 定义业务能力必须实现的工具契约，以及按页面筛选工具的注册表
package tool

import (
	"context"
	"errors"
)

type Category string

const (
	CategoryGlobal      Category = "global"
	CategorySales       Category = "sales"
	CategoryClients     Category = "clients"
	CategoryCollections Category = "collections"
	CategoryTasks       Category = "tasks"
	CategoryProspects   Category = "prospects"
	CategoryMap         Category = "map"
	CategoryRoutes      Category = "routes"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

var ErrToolNotFound = errors.New("tool not found")

// Params 工具参数，与 JSON 对象一一对应
type Params map[string]any

// Parameter 参数声明，工具以有序切片给出
type Parameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool

	// 可选的取值集合
	Enum []string
}

// ExecutionContext 每次执行都限定在 UserID 的数据范围内
type ExecutionContext struct {
	UserID     string
	SessionID  string
	Page       string
	EntityType string
	EntityID   string
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Tool 推理引擎可调用的能力
type Tool interface {
	Name() string
	Category() Category

	// Description 面向推理引擎的说明
	Description() string

	// DisplayDescription 面向用户展示的说明
	DisplayDescription() string

	Parameters() []Parameter

	// RequiresApproval 为 true 时只能经用户确认后执行
	RequiresApproval() bool

	// Describe 根据参数生成可读的动作描述，不能有副作用
	Describe(params Params) string

	Execute(ctx context.Context, params Params, ec ExecutionContext) (*Result, error)
}

// Definition 以函数字段实现 Tool，业务工具通过填充它完成注册
type Definition struct {
	ToolName      string
	ToolCategory  Category
	EngineDesc    string
	DisplayDesc   string
	Params        []Parameter
	NeedsApproval bool
	DescribeFunc  func(params Params) string
	ExecuteFunc   func(ctx context.Context, params Params, ec ExecutionContext) (*Result, error)
}

var _ Tool = (*Definition)(nil)

func (d *Definition) Name() string               { return d.ToolName }
func (d *Definition) Category() Category         { return d.ToolCategory }
func (d *Definition) Description() string        { return d.EngineDesc }
func (d *Definition) DisplayDescription() string { return d.DisplayDesc }
func (d *Definition) Parameters() []Parameter    { return d.Params }
func (d *Definition) RequiresApproval() bool     { return d.NeedsApproval }

func (d *Definition) Describe(params Params) string {
	if d.DescribeFunc == nil {
		return d.DisplayDesc
	}
	return d.DescribeFunc(params)
}

func (d *Definition) Execute(ctx context.Context, params Params, ec ExecutionContext) (*Result, error) {
	return d.ExecuteFunc(ctx, params, ec)
}

// Success 构造成功结果
func Success(message string, data any) *Result {
	return &Result{Success: true, Message: message, Data: data}
}

// Failure 业务层面的失败（如记录不存在）不是异常，以结果形式返回给推理引擎
func Failure(message, errMsg string) *Result {
	return &Result{Success: false, Message: message, Error: errMsg}
}
