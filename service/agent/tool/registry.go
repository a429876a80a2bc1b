package tool

import (
	"log/slog"
	"sync"
)

// pageCategories 每个页面额外暴露的工具类别，global 类别始终包含
var pageCategories = map[string][]Category{
	"sales":       {CategorySales, CategoryClients, CategoryCollections},
	"clients":     {CategoryClients, CategorySales, CategoryCollections, CategoryTasks},
	"collections": {CategoryCollections, CategoryClients, CategorySales},
	"tasks":       {CategoryTasks, CategoryClients, CategoryProspects},
	"prospects":   {CategoryProspects, CategoryClients, CategoryTasks},
	"map":         {CategoryMap, CategoryClients, CategoryProspects},
	"routes":      {CategoryRoutes, CategoryMap, CategoryClients},
}

// defaultCategories 用于 dashboard 和未知页面
var defaultCategories = []Category{
	CategorySales,
	CategoryClients,
	CategoryCollections,
	CategoryTasks,
	CategoryProspects,
}

// Registry 启动时由显式的工具列表构建，并注入到执行器和会话相关组件
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	// 保持注册顺序，保证导出的工具列表稳定
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register 名称重复时覆盖已有工具并记录告警
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		slog.Warn("Tool already registered, overwriting", "tool_name", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, ErrToolNotFound
	}
	return t, nil
}

func (r *Registry) GetAll() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.tools[name])
	}
	return all
}

func (r *Registry) GetByCategory(category Category) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byCategoryLocked(category)
}

func (r *Registry) byCategoryLocked(category Category) []Tool {
	var matched []Tool
	for _, name := range r.order {
		if t := r.tools[name]; t.Category() == category {
			matched = append(matched, t)
		}
	}
	return matched
}

// GetContextualTools 返回 global 工具与页面对应类别工具的并集，按名称去重
func (r *Registry) GetContextualTools(page string) []Tool {
	categories, ok := pageCategories[page]
	if !ok {
		categories = defaultCategories
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Tool
	collect := func(tools []Tool) {
		for _, t := range tools {
			if seen[t.Name()] {
				continue
			}
			seen[t.Name()] = true
			result = append(result, t)
		}
	}

	collect(r.byCategoryLocked(CategoryGlobal))
	for _, c := range categories {
		collect(r.byCategoryLocked(c))
	}
	return result
}

// ToSchemas tools 为空时导出整个目录
func (r *Registry) ToSchemas(tools ...Tool) []FunctionSchema {
	if len(tools) == 0 {
		tools = r.GetAll()
	}

	schemas := make([]FunctionSchema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, SchemaOf(t))
	}
	return schemas
}
