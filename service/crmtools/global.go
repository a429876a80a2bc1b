package crmtools

import (
	"context"
	"fmt"

	"crm-agent-backend/service/agent/tool"
)

func (ts *toolset) currentDate() tool.Tool {
	return &tool.Definition{
		ToolName:     "get_current_date",
		ToolCategory: tool.CategoryGlobal,
		EngineDesc:   "Returns today's date and weekday. Use it to resolve relative dates such as 'amanhã' or 'este mês'.",
		DisplayDesc:  "Consultar a data atual",
		DescribeFunc: func(tool.Params) string { return "Consultar a data atual" },
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			now := ts.now()
			return tool.Success(
				fmt.Sprintf("Hoje é %s.", now.Format("2006-01-02")),
				map[string]any{
					"date":    now.Format("2006-01-02"),
					"weekday": now.Weekday().String(),
					"month":   int(now.Month()),
					"year":    now.Year(),
				},
			), nil
		},
	}
}
