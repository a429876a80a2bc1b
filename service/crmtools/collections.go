package crmtools

import (
	"context"
	"fmt"

	"crm-agent-backend/dao"
	"crm-agent-backend/service/agent/tool"
)

func (ts *toolset) pendingCollections() tool.Tool {
	return &tool.Definition{
		ToolName:     "get_pending_collections",
		ToolCategory: tool.CategoryCollections,
		EngineDesc:   "Lists open (unpaid) collections, optionally for a single client, with the total outstanding amount.",
		DisplayDesc:  "Ver cobranças pendentes",
		Params: []tool.Parameter{
			{Name: "client_id", Type: tool.ParamInteger, Description: "Restrict to one client"},
		},
		DescribeFunc: func(params tool.Params) string {
			if _, ok := idParam(params, "client_id"); ok {
				return fmt.Sprintf("Ver cobranças pendentes do cliente %s", describeID(params, "client_id"))
			}
			return "Ver cobranças pendentes"
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			clientID, _ := idParam(params, "client_id")
			collections, err := dao.GetOpenCollections(ctx, ts.db, ec.UserID, clientID)
			if err != nil {
				return nil, err
			}

			total := dao.SumCollections(collections)
			return tool.Success(
				fmt.Sprintf("%d cobrança(s) pendente(s), total de %s €.", len(collections), total.StringFixed(2)),
				map[string]any{
					"collections": collections,
					"total":       total.StringFixed(2),
				},
			), nil
		},
	}
}
