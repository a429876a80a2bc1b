package crmtools

import (
	"context"
	"fmt"

	"crm-agent-backend/dao"
	"crm-agent-backend/service/agent/tool"
)

func (ts *toolset) searchClients() tool.Tool {
	return &tool.Definition{
		ToolName:     "search_clients",
		ToolCategory: tool.CategoryClients,
		EngineDesc:   "Searches the user's clients by (partial) name and optionally city.",
		DisplayDesc:  "Procurar clientes",
		Params: []tool.Parameter{
			{Name: "query", Type: tool.ParamString, Description: "Part of the client name"},
			{Name: "city", Type: tool.ParamString, Description: "City filter"},
		},
		DescribeFunc: func(params tool.Params) string {
			if q := stringParam(params, "query"); q != "" {
				return fmt.Sprintf("Procurar clientes: %s", q)
			}
			return "Listar clientes"
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			clients, err := dao.SearchClients(ctx, ts.db, ec.UserID,
				stringParam(params, "query"), stringParam(params, "city"), defaultListLimit)
			if err != nil {
				return nil, err
			}
			return tool.Success(fmt.Sprintf("Encontrei %d cliente(s).", len(clients)), clients), nil
		},
	}
}

func (ts *toolset) clientDetails() tool.Tool {
	return &tool.Definition{
		ToolName:     "get_client_details",
		ToolCategory: tool.CategoryClients,
		EngineDesc:   "Returns a client's contact data, recent sales and outstanding balance.",
		DisplayDesc:  "Ver detalhes do cliente",
		Params: []tool.Parameter{
			{Name: "client_id", Type: tool.ParamInteger, Description: "Client id", Required: true},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Ver detalhes do cliente %s", describeID(params, "client_id"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			clientID, ok := idParam(params, "client_id")
			if !ok {
				return tool.Failure("Cliente inválido", "client_id must be a positive integer"), nil
			}

			client, err := dao.GetClientByID(ctx, ts.db, ec.UserID, clientID)
			if err != nil {
				return nil, err
			}
			if client == nil {
				return tool.Failure("Cliente não encontrado", "client not found"), nil
			}

			sales, err := dao.GetRecentSalesByClient(ctx, ts.db, ec.UserID, clientID, 5)
			if err != nil {
				return nil, err
			}
			collections, err := dao.GetOpenCollections(ctx, ts.db, ec.UserID, clientID)
			if err != nil {
				return nil, err
			}
			balance := dao.SumCollections(collections)

			return tool.Success(
				fmt.Sprintf("%s: %d venda(s) recente(s), saldo pendente de %s €.", client.Name, len(sales), balance.StringFixed(2)),
				map[string]any{
					"client":              client,
					"recent_sales":        sales,
					"outstanding_balance": balance.StringFixed(2),
				},
			), nil
		},
	}
}
