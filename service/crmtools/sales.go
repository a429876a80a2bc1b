package crmtools

import (
	"context"
	"fmt"
	"time"

	"crm-agent-backend/dao"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"
)

func (ts *toolset) salesSummary() tool.Tool {
	return &tool.Definition{
		ToolName:     "get_sales_summary",
		ToolCategory: tool.CategorySales,
		EngineDesc:   "Summarizes the user's sales (total value and count) for a month. Defaults to the current month and year.",
		DisplayDesc:  "Resumo de vendas do mês",
		Params: []tool.Parameter{
			{Name: "month", Type: tool.ParamInteger, Description: "Month number 1-12"},
			{Name: "year", Type: tool.ParamInteger, Description: "Four digit year"},
		},
		DescribeFunc: func(params tool.Params) string {
			return "Consultar resumo de vendas"
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			now := ts.now()
			month, year := int(now.Month()), now.Year()
			if m, ok := numberParam(params, "month"); ok {
				month = int(m)
			}
			if y, ok := numberParam(params, "year"); ok {
				year = int(y)
			}
			if month < 1 || month > 12 {
				return tool.Failure("Mês inválido", fmt.Sprintf("invalid month: %d", month)), nil
			}

			from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			to := from.AddDate(0, 1, 0)
			sales, err := dao.GetSalesBetween(ctx, ts.db, ec.UserID, from, to)
			if err != nil {
				return nil, err
			}

			total := dao.SumSales(sales)
			return tool.Success(
				fmt.Sprintf("Vendas de %02d/%d: total de %s € em %d venda(s).", month, year, total.StringFixed(2), len(sales)),
				map[string]any{
					"month": month,
					"year":  year,
					"total": total.StringFixed(2),
					"count": len(sales),
				},
			), nil
		},
	}
}

func (ts *toolset) registerSale() tool.Tool {
	return &tool.Definition{
		ToolName:      "register_sale",
		ToolCategory:  tool.CategorySales,
		EngineDesc:    "Registers a new sale for one of the user's clients. Requires user confirmation before it is saved.",
		DisplayDesc:   "Registar uma venda",
		NeedsApproval: true,
		Params: []tool.Parameter{
			{Name: "client_id", Type: tool.ParamInteger, Description: "Client id", Required: true},
			{Name: "amount", Type: tool.ParamNumber, Description: "Sale amount in euros", Required: true},
			{Name: "description", Type: tool.ParamString, Description: "Short description of the sale"},
		},
		DescribeFunc: func(params tool.Params) string {
			amount, _ := amountParam(params, "amount")
			return fmt.Sprintf("Registar venda de %s € para o cliente %s", amount.StringFixed(2), describeID(params, "client_id"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			clientID, ok := idParam(params, "client_id")
			if !ok {
				return tool.Failure("Cliente inválido", "client_id must be a positive integer"), nil
			}
			amount, ok := amountParam(params, "amount")
			if !ok || !amount.IsPositive() {
				return tool.Failure("Valor inválido", "amount must be greater than zero"), nil
			}

			client, err := dao.GetClientByID(ctx, ts.db, ec.UserID, clientID)
			if err != nil {
				return nil, err
			}
			if client == nil {
				return tool.Failure("Cliente não encontrado", "client not found"), nil
			}

			sale := model.Sale{
				UserID:      ec.UserID,
				ClientID:    client.ID,
				Amount:      amount,
				Description: stringParam(params, "description"),
				SoldAt:      ts.now(),
			}
			if err := dao.CreateSale(ctx, ts.db, &sale); err != nil {
				return nil, err
			}

			return tool.Success(
				fmt.Sprintf("Venda de %s € registada para %s.", amount.StringFixed(2), client.Name),
				map[string]any{
					"sale_id":   sale.ID,
					"client_id": client.ID,
					"amount":    amount.StringFixed(2),
				},
			), nil
		},
	}
}
