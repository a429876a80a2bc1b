package crmtools

import (
	"context"
	"fmt"
	"sort"

	"crm-agent-backend/dao"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"

	"github.com/shopspring/decimal"
)

func (ts *toolset) nearbyRecords() tool.Tool {
	return &tool.Definition{
		ToolName:     "find_records_in_city",
		ToolCategory: tool.CategoryMap,
		EngineDesc:   "Lists the user's clients and prospects located in a given city.",
		DisplayDesc:  "Ver clientes e potenciais clientes numa cidade",
		Params: []tool.Parameter{
			{Name: "city", Type: tool.ParamString, Description: "City name", Required: true},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Ver registos em %s", stringParam(params, "city"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			city := stringParam(params, "city")
			clients, err := dao.SearchClients(ctx, ts.db, ec.UserID, "", city, defaultListLimit)
			if err != nil {
				return nil, err
			}
			prospects, err := dao.ListProspects(ctx, ts.db, ec.UserID, "", city, defaultListLimit)
			if err != nil {
				return nil, err
			}

			return tool.Success(
				fmt.Sprintf("%s: %d cliente(s) e %d potencial(is) cliente(s).", city, len(clients), len(prospects)),
				map[string]any{
					"city":      city,
					"clients":   clients,
					"prospects": prospects,
				},
			), nil
		},
	}
}

type routeStop struct {
	ClientID    uint   `json:"client_id"`
	Name        string `json:"name"`
	Outstanding string `json:"outstanding"`
	Reason      string `json:"reason"`
}

func (ts *toolset) planVisitRoute() tool.Tool {
	return &tool.Definition{
		ToolName:     "plan_visit_route",
		ToolCategory: tool.CategoryRoutes,
		EngineDesc:   "Suggests a visit order for the user's clients in a city, prioritizing those with the highest outstanding balance.",
		DisplayDesc:  "Sugerir rota de visitas",
		Params: []tool.Parameter{
			{Name: "city", Type: tool.ParamString, Description: "City name", Required: true},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Sugerir rota de visitas em %s", stringParam(params, "city"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			city := stringParam(params, "city")
			clients, err := dao.SearchClients(ctx, ts.db, ec.UserID, "", city, defaultListLimit)
			if err != nil {
				return nil, err
			}

			balances := make(map[uint]decimal.Decimal, len(clients))
			for _, c := range clients {
				collections, err := dao.GetOpenCollections(ctx, ts.db, ec.UserID, c.ID)
				if err != nil {
					return nil, err
				}
				balances[c.ID] = dao.SumCollections(collections)
			}

			ordered := append([]model.Client(nil), clients...)
			sort.SliceStable(ordered, func(i, j int) bool {
				return balances[ordered[i].ID].GreaterThan(balances[ordered[j].ID])
			})

			stops := make([]routeStop, 0, len(ordered))
			for _, c := range ordered {
				reason := "Visita de acompanhamento"
				if balances[c.ID].IsPositive() {
					reason = "Cobrança pendente"
				}
				stops = append(stops, routeStop{
					ClientID:    c.ID,
					Name:        c.Name,
					Outstanding: balances[c.ID].StringFixed(2),
					Reason:      reason,
				})
			}

			return tool.Success(fmt.Sprintf("Rota sugerida com %d paragem(ns) em %s.", len(stops), city), stops), nil
		},
	}
}
