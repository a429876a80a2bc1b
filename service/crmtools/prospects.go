package crmtools

import (
	"context"
	"fmt"

	"crm-agent-backend/dao"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"
)

func (ts *toolset) listProspects() tool.Tool {
	return &tool.Definition{
		ToolName:     "list_prospects",
		ToolCategory: tool.CategoryProspects,
		EngineDesc:   "Lists the user's prospects, optionally filtered by pipeline status or city.",
		DisplayDesc:  "Listar potenciais clientes",
		Params: []tool.Parameter{
			{Name: "status", Type: tool.ParamString, Description: "Pipeline status", Enum: prospectStatusEnum()},
			{Name: "city", Type: tool.ParamString, Description: "City filter"},
		},
		DescribeFunc: func(tool.Params) string { return "Listar potenciais clientes" },
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			prospects, err := dao.ListProspects(ctx, ts.db, ec.UserID,
				model.ProspectStatus(stringParam(params, "status")), stringParam(params, "city"), defaultListLimit)
			if err != nil {
				return nil, err
			}
			return tool.Success(fmt.Sprintf("Encontrei %d potencial(is) cliente(s).", len(prospects)), prospects), nil
		},
	}
}

func (ts *toolset) updateProspectStatus() tool.Tool {
	return &tool.Definition{
		ToolName:      "update_prospect_status",
		ToolCategory:  tool.CategoryProspects,
		EngineDesc:    "Moves a prospect to another pipeline status. Requires user confirmation.",
		DisplayDesc:   "Atualizar estado do potencial cliente",
		NeedsApproval: true,
		Params: []tool.Parameter{
			{Name: "prospect_id", Type: tool.ParamInteger, Description: "Prospect id", Required: true},
			{Name: "status", Type: tool.ParamString, Description: "New pipeline status", Required: true, Enum: prospectStatusEnum()},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Atualizar estado do potencial cliente %s para %s",
				describeID(params, "prospect_id"), stringParam(params, "status"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			prospectID, ok := idParam(params, "prospect_id")
			if !ok {
				return tool.Failure("Potencial cliente inválido", "prospect_id must be a positive integer"), nil
			}
			status := model.ProspectStatus(stringParam(params, "status"))

			prospect, err := dao.GetProspectByID(ctx, ts.db, ec.UserID, prospectID)
			if err != nil {
				return nil, err
			}
			if prospect == nil {
				return tool.Failure("Potencial cliente não encontrado", "prospect not found"), nil
			}

			if _, err := dao.UpdateProspectStatus(ctx, ts.db, ec.UserID, prospectID, status); err != nil {
				return nil, err
			}

			return tool.Success(
				fmt.Sprintf("%s passou de %s para %s.", prospect.Name, prospect.Status, status),
				map[string]any{
					"prospect_id":     prospect.ID,
					"previous_status": prospect.Status,
					"status":          status,
				},
			), nil
		},
	}
}
