package crmtools

import (
	"context"
	"fmt"
	"time"

	"crm-agent-backend/dao"
	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"
)

const dateLayout = "2006-01-02"

func (ts *toolset) createTask() tool.Tool {
	return &tool.Definition{
		ToolName:      "create_task",
		ToolCategory:  tool.CategoryTasks,
		EngineDesc:    "Creates a follow-up task, optionally linked to a client or prospect. Requires user confirmation before it is saved.",
		DisplayDesc:   "Criar uma tarefa",
		NeedsApproval: true,
		Params: []tool.Parameter{
			{Name: "title", Type: tool.ParamString, Description: "Task title", Required: true},
			{Name: "description", Type: tool.ParamString, Description: "Task details"},
			{Name: "due_date", Type: tool.ParamString, Description: "Due date in YYYY-MM-DD"},
			{Name: "priority", Type: tool.ParamString, Description: "Task priority", Enum: []string{"low", "medium", "high"}},
			{Name: "client_id", Type: tool.ParamInteger, Description: "Linked client id"},
			{Name: "prospect_id", Type: tool.ParamInteger, Description: "Linked prospect id"},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Criar tarefa: %s", stringParam(params, "title"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			title := stringParam(params, "title")
			if title == "" {
				return tool.Failure("Título em falta", "title is required"), nil
			}

			task := model.Task{
				UserID:      ec.UserID,
				Title:       title,
				Description: stringParam(params, "description"),
				Priority:    stringParam(params, "priority"),
				Status:      model.TaskStatusOpen,
			}
			if task.Priority == "" {
				task.Priority = "medium"
			}

			if raw := stringParam(params, "due_date"); raw != "" {
				due, err := time.Parse(dateLayout, raw)
				if err != nil {
					return tool.Failure("Data inválida", fmt.Sprintf("invalid due_date %q", raw)), nil
				}
				task.DueDate = &due
			}

			if clientID, ok := idParam(params, "client_id"); ok {
				client, err := dao.GetClientByID(ctx, ts.db, ec.UserID, clientID)
				if err != nil {
					return nil, err
				}
				if client == nil {
					return tool.Failure("Cliente não encontrado", "client not found"), nil
				}
				task.ClientID = &client.ID
			}
			if prospectID, ok := idParam(params, "prospect_id"); ok {
				prospect, err := dao.GetProspectByID(ctx, ts.db, ec.UserID, prospectID)
				if err != nil {
					return nil, err
				}
				if prospect == nil {
					return tool.Failure("Potencial cliente não encontrado", "prospect not found"), nil
				}
				task.ProspectID = &prospect.ID
			}

			if err := dao.CreateTask(ctx, ts.db, &task); err != nil {
				return nil, err
			}

			return tool.Success(
				fmt.Sprintf("Tarefa criada: %s", task.Title),
				map[string]any{
					"task_id": task.ID,
					"title":   task.Title,
				},
			), nil
		},
	}
}

func (ts *toolset) listTasks() tool.Tool {
	return &tool.Definition{
		ToolName:     "list_tasks",
		ToolCategory: tool.CategoryTasks,
		EngineDesc:   "Lists the user's tasks, optionally filtered by status or linked client.",
		DisplayDesc:  "Listar tarefas",
		Params: []tool.Parameter{
			{Name: "status", Type: tool.ParamString, Description: "Task status", Enum: []string{string(model.TaskStatusOpen), string(model.TaskStatusCompleted)}},
			{Name: "client_id", Type: tool.ParamInteger, Description: "Linked client id"},
		},
		DescribeFunc: func(tool.Params) string { return "Listar tarefas" },
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			clientID, _ := idParam(params, "client_id")
			tasks, err := dao.ListTasks(ctx, ts.db, ec.UserID, dao.TaskFilter{
				Status:   model.TaskStatus(stringParam(params, "status")),
				ClientID: clientID,
				Limit:    defaultListLimit,
			})
			if err != nil {
				return nil, err
			}
			return tool.Success(fmt.Sprintf("Encontrei %d tarefa(s).", len(tasks)), tasks), nil
		},
	}
}

func (ts *toolset) completeTask() tool.Tool {
	return &tool.Definition{
		ToolName:      "complete_task",
		ToolCategory:  tool.CategoryTasks,
		EngineDesc:    "Marks an open task as completed. Requires user confirmation.",
		DisplayDesc:   "Concluir uma tarefa",
		NeedsApproval: true,
		Params: []tool.Parameter{
			{Name: "task_id", Type: tool.ParamInteger, Description: "Task id", Required: true},
		},
		DescribeFunc: func(params tool.Params) string {
			return fmt.Sprintf("Concluir tarefa %s", describeID(params, "task_id"))
		},
		ExecuteFunc: func(ctx context.Context, params tool.Params, ec tool.ExecutionContext) (*tool.Result, error) {
			taskID, ok := idParam(params, "task_id")
			if !ok {
				return tool.Failure("Tarefa inválida", "task_id must be a positive integer"), nil
			}

			task, err := dao.GetTaskByID(ctx, ts.db, ec.UserID, taskID)
			if err != nil {
				return nil, err
			}
			if task == nil {
				return tool.Failure("Tarefa não encontrada", "task not found"), nil
			}

			updated, err := dao.CompleteTask(ctx, ts.db, ec.UserID, taskID, ts.now())
			if err != nil {
				return nil, err
			}
			if !updated {
				return tool.Failure("A tarefa já estava concluída", "task is not open"), nil
			}

			return tool.Success(fmt.Sprintf("Tarefa concluída: %s", task.Title), map[string]any{
				"task_id": task.ID,
				"title":   task.Title,
			}), nil
		},
	}
}
