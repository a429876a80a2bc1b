// Package contextual 根据当前页面和聚焦的记录生成实体摘要与建议提示
package contextual

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crm-agent-backend/dao"
	"crm-agent-backend/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EntityClient   = "client"
	EntityProspect = "prospect"

	recentSalesLimit = 5
	maxQuickActions  = 4
)

type QuickAction struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// EntityContext 聚焦记录的摘要，Details 供下游工具引用
type EntityContext struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Summary string         `json:"summary"`
	Details map[string]any `json:"details"`

	OutstandingBalance decimal.Decimal `json:"-"`
	OpenTasks          int             `json:"-"`
}

type EnhancedContext struct {
	Page         string         `json:"page"`
	PageTitle    string         `json:"page_title"`
	Entity       *EntityContext `json:"entity,omitempty"`
	QuickActions []QuickAction  `json:"quick_actions"`
	Summary      string         `json:"summary"`
}

var pageTitles = map[string]string{
	"dashboard":   "Painel",
	"sales":       "Vendas",
	"clients":     "Clientes",
	"collections": "Cobranças",
	"tasks":       "Tarefas",
	"prospects":   "Potenciais Clientes",
	"map":         "Mapa",
	"routes":      "Rotas",
}

var pageQuickActions = map[string][]QuickAction{
	"dashboard": {
		{Label: "Resumo de vendas", Prompt: "Resumo de vendas deste mês"},
		{Label: "Tarefas de hoje", Prompt: "Que tarefas tenho em aberto?"},
		{Label: "Cobranças pendentes", Prompt: "Mostra as cobranças pendentes"},
	},
	"sales": {
		{Label: "Resumo do mês", Prompt: "Resumo de vendas deste mês"},
		{Label: "Registar venda", Prompt: "Regista uma nova venda"},
		{Label: "Melhores clientes", Prompt: "Quais são os clientes com mais vendas?"},
	},
	"clients": {
		{Label: "Procurar cliente", Prompt: "Procura um cliente pelo nome"},
		{Label: "Clientes com saldo", Prompt: "Que clientes têm saldo pendente?"},
	},
	"collections": {
		{Label: "Cobranças pendentes", Prompt: "Mostra as cobranças pendentes"},
		{Label: "Total em dívida", Prompt: "Qual é o total em dívida?"},
	},
	"tasks": {
		{Label: "Tarefas em aberto", Prompt: "Que tarefas tenho em aberto?"},
		{Label: "Nova tarefa", Prompt: "Cria uma tarefa para amanhã"},
	},
	"prospects": {
		{Label: "Potenciais clientes", Prompt: "Lista os meus potenciais clientes"},
		{Label: "Qualificados", Prompt: "Que potenciais clientes estão qualificados?"},
	},
	"map": {
		{Label: "Clientes por cidade", Prompt: "Mostra os clientes de uma cidade"},
		{Label: "Potenciais por cidade", Prompt: "Mostra os potenciais clientes de uma cidade"},
	},
	"routes": {
		{Label: "Planear rota", Prompt: "Planeia uma rota de visitas para hoje"},
		{Label: "Clientes a visitar", Prompt: "Que clientes devo visitar?"},
	},
}

var helpQuickActions = []QuickAction{
	{Label: "Ajuda", Prompt: "O que podes fazer por mim?"},
	{Label: "Resumo", Prompt: "Dá-me um resumo do meu dia"},
}

type Builder struct {
	db *gorm.DB
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// GetEntityContext 记录不存在或不属于该用户时返回 nil
func (b *Builder) GetEntityContext(ctx context.Context, userID, entityType, entityID string) (*EntityContext, error) {
	id, err := strconv.ParseUint(entityID, 10, 64)
	if err != nil || id == 0 {
		return nil, nil
	}

	switch entityType {
	case EntityClient:
		return b.clientContext(ctx, userID, uint(id))
	case EntityProspect:
		return b.prospectContext(ctx, userID, uint(id))
	}
	return nil, nil
}

func (b *Builder) clientContext(ctx context.Context, userID string, clientID uint) (*EntityContext, error) {
	client, err := dao.GetClientByID(ctx, b.db, userID, clientID)
	if err != nil || client == nil {
		return nil, err
	}

	recentSales, err := dao.GetRecentSalesByClient(ctx, b.db, userID, clientID, recentSalesLimit)
	if err != nil {
		return nil, err
	}
	salesCount, err := dao.CountSalesByClient(ctx, b.db, userID, clientID)
	if err != nil {
		return nil, err
	}
	collections, err := dao.GetOpenCollections(ctx, b.db, userID, clientID)
	if err != nil {
		return nil, err
	}
	tasks, err := dao.ListTasks(ctx, b.db, userID, dao.TaskFilter{
		Status:   model.TaskStatusOpen,
		ClientID: clientID,
	})
	if err != nil {
		return nil, err
	}

	recentTotal := dao.SumSales(recentSales)
	outstanding := dao.SumCollections(collections)

	summary := fmt.Sprintf("Cliente %s (%s): %d venda(s) registada(s), total recente de %s €; saldo pendente de %s € em %d cobrança(s); %d tarefa(s) em aberto.",
		client.Name, client.Status, salesCount, recentTotal.StringFixed(2),
		outstanding.StringFixed(2), len(collections), len(tasks))

	return &EntityContext{
		Type:    EntityClient,
		ID:      strconv.FormatUint(uint64(client.ID), 10),
		Name:    client.Name,
		Status:  client.Status,
		Summary: summary,
		Details: map[string]any{
			"client_id":           client.ID,
			"name":                client.Name,
			"email":               client.Email,
			"phone":               client.Phone,
			"city":                client.City,
			"sales_count":         salesCount,
			"recent_sales":        recentSales,
			"recent_sales_total":  recentTotal.StringFixed(2),
			"outstanding_balance": outstanding.StringFixed(2),
			"open_collections":    len(collections),
			"open_tasks":          len(tasks),
		},
		OutstandingBalance: outstanding,
		OpenTasks:          len(tasks),
	}, nil
}

func (b *Builder) prospectContext(ctx context.Context, userID string, prospectID uint) (*EntityContext, error) {
	prospect, err := dao.GetProspectByID(ctx, b.db, userID, prospectID)
	if err != nil || prospect == nil {
		return nil, err
	}

	tasks, err := dao.ListTasks(ctx, b.db, userID, dao.TaskFilter{
		Status:     model.TaskStatusOpen,
		ProspectID: prospectID,
	})
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Potencial cliente %s", prospect.Name)
	if prospect.Company != "" {
		summary += fmt.Sprintf(" (%s)", prospect.Company)
	}
	summary += fmt.Sprintf(": estado %s, valor estimado de %s €; %d tarefa(s) em aberto.",
		prospect.Status, prospect.EstimatedValue.StringFixed(2), len(tasks))

	return &EntityContext{
		Type:    EntityProspect,
		ID:      strconv.FormatUint(uint64(prospect.ID), 10),
		Name:    prospect.Name,
		Status:  string(prospect.Status),
		Summary: summary,
		Details: map[string]any{
			"prospect_id":     prospect.ID,
			"name":            prospect.Name,
			"company":         prospect.Company,
			"city":            prospect.City,
			"status":          prospect.Status,
			"estimated_value": prospect.EstimatedValue.StringFixed(2),
			"open_tasks":      len(tasks),
		},
		OpenTasks: len(tasks),
	}, nil
}

// GetQuickActions 有聚焦实体时返回 2-4 个与实体相关的建议，否则按页面查表
func GetQuickActions(page string, entity *EntityContext) []QuickAction {
	if entity != nil {
		return entityQuickActions(entity)
	}

	if actions, ok := pageQuickActions[page]; ok {
		return append([]QuickAction(nil), actions...)
	}
	return append([]QuickAction(nil), helpQuickActions...)
}

func entityQuickActions(entity *EntityContext) []QuickAction {
	var actions []QuickAction

	switch entity.Type {
	case EntityClient:
		actions = append(actions,
			QuickAction{Label: "Vendas recentes", Prompt: fmt.Sprintf("Mostra as vendas recentes de %s", entity.Name)},
			QuickAction{Label: "Criar tarefa", Prompt: fmt.Sprintf("Cria uma tarefa de follow-up para %s", entity.Name)},
		)
		if entity.OutstandingBalance.IsPositive() {
			actions = append(actions, QuickAction{
				Label:  "Saldo pendente",
				Prompt: fmt.Sprintf("Qual é o saldo pendente de %s?", entity.Name),
			})
		}
		if entity.OpenTasks > 0 {
			actions = append(actions, QuickAction{
				Label:  "Tarefas em aberto",
				Prompt: fmt.Sprintf("Lista as tarefas em aberto de %s", entity.Name),
			})
		}
	case EntityProspect:
		actions = append(actions,
			QuickAction{Label: "Atualizar estado", Prompt: fmt.Sprintf("Atualiza o estado de %s", entity.Name)},
			QuickAction{Label: "Criar tarefa", Prompt: fmt.Sprintf("Cria uma tarefa para contactar %s", entity.Name)},
		)
		if entity.Status == string(model.ProspectStatusNew) {
			actions = append(actions, QuickAction{
				Label:  "Marcar como contactado",
				Prompt: fmt.Sprintf("Marca %s como contactado", entity.Name),
			})
		}
	default:
		return append([]QuickAction(nil), helpQuickActions...)
	}

	if len(actions) > maxQuickActions {
		actions = actions[:maxQuickActions]
	}
	return actions
}

func PageTitle(page string) string {
	if title, ok := pageTitles[page]; ok {
		return title
	}
	return "Assistente"
}

// BuildEnhancedContext entityType 或 entityID 为空时不解析实体
func (b *Builder) BuildEnhancedContext(ctx context.Context, userID, page, entityType, entityID string) (*EnhancedContext, error) {
	var entity *EntityContext
	if entityType != "" && entityID != "" {
		var err error
		entity, err = b.GetEntityContext(ctx, userID, entityType, entityID)
		if err != nil {
			return nil, fmt.Errorf("failed to build entity context: %w", err)
		}
	}

	title := PageTitle(page)

	var summary strings.Builder
	fmt.Fprintf(&summary, "O utilizador está na página %s.", title)
	if entity != nil {
		fmt.Fprintf(&summary, " Registo em foco: %s", entity.Summary)
	}

	return &EnhancedContext{
		Page:         page,
		PageTitle:    title,
		Entity:       entity,
		QuickActions: GetQuickActions(page, entity),
		Summary:      summary.String(),
	}, nil
}
