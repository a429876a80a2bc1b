// Package crmtools 提供注册到智能体的CRM业务工具
// 每个工具的所有查询都以 ExecutionContext.UserID 过滤
package crmtools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/tool"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultListLimit = 20

type toolset struct {
	db  *gorm.DB
	now func() time.Time
}

// Tools 返回完整的业务工具列表，用于在启动时构建注册表
func Tools(db *gorm.DB, now func() time.Time) []tool.Tool {
	if now == nil {
		now = time.Now
	}
	ts := &toolset{db: db, now: now}

	return []tool.Tool{
		ts.currentDate(),
		ts.salesSummary(),
		ts.registerSale(),
		ts.searchClients(),
		ts.clientDetails(),
		ts.pendingCollections(),
		ts.createTask(),
		ts.listTasks(),
		ts.completeTask(),
		ts.listProspects(),
		ts.updateProspectStatus(),
		ts.nearbyRecords(),
		ts.planVisitRoute(),
	}
}

func stringParam(params tool.Params, key string) string {
	s, _ := params[key].(string)
	return strings.TrimSpace(s)
}

func numberParam(params tool.Params, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func idParam(params tool.Params, key string) (uint, bool) {
	f, ok := numberParam(params, key)
	if !ok || f <= 0 || f != math.Trunc(f) {
		return 0, false
	}
	return uint(f), true
}

func amountParam(params tool.Params, key string) (decimal.Decimal, bool) {
	f, ok := numberParam(params, key)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f).Round(2), true
}

func describeID(params tool.Params, key string) string {
	if id, ok := idParam(params, key); ok {
		return fmt.Sprintf("#%d", id)
	}
	return "(desconhecido)"
}

func prospectStatusEnum() []string {
	values := make([]string, 0, len(model.ProspectStatuses))
	for _, s := range model.ProspectStatuses {
		values = append(values, string(s))
	}
	return values
}
