package dao

import (
	"context"
	"errors"
	"time"

	"crm-agent-backend/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 所有查询都以 user_id 过滤，不存在或不属于该用户时返回 nil, nil

func GetClientByID(ctx context.Context, db *gorm.DB, userID string, clientID uint) (*model.Client, error) {
	var client model.Client
	if err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, clientID).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// SearchClients 按名称模糊匹配，query 为空时返回最近更新的客户
func SearchClients(ctx context.Context, db *gorm.DB, userID, query, city string, limit int) ([]model.Client, error) {
	tx := db.WithContext(ctx).Where("user_id = ?", userID)
	if query != "" {
		tx = tx.Where("name LIKE ?", "%"+query+"%")
	}
	if city != "" {
		tx = tx.Where("city = ?", city)
	}

	var clients []model.Client
	if err := tx.Order("updated_at DESC").
		Limit(limit).
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func GetRecentSalesByClient(ctx context.Context, db *gorm.DB, userID string, clientID uint, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	if err := db.WithContext(ctx).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Order("sold_at DESC").
		Limit(limit).
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func CountSalesByClient(ctx context.Context, db *gorm.DB, userID string, clientID uint) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&model.Sale{}).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Count(&count).Error
	return count, err
}

// GetSalesBetween 返回 [from, to) 区间内的销售记录
func GetSalesBetween(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	if err := db.WithContext(ctx).
		Where("user_id = ? AND sold_at >= ? AND sold_at < ?", userID, from, to).
		Order("sold_at ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func CreateSale(ctx context.Context, db *gorm.DB, sale *model.Sale) error {
	return db.WithContext(ctx).Create(sale).Error
}

// GetOpenCollections clientID 为 0 时返回该用户全部未结应收款
func GetOpenCollections(ctx context.Context, db *gorm.DB, userID string, clientID uint) ([]model.Collection, error) {
	tx := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CollectionStatusOpen)
	if clientID != 0 {
		tx = tx.Where("client_id = ?", clientID)
	}

	var collections []model.Collection
	if err := tx.Order("due_date ASC").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

func SumCollections(collections []model.Collection) decimal.Decimal {
	total := decimal.Zero
	for _, c := range collections {
		total = total.Add(c.Amount)
	}
	return total
}

func SumSales(sales []model.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Amount)
	}
	return total
}

func CreateTask(ctx context.Context, db *gorm.DB, task *model.Task) error {
	return db.WithContext(ctx).Create(task).Error
}

func GetTaskByID(ctx context.Context, db *gorm.DB, userID string, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

type TaskFilter struct {
	Status     model.TaskStatus
	ClientID   uint
	ProspectID uint
	Limit      int
}

func ListTasks(ctx context.Context, db *gorm.DB, userID string, filter TaskFilter) ([]model.Task, error) {
	tx := db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		tx = tx.Where("client_id = ?", filter.ClientID)
	}
	if filter.ProspectID != 0 {
		tx = tx.Where("prospect_id = ?", filter.ProspectID)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var tasks []model.Task
	if err := tx.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CompleteTask 仅在任务仍为 open 时更新，返回是否有行被修改
func CompleteTask(ctx context.Context, db *gorm.DB, userID string, taskID uint, completedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&model.Task{}).
		Where("user_id = ? AND id = ? AND status = ?", userID, taskID, model.TaskStatusOpen).
		Updates(map[string]any{
			"status":       model.TaskStatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func GetProspectByID(ctx context.Context, db *gorm.DB, userID string, prospectID uint) (*model.Prospect, error) {
	var prospect model.Prospect
	if err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, prospectID).
		First(&prospect).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prospect, nil
}

func ListProspects(ctx context.Context, db *gorm.DB, userID string, status model.ProspectStatus, city string, limit int) ([]model.Prospect, error) {
	tx := db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if city != "" {
		tx = tx.Where("city = ?", city)
	}

	var prospects []model.Prospect
	if err := tx.Order("updated_at DESC").
		Limit(limit).
		Find(&prospects).Error; err != nil {
		return nil, err
	}
	return prospects, nil
}

func UpdateProspectStatus(ctx context.Context, db *gorm.DB, userID string, prospectID uint, status model.ProspectStatus) (bool, error) {
	result := db.WithContext(ctx).
		Model(&model.Prospect{}).
		Where("user_id = ? AND id = ?", userID, prospectID).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
