package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 以下为业务工具和上下文构建读取的CRM记录，均按 user_id 归属

type Client struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"not null;size:64;index" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	City      string    `gorm:"index" json:"city"`
	Status    string    `gorm:"not null;default:active" json:"status"`
}

func (Client) TableName() string {
	return "crm_client"
}

type Sale struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UserID      string          `gorm:"not null;size:64;index:idx_sale_user_date" json:"user_id"`
	ClientID    uint            `gorm:"not null;index" json:"client_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Description string          `json:"description"`
	SoldAt      time.Time       `gorm:"not null;index:idx_sale_user_date" json:"sold_at"`
}

func (Sale) TableName() string {
	return "crm_sale"
}

type CollectionStatus string

const (
	CollectionStatusOpen CollectionStatus = "open"
	CollectionStatusPaid CollectionStatus = "paid"
)

// Collection 应收款
type Collection struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UserID    string           `gorm:"not null;size:64;index" json:"user_id"`
	ClientID  uint             `gorm:"not null;index" json:"client_id"`
	Amount    decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"amount"`
	DueDate   time.Time        `json:"due_date"`
	Status    CollectionStatus `gorm:"not null;default:open" json:"status"`
}

func (Collection) TableName() string {
	return "crm_collection"
}

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

type Task struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      string     `gorm:"not null;size:64;index" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `gorm:"not null;default:medium" json:"priority"`
	Status      TaskStatus `gorm:"not null;default:open" json:"status"`

	// 关联的客户或潜在客户，可为空
	ClientID   *uint `gorm:"index" json:"client_id"`
	ProspectID *uint `gorm:"index" json:"prospect_id"`

	CompletedAt *time.Time `json:"completed_at"`
}

func (Task) TableName() string {
	return "crm_task"
}

type ProspectStatus string

const (
	ProspectStatusNew         ProspectStatus = "new"
	ProspectStatusContacted   ProspectStatus = "contacted"
	ProspectStatusQualified   ProspectStatus = "qualified"
	ProspectStatusNegotiating ProspectStatus = "negotiating"
	ProspectStatusWon         ProspectStatus = "won"
	ProspectStatusLost        ProspectStatus = "lost"
)

var ProspectStatuses = []ProspectStatus{
	ProspectStatusNew,
	ProspectStatusContacted,
	ProspectStatusQualified,
	ProspectStatusNegotiating,
	ProspectStatusWon,
	ProspectStatusLost,
}

// Prospect 销售线索
type Prospect struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	UserID         string          `gorm:"not null;size:64;index" json:"user_id"`
	Name           string          `gorm:"not null" json:"name"`
	Company        string          `json:"company"`
	City           string          `gorm:"index" json:"city"`
	Status         ProspectStatus  `gorm:"not null;default:new" json:"status"`
	EstimatedValue decimal.Decimal `gorm:"type:decimal(14,2)" json:"estimated_value"`
	Notes          string          `gorm:"type:text" json:"notes"`
}

func (Prospect) TableName() string {
	return "crm_prospect"
}
