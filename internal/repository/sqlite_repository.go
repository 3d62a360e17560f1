package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
)

type ticketRecord struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	IssueTitle         string `gorm:"not null"`
	Description        string
	CategoryID         int64     `gorm:"not null;index"`
	AssignedEmployeeID *int64    `gorm:"index"`
	Status             string    `gorm:"not null;index"`
	DateCreated        time.Time `gorm:"not null"`
	DateResolved       *time.Time
	ResolutionNotes    string
}

func (ticketRecord) TableName() string { return "tickets" }

type categoryRecord struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (categoryRecord) TableName() string { return "categories" }

type employeeRecord struct {
	ID       int64  `gorm:"primaryKey"`
	FullName string `gorm:"not null"`
}

func (employeeRecord) TableName() string { return "employees" }

// AutoMigrateSQLite creates the tables and seeds the default categories and
// the supplied employees. Existing rows are left untouched.
func AutoMigrateSQLite(db *gorm.DB, employees []domain.Employee) error {
	if err := db.AutoMigrate(&categoryRecord{}, &employeeRecord{}, &ticketRecord{}); err != nil {
		return err
	}
	categories := make([]categoryRecord, 0, len(domain.DefaultCategories))
	for _, c := range domain.DefaultCategories {
		categories = append(categories, categoryRecord{ID: c.ID, Name: c.Name})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
		return err
	}
	if len(employees) == 0 {
		return nil
	}
	records := make([]employeeRecord, 0, len(employees))
	for _, e := range employees {
		records = append(records, employeeRecord{ID: e.ID, FullName: e.FullName})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

type sqliteTicketRepository struct {
	db *gorm.DB
}

// NewSQLiteTicketRepository stores tickets through gorm.
func NewSQLiteTicketRepository(db *gorm.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	rec := toTicketRecord(ticket)
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	ticket.ID = rec.ID
	return nil
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var rec ticketRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ticket := rec.toDomain()
	return &ticket, nil
}

func (r *sqliteTicketRepository) List(ctx context.Context, criteria filter.Criteria) ([]domain.Ticket, error) {
	criteria = criteria.Normalize()
	query := r.db.WithContext(ctx).Model(&ticketRecord{})
	if criteria.Status != nil {
		query = query.Where("status = ?", string(*criteria.Status))
	}
	if criteria.CategoryID != nil {
		query = query.Where("category_id = ?", *criteria.CategoryID)
	}
	if criteria.EmployeeID != nil {
		query = query.Where("assigned_employee_id = ?", *criteria.EmployeeID)
	}

	var records []ticketRecord
	if err := query.Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.toDomain())
	}
	return result, nil
}

func (r *sqliteTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	res := r.db.WithContext(ctx).Model(&ticketRecord{}).Where("id = ?", ticket.ID).Updates(map[string]any{
		"issue_title":          ticket.IssueTitle,
		"description":          ticket.Description,
		"category_id":          ticket.CategoryID,
		"assigned_employee_id": ticket.AssignedEmployeeID,
		"status":               string(ticket.Status),
		"date_resolved":        ticket.DateResolved,
		"resolution_notes":     ticket.ResolutionNotes,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteTicketRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&ticketRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toTicketRecord(ticket *domain.Ticket) ticketRecord {
	return ticketRecord{
		ID:                 ticket.ID,
		IssueTitle:         ticket.IssueTitle,
		Description:        ticket.Description,
		CategoryID:         ticket.CategoryID,
		AssignedEmployeeID: ticket.AssignedEmployeeID,
		Status:             string(ticket.Status),
		DateCreated:        ticket.DateCreated,
		DateResolved:       ticket.DateResolved,
		ResolutionNotes:    ticket.ResolutionNotes,
	}
}

func (rec ticketRecord) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:                 rec.ID,
		IssueTitle:         rec.IssueTitle,
		Description:        rec.Description,
		CategoryID:         rec.CategoryID,
		AssignedEmployeeID: rec.AssignedEmployeeID,
		Status:             domain.TicketStatus(rec.Status),
		DateCreated:        rec.DateCreated,
		DateResolved:       rec.DateResolved,
		ResolutionNotes:    rec.ResolutionNotes,
	}
}

type sqliteCategoryRepository struct {
	db *gorm.DB
}

// NewSQLiteCategoryRepository reads categories through gorm.
func NewSQLiteCategoryRepository(db *gorm.DB) CategoryRepository {
	return &sqliteCategoryRepository{db: db}
}

func (r *sqliteCategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	var records []categoryRecord
	if err := r.db.WithContext(ctx).Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Category, 0, len(records))
	for _, rec := range records {
		result = append(result, domain.Category{ID: rec.ID, Name: rec.Name})
	}
	return result, nil
}

type sqliteEmployeeRepository struct {
	db *gorm.DB
}

// NewSQLiteEmployeeRepository reads employees through gorm.
func NewSQLiteEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &sqliteEmployeeRepository{db: db}
}

func (r *sqliteEmployeeRepository) ListAll(ctx context.Context) ([]domain.Employee, error) {
	var records []employeeRecord
	if err := r.db.WithContext(ctx).Order("full_name asc, id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Employee, 0, len(records))
	for _, rec := range records {
		result = append(result, domain.Employee{ID: rec.ID, FullName: rec.FullName})
	}
	return result, nil
}
