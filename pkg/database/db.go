package database

import (
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SchedulingRun represents the scheduling_runs table. One row per invocation
// of the orchestrator; terminal status is written exactly once.
type SchedulingRun struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	CompanyID    string         `gorm:"index;not null" json:"company_id"`
	DepartmentID string         `json:"department_id,omitempty"`
	StartDate    time.Time      `gorm:"not null" json:"start_date"`
	EndDate      time.Time      `gorm:"not null" json:"end_date"`
	Goal         string         `gorm:"not null" json:"optimization_goal"`
	Status       string         `gorm:"index;not null;default:pending" json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	AIModelUsed  string         `json:"ai_model_used,omitempty"`
	Summary      datatypes.JSON `json:"summary,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AssignmentRecommendation represents the assignment_recommendations table.
// Rows are owned by a run and immutable after insert.
type AssignmentRecommendation struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	ScheduleRunID   string         `gorm:"uniqueIndex:idx_run_emp_shift_date;not null" json:"schedule_run_id"`
	Run             *SchedulingRun `gorm:"foreignKey:ScheduleRunID;constraint:OnDelete:CASCADE" json:"-"`
	EmployeeID      string         `gorm:"uniqueIndex:idx_run_emp_shift_date;not null" json:"employee_id"`
	ShiftID         string         `gorm:"uniqueIndex:idx_run_emp_shift_date;not null" json:"shift_id"`
	RecommendedDate string         `gorm:"uniqueIndex:idx_run_emp_shift_date;not null" json:"recommended_date"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	ConfidenceScore float64        `json:"confidence_score"`
	Reasoning       string         `json:"reasoning"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Employee represents the employees table
type Employee struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	CompanyID    string     `gorm:"index;not null" json:"company_id"`
	DepartmentID string     `gorm:"index" json:"department_id,omitempty"`
	DisplayName  string     `json:"display_name"`
	ExternalID   string     `json:"external_id,omitempty"`
	HireDate     *time.Time `json:"hire_date,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
}

// ShiftTemplate represents the shift_templates table
type ShiftTemplate struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	CompanyID    string  `gorm:"index;not null" json:"company_id"`
	Name         string  `json:"name"`
	Code         string  `json:"code,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	MinimumHours float64 `json:"minimum_hours"`
	IsOvernight  bool    `json:"is_overnight"`
	IsActive     bool    `gorm:"default:true" json:"is_active"`
}

// ShiftAssignment represents the shift_assignments table (standing rosters)
type ShiftAssignment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CompanyID     string     `gorm:"index;not null" json:"company_id"`
	EmployeeID    string     `gorm:"index;not null" json:"employee_id"`
	ShiftID       string     `gorm:"index;not null" json:"shift_id"`
	EffectiveDate time.Time  `json:"effective_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// ShiftPreference represents the shift_preferences table. Payload keeps the
// source record verbatim for inference-backed optimizers.
type ShiftPreference struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CompanyID  string         `gorm:"index;not null" json:"company_id"`
	EmployeeID string         `gorm:"index;not null" json:"employee_id"`
	ShiftID    string         `json:"shift_id,omitempty"`
	DayOfWeek  *int           `json:"day_of_week,omitempty"`
	Weight     float64        `json:"weight"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
}

// SchedulingConstraint represents the scheduling_constraints table
type SchedulingConstraint struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	CompanyID        string  `gorm:"index;not null" json:"company_id"`
	RuleType         string  `json:"rule_type"`
	IsHardConstraint bool    `json:"is_hard_constraint"`
	EmployeeID       string  `json:"employee_id,omitempty"`
	ShiftID          string  `json:"shift_id,omitempty"`
	DayOfWeek        *int    `json:"day_of_week,omitempty"`
	LimitHours       float64 `json:"limit_hours,omitempty"`
	Description      string  `json:"description,omitempty"`
	IsActive         bool    `gorm:"default:true" json:"is_active"`
}

// DemandForecast represents the demand_forecasts table
type DemandForecast struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CompanyID         string    `gorm:"index;not null" json:"company_id"`
	Date              time.Time `gorm:"index" json:"date"`
	ShiftID           string    `json:"shift_id,omitempty"`
	RequiredHeadcount int       `json:"required_headcount"`
}

// FatigueRule represents the fatigue_rules table
type FatigueRule struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	CompanyID          string  `gorm:"index;not null" json:"company_id"`
	MaxConsecutiveDays int     `json:"max_consecutive_days,omitempty"`
	MinRestHours       float64 `json:"min_rest_hours,omitempty"`
	MaxWeeklyHours     float64 `json:"max_weekly_hours,omitempty"`
	IsActive           bool    `gorm:"default:true" json:"is_active"`
}

// APIKey represents the api_keys table. Keys are scoped to a company.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	CompanyID  string     `gorm:"index;not null" json:"company_id"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	KeyID           uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date            string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount    int    `gorm:"default:0" json:"request_count"`
	RunCount        int    `gorm:"default:0" json:"run_count"`
	Recommendations int    `gorm:"default:0" json:"recommendations"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "scheduler.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}

// Migrate runs gorm auto-migration for every table this service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SchedulingRun{},
		&AssignmentRecommendation{},
		&Employee{},
		&ShiftTemplate{},
		&ShiftAssignment{},
		&ShiftPreference{},
		&SchedulingConstraint{},
		&DemandForecast{},
		&FatigueRule{},
		&APIKey{},
		&APIUsage{},
		&MasterUser{},
	)
}
