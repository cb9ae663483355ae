package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/llm"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// Employee is a row in the structured employee records table.
type Employee struct {
	ID                uint      `gorm:"primaryKey"`
	EmployeeID        string    `gorm:"uniqueIndex;size:32"`
	FullName          string    `gorm:"size:128"`
	Role              string    `gorm:"size:64"`
	Department        string    `gorm:"size:64;index"`
	Email             string    `gorm:"size:128"`
	Location          string    `gorm:"size:64"`
	DateOfJoining     time.Time
	Salary            float64
	LeaveBalance      int
	LeavesTaken       int
	AttendancePct     float64
	PerformanceRating float64
}

// StructuredTool answers questions about employee records by translating
// them to SELECT statements. Only roles whose scope includes the hr
// department (or full access) may touch the table at all.
type StructuredTool struct {
	DB       *gorm.DB
	Provider llm.Provider
}

// NewStructuredTool opens the employee database and ensures the table exists.
func NewStructuredTool(dsn string, provider llm.Provider) (*StructuredTool, error) {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open employee db: %w", err)
	}
	if err := db.AutoMigrate(&Employee{}); err != nil {
		return nil, fmt.Errorf("migrate employee db: %w", err)
	}
	return &StructuredTool{DB: db, Provider: provider}, nil
}

func (t *StructuredTool) Name() string { return NameStructured }

const sqlSchemaInfo = `Table: employees
Columns: id, employee_id, full_name, role, department, email, location,
         date_of_joining, salary, leave_balance, leaves_taken,
         attendance_pct, performance_rating`

const sqlSystemPrompt = `You are a SQL expert. Convert the following natural language question into a valid SQLite SELECT query.

Available Tables and Columns:
%s

Rules:
1. ONLY use tables from the schema above
2. ONLY generate SELECT queries (no INSERT/UPDATE/DELETE)
3. Use proper SQL syntax for SQLite
4. If aggregating, use appropriate GROUP BY
5. Return ONLY the SQL query, no explanations

Question: %s

SQL Query:`

var forbiddenSQL = []string{"insert", "update", "delete", "drop", "alter", "create", "truncate", "pragma", "attach", ";"}

// isSafeQuery admits single SELECT statements only.
func isSafeQuery(sql string) bool {
	lowered := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";")))
	if !strings.HasPrefix(lowered, "select") {
		return false
	}
	for _, word := range forbiddenSQL {
		if strings.Contains(lowered, word) {
			return false
		}
	}
	return true
}

func (t *StructuredTool) Call(ctx context.Context, queries []string, rc rbac.Context) (*Result, error) {
	if !rc.FullAccess && !rc.Allows("hr") {
		return &Result{
			Tool: NameStructured,
			Text: "Employee records are restricted to HR and executive roles.",
		}, nil
	}

	var blocks []string
	for _, q := range queries {
		block, err := t.answer(ctx, q)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return &Result{
		Tool:      NameStructured,
		Text:      strings.Join(blocks, "\n\n"),
		Citations: []schema.Citation{{Type: schema.CitationDatabase, Locator: "employees"}},
	}, nil
}

func (t *StructuredTool) answer(ctx context.Context, question string) (string, error) {
	if t.Provider == nil {
		return "", fmt.Errorf("structured query needs an llm provider")
	}
	prompt := fmt.Sprintf(sqlSystemPrompt, sqlSchemaInfo, question)
	response, err := t.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	sql := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(response, "```sql", ""), "```", ""))
	sql = strings.TrimSuffix(sql, ";")
	if !isSafeQuery(sql) {
		logger.Warnf("structured: blocked unsafe sql %q", sql)
		return "", fmt.Errorf("only SELECT queries are allowed")
	}

	rows, err := t.DB.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return "", fmt.Errorf("execute sql: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	count := 0
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		cells := make([]string, len(cols))
		for i, v := range values {
			cells[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if count == 0 {
		return "No matching records.", nil
	}
	return b.String(), nil
}
