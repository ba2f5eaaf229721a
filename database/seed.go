package database

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the admin account if the email is not registered yet.
func SeedAdmin(ctx context.Context, db *sqlx.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO users (email, name, password_hash, role)
		VALUES (?, ?, ?, 'ADMIN')
		ON CONFLICT (email) DO NOTHING
	`), strings.ToLower(email), "Administrator", string(hash))

	return errors.Wrap(err, "seed admin")
}

var (
	demoCategories = []string{"Electronics", "Home & Kitchen", "Books", "Sports", "Toys"}

	taskActions = []string{
		"Fix", "Implement", "Design", "Review", "Deploy",
		"Update", "Test", "Document", "Optimize", "Refactor",
		"Prepare", "Research", "Configure", "Validate",
	}

	taskSubjects = []string{
		"login module", "API endpoint", "dashboard UI", "checkout flow",
		"payment gateway", "email notifications", "database migration",
		"staging build", "user profile page", "landing page",
		"data export feature", "search functionality", "unit tests",
		"performance optimization", "cron job scheduler",
	}

	taskStatuses   = []string{"pending", "in_progress", "completed"}
	taskPriorities = []string{"low", "medium", "high"}
)

// SeedDemo fills an empty database with demo categories, products and tasks.
func SeedDemo(ctx context.Context, db *sqlx.DB, tasks int) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(1) FROM categories`); err != nil {
		return errors.Wrap(err, "count categories")
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/products/tasks")

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin seed")
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	for i, name := range demoCategories {
		status := 1
		if i == len(demoCategories)-1 {
			status = 0
		}

		var categoryID int64
		err := tx.GetContext(ctx, &categoryID, tx.Rebind(`
			INSERT INTO categories (name, slug, description, status)
			VALUES (?, ?, ?, ?) RETURNING id
		`), name, slug.Make(name), name+" catalog", status)
		if err != nil {
			return errors.Wrapf(err, "seed category %s", name)
		}

		for j := 1; j <= 3; j++ {
			productName := fmt.Sprintf("%s item %d", name, j)
			productStatus := "active"
			if j == 3 {
				productStatus = "inactive"
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO products (category_id, name, slug, description, price, stock, status, is_featured)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`), categoryID, productName, slug.Make(productName), "Demo product",
				fmt.Sprintf("%d.%02d", 5+r.Intn(200), r.Intn(100)), r.Intn(50), productStatus, j == 1); err != nil {
				return errors.Wrapf(err, "seed product %s", productName)
			}
		}
	}

	for i := 0; i < tasks; i++ {
		title := taskActions[r.Intn(len(taskActions))] + " " + taskSubjects[r.Intn(len(taskSubjects))]

		var dueDate interface{}
		if r.Intn(2) == 0 {
			dueDate = now.AddDate(0, 0, r.Intn(60)).Format("2006-01-02")
		}

		createdAt := now.Add(-time.Duration(r.Intn(90*24)) * time.Hour).Format("2006-01-02 15:04:05")

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO tasks (title, description, status, priority, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`), title, "Generated demo task.", taskStatuses[r.Intn(len(taskStatuses))],
			taskPriorities[r.Intn(len(taskPriorities))], dueDate, createdAt); err != nil {
			return errors.Wrap(err, "seed task")
		}
	}

	return errors.Wrap(tx.Commit(), "commit seed")
}
