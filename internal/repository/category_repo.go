package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"quizmaster-backend/internal/models"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

func (r *CategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	query := `SELECT c.id, c.name, c.description, COUNT(q.id)
		FROM categories c LEFT JOIN questions q ON q.category_id = c.id
		GROUP BY c.id ORDER BY c.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.QuestionCount); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int) (*models.Category, error) {
	c := &models.Category{}
	err := r.pool.QueryRow(ctx, "SELECT id, name, description FROM categories WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Ensure returns the id of the named category, creating it if needed.
func (r *CategoryRepo) Ensure(ctx context.Context, name string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name,
	).Scan(&id)
	return id, err
}
