package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"lesson-shop/internal/config"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

// MySQLDSN builds the driver DSN. clientFoundRows makes RowsAffected report
// matched rows, so an update that writes identical values is not a miss.
func MySQLDSN(cfg config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func NewMySQLStore(cfg config.MySQLConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	db, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established")
	return &MySQLStore{db: db, log: log}, nil
}

// InitTables creates the lessons, orders and order_items tables.
func (s *MySQLStore) InitTables(ctx context.Context) error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating tables if not exist")

	queries := []string{`
    CREATE TABLE IF NOT EXISTS lessons (
        id CHAR(24) PRIMARY KEY,
        subject VARCHAR(255) NOT NULL,
        location VARCHAR(255) NOT NULL,
        price DECIMAL(10,2) NOT NULL,
        spaces INT NOT NULL,
        image VARCHAR(512) NOT NULL,
        available_inventory INT NOT NULL,
        INDEX idx_subject (subject),
        CONSTRAINT chk_spaces CHECK (spaces >= 0)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
    `, `
    CREATE TABLE IF NOT EXISTS orders (
        id CHAR(24) PRIMARY KEY,
        customer_name VARCHAR(255) NOT NULL,
        customer_phone VARCHAR(64) NOT NULL,
        customer_email VARCHAR(255) NOT NULL,
        order_date DATETIME(6) NOT NULL,
        status VARCHAR(32) NOT NULL,
        INDEX idx_order_date (order_date)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
    `, `
    CREATE TABLE IF NOT EXISTS order_items (
        order_id CHAR(24) NOT NULL,
        position INT NOT NULL,
        lesson_id CHAR(24) NOT NULL,
        subject VARCHAR(255) NOT NULL,
        quantity INT NOT NULL,
        PRIMARY KEY (order_id, position),
        INDEX idx_lesson_id (lesson_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
    `}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "Tables ready")
	return nil
}

const lessonColumns = "id, subject, location, price, spaces, image, available_inventory"

func (s *MySQLStore) ListLessons(ctx context.Context) ([]*models.Lesson, error) {
	s.log.LogDatabase("SELECT", "mysql", "Listing lessons")
	return s.queryLessons(ctx, "SELECT "+lessonColumns+" FROM lessons ORDER BY id")
}

func (s *MySQLStore) SearchLessons(ctx context.Context, prefix string) ([]*models.Lesson, error) {
	s.log.LogDatabase("SELECT", "mysql", fmt.Sprintf("Searching lessons with prefix %q", prefix))
	return s.queryLessons(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE LOWER(subject) LIKE ? ESCAPE '\\\\' ORDER BY id",
		likePrefix(prefix))
}

func (s *MySQLStore) queryLessons(ctx context.Context, query string, args ...any) ([]*models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list lessons: %s", err.Error()))
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []*models.Lesson{}
	for rows.Next() {
		l := &models.Lesson{}
		if err := rows.Scan(&l.ID, &l.Subject, &l.Location, &l.Price, &l.Spaces, &l.Image, &l.AvailableInventory); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lessons, nil
}

func (s *MySQLStore) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	l := &models.Lesson{}
	err := s.db.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id).
		Scan(&l.ID, &l.Subject, &l.Location, &l.Price, &l.Spaces, &l.Image, &l.AvailableInventory)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.LogDatabase("NOT_FOUND", "mysql", fmt.Sprintf("Lesson %s not found", id))
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get lesson %s: %s", id, err.Error()))
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

func (s *MySQLStore) SaveLesson(ctx context.Context, lesson *models.Lesson) error {
	id := NewID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO lessons ("+lessonColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, lesson.Subject, lesson.Location, lesson.Price, lesson.Spaces, lesson.Image, lesson.AvailableInventory)
	if err != nil {
		s.log.Error("DATABASE", "Failed to save lesson: "+err.Error())
		return fmt.Errorf("failed to save lesson: %w", err)
	}

	lesson.ID = id
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Lesson %s saved", id))
	return nil
}

func (s *MySQLStore) UpdateLesson(ctx context.Context, id string, update models.LessonUpdate) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	var (
		sets []string
		args []any
	)
	if update.Subject != nil {
		sets, args = append(sets, "subject = ?"), append(args, *update.Subject)
	}
	if update.Location != nil {
		sets, args = append(sets, "location = ?"), append(args, *update.Location)
	}
	if update.Price != nil {
		sets, args = append(sets, "price = ?"), append(args, *update.Price)
	}
	if update.Spaces != nil {
		sets, args = append(sets, "spaces = ?", "available_inventory = ?"), append(args, *update.Spaces, *update.Spaces)
	}
	if update.Image != nil {
		sets, args = append(sets, "image = ?"), append(args, *update.Image)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE lessons SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to update lesson %s: %s", id, err.Error()))
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	return expectOneRow(res)
}

func (s *MySQLStore) DeleteLesson(ctx context.Context, id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = ?", id)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to delete lesson %s: %s", id, err.Error()))
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	return expectOneRow(res)
}

func (s *MySQLStore) ReserveSpaces(ctx context.Context, lessonID string, quantity int) error {
	if !ValidID(lessonID) {
		return ErrInvalidID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE lessons SET spaces = spaces - ?, available_inventory = spaces WHERE id = ? AND spaces >= ?",
		quantity, lessonID, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve spaces: %w", err)
	}
	if err := expectOneRow(res); !errors.Is(err, ErrNotFound) {
		return err
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM lessons WHERE id = ?", lessonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check lesson: %w", err)
	}
	return ErrInsufficientSpaces
}

func (s *MySQLStore) ReleaseSpaces(ctx context.Context, lessonID string, quantity int) error {
	if !ValidID(lessonID) {
		return ErrInvalidID
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE lessons SET spaces = spaces + ?, available_inventory = spaces WHERE id = ?",
		quantity, lessonID)
	if err != nil {
		return fmt.Errorf("failed to release spaces: %w", err)
	}
	return expectOneRow(res)
}

func (s *MySQLStore) SaveOrder(ctx context.Context, order *models.Order) error {
	id := NewID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, customer_name, customer_phone, customer_email, order_date, status) VALUES (?, ?, ?, ?, ?, ?)",
		id, order.Details.Name, order.Details.Phone, order.Details.Email, order.OrderDate, string(order.Status))
	if err != nil {
		s.log.Error("DATABASE", "Failed to save order: "+err.Error())
		return fmt.Errorf("failed to save order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, position, lesson_id, subject, quantity) VALUES (?, ?, ?, ?, ?)",
			id, i, item.LessonID, item.Subject, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to save order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	order.ID = id
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Order %s saved", id))
	return nil
}

func (s *MySQLStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	o := &models.Order{}
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, customer_name, customer_phone, customer_email, order_date, status FROM orders WHERE id = ?", id).
		Scan(&o.ID, &o.Details.Name, &o.Details.Phone, &o.Details.Email, &o.OrderDate, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.Status = models.OrderStatus(status)

	if o.Items, err = s.orderItems(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *MySQLStore) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, customer_name, customer_phone, customer_email, order_date, status FROM orders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o := &models.Order{}
		var status string
		if err := rows.Scan(&o.ID, &o.Details.Name, &o.Details.Phone, &o.Details.Email, &o.OrderDate, &status); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = models.OrderStatus(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, o := range orders {
		if o.Items, err = s.orderItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *MySQLStore) orderItems(ctx context.Context, orderID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lesson_id, subject, quantity FROM order_items WHERE order_id = ? ORDER BY position", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := []models.LineItem{}
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.LessonID, &item.Subject, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *MySQLStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// likePrefix lower-cases the term and escapes LIKE wildcards.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(prefix)) + "%"
}
