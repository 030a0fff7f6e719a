package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status custom type for our enum
type Status int

// Enum values for Status
const (
	Pending    Status = 0
	Processing Status = 1
	Completed  Status = 2
	Failed     Status = 3
)

type Task struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Query  string `gorm:"not null;default:''"`
	Title  string `gorm:"not null;default:''"`
	Artist string `gorm:"not null;default:''"`

	VideoID string `gorm:"not null;default:''"`
	Workdir string `gorm:"not null;default:''"`

	Status Status `gorm:"index;not null;default:0"`
	Error  string `gorm:"not null;default:''"`
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var v Task
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Task %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetTask(ctx context.Context, v *Task) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Task %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.Delete(&Task{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete Task %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Task, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Task{}

	q := s.db.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	// Order by
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Tasks: %w", err)
	}
	return vs, nil
}

// NextTask returns the oldest pending task.
func (s *Store) NextTask(ctx context.Context, filter ...Filter) (*Task, error) {
	var v Task

	q := s.db.Where("status = ?", Pending)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	q = q.Order("created_at asc")
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get next Task: %w", err)
	}
	return &v, nil
}

// ResetProcessingTasks moves tasks stuck in processing back to pending.
// It runs on startup so tasks interrupted by a crash are retried.
func (s *Store) ResetProcessingTasks(ctx context.Context) (int, error) {
	res := s.db.Model(&Task{}).
		Where("status = ?", Processing).
		Update("status", Pending)
	if res.Error != nil {
		return 0, fmt.Errorf("storage: failed to reset processing tasks: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
