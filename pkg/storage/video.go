package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Video struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TaskID *string
	Task   *Task `gorm:"foreignKey:TaskID"`

	Title     string  `gorm:"not null;default:''"`
	Artist    string  `gorm:"not null;default:''"`
	YoutubeID string  `gorm:"not null;default:''"`
	Duration  float64 `gorm:"not null;default:0"`

	Path      string `gorm:"not null;default:''"`
	Thumbnail string `gorm:"not null;default:''"`
	Remote    string `gorm:"not null;default:''"`
}

func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	q := s.db.Preload("Task")

	var v Video
	if err := q.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Video %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetVideo(ctx context.Context, v *Video) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Video %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteVideo(ctx context.Context, id string) error {
	if err := s.db.Delete(&Video{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete Video %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListVideos(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Video, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Video{}

	q := s.db.Preload("Task")
	q = q.Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	// Order by
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Videos: %w", err)
	}
	return vs, nil
}
