//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"collector/internal/model"
	"collector/internal/repository"
	"collector/pkg/logger"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	exportDateLayout = "2006-01-02 15:04:05"
)

// SubmissionQuery filters the admin listing. Page is 1-based.
type SubmissionQuery struct {
	Range    model.SubmissionRange
	Search   string
	Page     int
	PageSize int
}

type SubmissionPage struct {
	Items      []model.Submission
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmissionAdminService interface {
	List(ctx context.Context, query SubmissionQuery) (*SubmissionPage, error)
	Get(ctx context.Context, id int64) (*model.Submission, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, query SubmissionQuery, format string) (*ExportFile, error)
}

type submissionAdminService struct {
	repo     repository.SubmissionRepository
	location *time.Location
	now      func() time.Time
}

func NewSubmissionAdminService(repo repository.SubmissionRepository, location *time.Location) SubmissionAdminService {
	if location == nil {
		location = time.UTC
	}
	return &submissionAdminService{repo: repo, location: location, now: time.Now}
}

// RangeStart returns the lower bound for r. The zero time means unbounded.
func RangeStart(r model.SubmissionRange, now time.Time, loc *time.Location) (time.Time, error) {
	local := now.In(loc)
	switch r {
	case "", model.RangeAll:
		return time.Time{}, nil
	case model.RangeToday:
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), nil
	case model.RangeWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case model.RangeMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc), nil
	default:
		return time.Time{}, ErrInvalid
	}
}

func (s *submissionAdminService) filter(query SubmissionQuery) (model.SubmissionFilter, error) {
	since, err := RangeStart(query.Range, s.now(), s.location)
	if err != nil {
		return model.SubmissionFilter{}, err
	}
	return model.SubmissionFilter{Since: since, Search: strings.TrimSpace(query.Search)}, nil
}

func (s *submissionAdminService) List(ctx context.Context, query SubmissionQuery) (*SubmissionPage, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if items == nil {
		items = []model.Submission{}
	}

	return &SubmissionPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *submissionAdminService) Get(ctx context.Context, id int64) (*model.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *submissionAdminService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete submission: %w", err)
	}
	logger.Info("submission deleted", "module", "service", "action", "delete", "resource", "submission", "result", "ok", "submission_id", id)
	return nil
}

type submissionExport struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	Locale    string `json:"locale,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func (s *submissionAdminService) Export(ctx context.Context, query SubmissionQuery, format string) (*ExportFile, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	switch strings.ToLower(format) {
	case "", "csv":
		return &ExportFile{
			Filename:    "emails.csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        SubmissionsCSV(items, s.location),
		}, nil
	case "json":
		out := make([]submissionExport, 0, len(items))
		for _, it := range items {
			out = append(out, submissionExport{
				ID:        formatID(it.ID),
				Email:     it.Email,
				Message:   it.Message,
				IPAddress: it.IPAddress,
				UserAgent: it.UserAgent,
				Locale:    it.Locale,
				CreatedAt: it.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: "emails.json", ContentType: "application/json", Data: data}, nil
	default:
		return nil, ErrInvalid
	}
}

// SubmissionsCSV renders items with every field quoted and "N/A" for blanks.
func SubmissionsCSV(items []model.Submission, loc *time.Location) []byte {
	var buf bytes.Buffer
	buf.WriteString("Email,Message,Date,IP Address,User Agent")
	for _, it := range items {
		date := "N/A"
		if !it.CreatedAt.IsZero() {
			date = it.CreatedAt.In(loc).Format(exportDateLayout)
		}
		buf.WriteByte('\n')
		buf.WriteString(strings.Join([]string{
			csvField(it.Email),
			csvField(it.Message),
			csvField(date),
			csvField(orNA(it.IPAddress)),
			csvField(orNA(it.UserAgent)),
		}, ","))
	}
	return buf.Bytes()
}

func csvField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
