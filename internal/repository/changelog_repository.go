package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/changeboard-api/internal/models"
	appErrors "github.com/noah-isme/changeboard-api/pkg/errors"
)

// filterItemID is the sentinel id the report API expects on ad-hoc filters.
const filterItemID = -2147483648

// Report API filter conditions.
const (
	conditionEquals  = 0
	conditionBetween = 2
	conditionAfter   = 4
)

// changeTypeInventory selects inventory changes in the _ChangeType column.
const changeTypeInventory = "2"

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 4 << 10

var displayedProperties = []string{
	"OrderId", "JobType", "BeginDate1", "BeginDate3_5", "ChangeBy", "EventDate",
	"Note", "ClientName", "JobTotal", "BalanceDue",
}

// EventFilterMode picks how the event date criterion is sent upstream.
type EventFilterMode string

const (
	EventBetween EventFilterMode = "between"
	EventAfter   EventFilterMode = "after"
)

// ChangeLogFilters narrows the upstream query beyond the date windows.
type ChangeLogFilters struct {
	EventMode  EventFilterMode
	OfficeIDs  []string
	JobTypeIDs []string
}

// ChangeLogConfig describes the upstream endpoint.
type ChangeLogConfig struct {
	BaseURL    string
	ReportPath string
	PageSize   int
	Timeout    time.Duration
	PageRate   float64
	AuthBearer string
	AuthCookie string
}

// PageObserver receives timing for every page request.
type PageObserver interface {
	ObserveUpstreamPage(status int, duration time.Duration)
}

// FilterItem is one criterion of the report query.
type FilterItem struct {
	ID        int    `json:"id"`
	FieldID   string `json:"fieldId"`
	Condition int    `json:"condition"`
	Criteria1 string `json:"criteria1"`
	Criteria2 string `json:"criteria2,omitempty"`
	Negate    *bool  `json:"negate,omitempty"`
}

// ListRequest is the POST body of the report list endpoint.
type ListRequest struct {
	PageNumber          int          `json:"pageNumber"`
	SortField           string       `json:"sortField"`
	SortAscending       bool         `json:"sortAscending"`
	GroupSortField      []string     `json:"groupSortField"`
	GroupSortAscending  bool         `json:"groupSortAscending"`
	FilterItems         []FilterItem `json:"filterItems"`
	DisplayedProperties []string     `json:"displayedProperties"`
	RecordCountPerPage  int          `json:"recordCountPerPage"`
}

// ListResponse is a single page of report rows.
type ListResponse struct {
	TotalPageCount int                      `json:"totalPageCount"`
	Items          []models.RawChangeRecord `json:"items"`
}

// ChangeLogRepository reads the change log report from the upstream API.
type ChangeLogRepository struct {
	client   *http.Client
	cfg      ChangeLogConfig
	limiter  *rate.Limiter
	observer PageObserver
	logger   *zap.Logger
}

// NewChangeLogRepository constructs a repository. A nil client gets one bounded by cfg.Timeout.
func NewChangeLogRepository(client *http.Client, cfg ChangeLogConfig, observer PageObserver, logger *zap.Logger) *ChangeLogRepository {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.PageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PageRate), 1)
	}
	return &ChangeLogRepository{client: client, cfg: cfg, limiter: limiter, observer: observer, logger: logger}
}

// FetchAll requests every page of the report in order and concatenates the rows. Any
// failed page aborts the whole fetch.
func (r *ChangeLogRepository) FetchAll(ctx context.Context, windows models.ReportWindows, filters ChangeLogFilters) ([]models.RawChangeRecord, error) {
	items := BuildFilterItems(windows, filters)

	var all []models.RawChangeRecord
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		resp, err := r.fetchPage(ctx, page, items)
		if err != nil {
			return nil, err
		}
		if page == 1 && resp.TotalPageCount > 1 {
			totalPages = resp.TotalPageCount
		}
		all = append(all, resp.Items...)
	}

	r.logger.Debug("change log fetched", zap.Int("pages", totalPages), zap.Int("rows", len(all)))
	return all, nil
}

func (r *ChangeLogRepository) fetchPage(ctx context.Context, page int, items []FilterItem) (*ListResponse, error) {
	if r.limiter != nil && page > 1 {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, appErrors.NewUpstreamTransportError(page, err)
		}
	}

	body, err := json.Marshal(ListRequest{
		PageNumber:          page,
		SortField:           "",
		SortAscending:       true,
		GroupSortField:      []string{},
		GroupSortAscending:  true,
		FilterItems:         items,
		DisplayedProperties: displayedProperties,
		RecordCountPerPage:  r.cfg.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("encode page %d request: %w", page, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+r.cfg.ReportPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build page %d request: %w", page, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.cfg.AuthBearer != "" {
		req.Header.Set("Authorization", r.cfg.AuthBearer)
	}
	if r.cfg.AuthCookie != "" {
		req.Header.Set("Cookie", r.cfg.AuthCookie)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.observe(0, time.Since(start))
		r.logger.Warn("change log page request failed", zap.Int("page", page), zap.Error(err))
		return nil, appErrors.NewUpstreamTransportError(page, err)
	}
	defer resp.Body.Close()
	r.observe(resp.StatusCode, time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		upErr := appErrors.NewUpstreamStatusError(page, resp.StatusCode, raw)
		r.logger.Warn("change log page rejected",
			zap.Int("page", page),
			zap.Int("status", resp.StatusCode),
			zap.String("body", upErr.Body),
		)
		return nil, upErr
	}

	var out ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, appErrors.NewUpstreamTransportError(page, fmt.Errorf("decode page: %w", err))
	}
	return &out, nil
}

func (r *ChangeLogRepository) observe(status int, d time.Duration) {
	if r.observer != nil {
		r.observer.ObserveUpstreamPage(status, d)
	}
}

// BuildFilterItems assembles the report criteria for one run. Allow-lists are sent
// comma-joined and omitted entirely when empty.
func BuildFilterItems(windows models.ReportWindows, filters ChangeLogFilters) []FilterItem {
	negate := false
	items := make([]FilterItem, 0, 5)

	if filters.EventMode == EventAfter {
		items = append(items, FilterItem{
			ID:        filterItemID,
			FieldID:   "event_date",
			Condition: conditionAfter,
			Criteria1: models.FormatUTC(windows.Event.From),
			Negate:    &negate,
		})
	} else {
		items = append(items, FilterItem{
			ID:        filterItemID,
			FieldID:   "event_date",
			Condition: conditionBetween,
			Criteria1: models.FormatUTC(windows.Event.From),
			Criteria2: models.FormatUTC(windows.Event.To),
			Negate:    &negate,
		})
	}

	items = append(items, FilterItem{ID: filterItemID, FieldID: "_ChangeType", Condition: conditionEquals, Criteria1: changeTypeInventory})

	if len(filters.OfficeIDs) > 0 {
		items = append(items, FilterItem{ID: filterItemID, FieldID: "office_id", Condition: conditionEquals, Criteria1: strings.Join(filters.OfficeIDs, ",")})
	}
	if len(filters.JobTypeIDs) > 0 {
		items = append(items, FilterItem{ID: filterItemID, FieldID: "job_type_id", Condition: conditionEquals, Criteria1: strings.Join(filters.JobTypeIDs, ",")})
	}

	items = append(items, FilterItem{
		ID:        filterItemID,
		FieldID:   "begin_date1",
		Condition: conditionBetween,
		Criteria1: models.FormatUTC(windows.Prep.From),
		Criteria2: models.FormatUTC(windows.Prep.To),
		Negate:    &negate,
	})
	return items
}
