package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/changeboard-api/internal/models"
	"github.com/noah-isme/changeboard-api/internal/service"
	appErrors "github.com/noah-isme/changeboard-api/pkg/errors"
	"github.com/noah-isme/changeboard-api/pkg/response"
)

type changesBuilderStub struct {
	report *models.GroupedReport
	err    error
}

func (s *changesBuilderStub) Build(context.Context) (*models.GroupedReport, error) {
	return s.report, s.err
}

type exporterStub struct {
	file   *service.ExportFile
	err    error
	format models.ReportFormat
	calls  int
}

func (s *exporterStub) Render(_ context.Context, format models.ReportFormat) (*service.ExportFile, error) {
	s.calls++
	s.format = format
	return s.file, s.err
}

func newGinContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func TestChangesHandlerReturnsReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	added := models.VerbAdded
	h := NewChangesHandler(&changesBuilderStub{report: &models.GroupedReport{
		AsOf:  "2024-06-10T10:00:00.000Z",
		Count: 2,
		Grouped: map[string][]models.ClassifiedChange{
			"Acme": {
				{Show: "Acme", OrderID: 1, Item: "mixer", Verb: &added},
				{Show: "Acme", OrderID: 1, Item: "Swapped cables"},
			},
		},
		Filters: models.ReportFilters{EventDaysBack: 45, PrepFrom: "2024-05-11T00:00:00.000Z", PrepTo: "2024-08-09T00:00:00.000Z"},
	}}, nil)

	c, w := newGinContext(http.MethodGet, "/api/changes")
	h.Changes(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body struct {
		AsOf    string                              `json:"asOf"`
		Count   int                                 `json:"count"`
		Grouped map[string][]map[string]interface{} `json:"grouped"`
		Filters map[string]interface{}              `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "added", body.Grouped["Acme"][0]["verb"])
	assert.Nil(t, body.Grouped["Acme"][1]["verb"])
	assert.Contains(t, body.Grouped["Acme"][1], "verb")
	assert.Equal(t, float64(45), body.Filters["eventDaysBack"])
	assert.Equal(t, "2024-05-11T00:00:00.000Z", body.Filters["prepFrom"])
}

func TestChangesHandlerMirrorsUpstreamStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		err  error
		want int
	}{
		"unauthorized":    {appErrors.NewUpstreamStatusError(2, http.StatusUnauthorized, []byte("token expired")), http.StatusUnauthorized},
		"bad gateway":     {appErrors.NewUpstreamStatusError(1, http.StatusBadGateway, nil), http.StatusBadGateway},
		"transport":       {appErrors.NewUpstreamTransportError(1, context.DeadlineExceeded), http.StatusInternalServerError},
		"unexpected":      {assert.AnError, http.StatusInternalServerError},
		"redirect as 5xx": {appErrors.NewUpstreamStatusError(1, http.StatusFound, nil), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewChangesHandler(&changesBuilderStub{err: tc.err}, nil)
			c, w := newGinContext(http.MethodGet, "/api/changes")
			h.Changes(c)

			require.Equal(t, tc.want, w.Code)
			var body response.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Code)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestChangesHandlerUpstreamErrorCarriesBodyExcerpt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChangesHandler(&changesBuilderStub{err: appErrors.NewUpstreamStatusError(1, http.StatusForbidden, []byte("no access to office 3"))}, nil)
	c, w := newGinContext(http.MethodGet, "/api/changes")
	h.Changes(c)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UPSTREAM_ERROR", body.Code)
	assert.Contains(t, body.Error, "403")
	assert.Contains(t, body.Error, "no access to office 3")
}

func TestChangesHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterStub{file: &service.ExportFile{
		Filename:    "inventory-changes_20240610_100000.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.3"),
	}}
	h := NewChangesHandler(nil, exporter)

	c, w := newGinContext(http.MethodGet, "/api/changes/export?format=PDF")
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportFormatPDF, exporter.format)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="inventory-changes_20240610_100000.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestChangesHandlerExportDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterStub{file: &service.ExportFile{Filename: "x.csv", ContentType: "text/csv; charset=utf-8"}}
	c, w := newGinContext(http.MethodGet, "/api/changes/export")
	NewChangesHandler(nil, exporter).Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportFormatCSV, exporter.format)
}

func TestChangesHandlerExportRejectsUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterStub{}
	c, w := newGinContext(http.MethodGet, "/api/changes/export?format=xlsx")
	NewChangesHandler(nil, exporter).Export(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, exporter.calls)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrValidation.Code, body.Code)
}
