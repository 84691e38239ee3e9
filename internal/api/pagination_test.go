package api

import (
	"net/http"
	"net/url"
	"testing"
)

func requestWithQuery(t *testing.T, rawQuery string) *http.Request {
	t.Helper()
	u := &url.URL{RawQuery: rawQuery}
	return &http.Request{URL: u}
}

func TestPaginationParamsDefaults(t *testing.T) {
	r := requestWithQuery(t, "")
	limit, offset := paginationParams(r, 50)
	if limit != 50 || offset != 0 {
		t.Errorf("paginationParams() = (%d, %d), want (50, 0)", limit, offset)
	}
}

func TestPaginationParamsReadsQuery(t *testing.T) {
	r := requestWithQuery(t, "limit=25&offset=100")
	limit, offset := paginationParams(r, 50)
	if limit != 25 || offset != 100 {
		t.Errorf("paginationParams() = (%d, %d), want (25, 100)", limit, offset)
	}
}

func TestPaginationParamsClampsLimitCeiling(t *testing.T) {
	r := requestWithQuery(t, "limit=99999")
	limit, _ := paginationParams(r, 50)
	if limit != 5000 {
		t.Errorf("expected limit to be clamped to 5000, got %d", limit)
	}
}

func TestPaginationParamsIgnoresInvalidValues(t *testing.T) {
	r := requestWithQuery(t, "limit=abc&offset=-5")
	limit, offset := paginationParams(r, 50)
	if limit != 50 || offset != 0 {
		t.Errorf("paginationParams() = (%d, %d), want defaults (50, 0)", limit, offset)
	}
}
