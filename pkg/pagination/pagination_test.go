// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quangtd/accountd/pkg/pagination"
)

/*
TestFromRequest verifies query parsing and clamping of abusive values.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "?page=3&limit=50", 3, 50},
		{"zero_page", "?page=0", 1, 20},
		{"negative_limit", "?limit=-5", 1, 20},
		{"over_max_limit", "?limit=5000", 1, 20},
		{"garbage", "?page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/"+tt.query, nil)
			params := pagination.FromRequest(request)

			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

/*
TestOffset verifies the SQL offset derivation.
*/
func TestOffset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 20, pagination.Params{Page: 2, Limit: 20}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 20}.Offset())
}

/*
TestNewMeta verifies total-page math, including the partial last page.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 20, 45)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 45, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	empty := pagination.NewMeta(1, 20, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
