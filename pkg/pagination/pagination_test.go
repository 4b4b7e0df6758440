// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/todos/pkg/pagination"
)

/*
TestParams_Offset maps 1-indexed pages onto row offsets.
*/
func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, pagination.Params{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 40, pagination.Params{Page: 5, Limit: 10}.Offset())
}

/*
TestNewMeta rounds total pages up.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(1, 10, 15)
	assert.Equal(t, 2, meta.TotalPages)

	meta = pagination.NewMeta(1, 10, 0)
	assert.Equal(t, 0, meta.TotalPages)
}

/*
TestParsePage distinguishes malformed input from out-of-range values.
*/
func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		page int
		ok   bool
	}{
		{"", 1, true},
		{"3", 3, true},
		{" 2 ", 2, true},
		{"0", 0, true},
		{"-1", -1, true},
		{"abc", 0, false},
		{"1.5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			page, ok := pagination.ParsePage(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.page, page)
		})
	}
}
