package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{total: 0, perPage: 10, want: 1},
		{total: 1, perPage: 10, want: 1},
		{total: 10, perPage: 10, want: 1},
		{total: 11, perPage: 10, want: 2},
		{total: 100, perPage: 1, want: 100},
		{total: 5, perPage: 0, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.perPage), "total=%d perPage=%d", tt.total, tt.perPage)
	}
}

func TestNewPage_EmptyItems(t *testing.T) {
	p := NewPage[Ticket](nil, PageRequest{Page: 3, PerPage: 20}, 0)

	assert.NotNil(t, p.Items)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 1, p.TotalPages)
}

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PerPage: 50}.Offset())
	assert.Equal(t, 100, PageRequest{Page: 3, PerPage: 50}.Offset())
}
