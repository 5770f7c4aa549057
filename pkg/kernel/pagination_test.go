package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PaginationOptions
		want PaginationOptions
	}{
		{"zero values", PaginationOptions{}, PaginationOptions{Page: 1, PageSize: DefaultPageSize}},
		{"oversized page", PaginationOptions{Page: 2, PageSize: 500}, PaginationOptions{Page: 2, PageSize: MaxPageSize}},
		{"valid", PaginationOptions{Page: 3, PageSize: 10}, PaginationOptions{Page: 3, PageSize: 10}},
		{"huge page", PaginationOptions{Page: math.MaxInt, PageSize: 10}, PaginationOptions{Page: MaxPage, PageSize: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPaginationOptions_Offset(t *testing.T) {
	assert.Equal(t, 0, PaginationOptions{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, PaginationOptions{Page: 3, PageSize: 10}.Offset())
	assert.Equal(t, (MaxPage-1)*MaxPageSize, PaginationOptions{Page: math.MaxInt, PageSize: math.MaxInt}.Offset())
	assert.Positive(t, PaginationOptions{Page: math.MaxInt / 2, PageSize: MaxPageSize}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, PaginationOptions{Page: 1, PageSize: 2}, 5)
	assert.Equal(t, 3, p.Page.Pages)
	assert.Equal(t, 5, p.Page.Total)
	assert.False(t, p.Empty)

	empty := NewPaginated[int](nil, PaginationOptions{}, 0)
	assert.True(t, empty.Empty)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.Page.Pages)
}

func TestVector_IsZero(t *testing.T) {
	assert.True(t, Vector(nil).IsZero())
	assert.True(t, Vector{0, 0}.IsZero())
	assert.False(t, Vector{0, 0.1}.IsZero())
}
