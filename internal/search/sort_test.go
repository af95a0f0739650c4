package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSort(t *testing.T) {
	cases := []struct {
		key  SortKey
		want []SortField
	}{
		{SortRelevance, []SortField{{"score", true}, {"academic_year", false}, {"term_name", false}}},
		{SortTitle, []SortField{{"title_sortable", false}}},
		{SortSchool, []SortField{{"academic_group", false}}},
		{SortSemester, []SortField{{"academic_year", false}, {"term_name", false}}},
		{SortDepartment, []SortField{{"subject", false}}},
		{SortCourseID, []SortField{{"subject", false}, {"catalog_number", false}}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveSort(tc.key), string(tc.key))
	}
}

func TestResolveSortUnknownFallsBackToRelevance(t *testing.T) {
	assert.Equal(t, ResolveSort(SortRelevance), ResolveSort(SortKey("POPULARITY")))
	assert.Equal(t, ResolveSort(SortRelevance), ResolveSort(SortKey("")))
}
