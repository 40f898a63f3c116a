package service

import (
	"math"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func names(students []domain.Student) []string {
	out := make([]string, len(students))
	for i, st := range students {
		out[i] = st.Name
	}
	return out
}

func (s *ServiceSuite) TestSearch_TextQueryMatchesSubstrings() {
	s.seed("John Doe", "USA", domain.StatusExploring, "")
	s.seed("Jon Lee", "USA", domain.StatusExploring, "")
	s.seed("Johnny Five", "USA", domain.StatusExploring, "")

	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{
		TextQuery:    "John",
		SearchFields: []domain.SearchField{domain.FieldName},
		SortField:    domain.FieldName,
		SortOrder:    domain.SortAsc,
	})
	s.Require().NoError(err)

	s.Equal([]string{"John Doe", "Johnny Five"}, names(res.Students))
	s.Equal(3, res.TotalCount)
	s.Equal(2, res.FilteredCount)
	s.True(res.SearchMetadata.TextSearchUsed)
	s.Equal("low", res.SearchMetadata.QueryComplexity)
	s.Equal(domain.ActionSearchStudents, s.lastAudit().Action)
	s.Equal(1, testutil.CollectAndCount(s.metrics.SearchDuration))
}

func (s *ServiceSuite) TestSearch_AllTermsMustMatchOneField() {
	s.seed("Mary Jane Watson", "USA", domain.StatusExploring, "")
	s.seed("Mary Shelley", "GBR", domain.StatusExploring, "")

	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{TextQuery: "mary watson"})
	s.Require().NoError(err)
	s.Equal([]string{"Mary Jane Watson"}, names(res.Students))
}

func (s *ServiceSuite) TestSearch_Pagination() {
	for range 7 {
		s.seed("Same Name", "IND", domain.StatusApplying, "")
	}

	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{Limit: 3, Offset: 3})
	s.Require().NoError(err)

	s.Len(res.Students, 3)
	s.Equal(7, res.FilteredCount)
	s.Equal(domain.PageInfo{
		Limit:       3,
		Offset:      3,
		CurrentPage: 2,
		TotalPages:  3,
		HasNext:     true,
		HasPrevious: true,
	}, res.PageInfo)

	res, err = s.search.Search(s.ctx, s.staff, domain.SearchQuery{Limit: 3, Offset: 30})
	s.Require().NoError(err)
	s.Empty(res.Students)
	s.False(res.PageInfo.HasNext)

	res, err = s.search.Search(s.ctx, s.staff, domain.SearchQuery{Limit: 10, Offset: math.MaxInt - 5})
	s.Require().NoError(err)
	s.Empty(res.Students)
	s.False(res.PageInfo.HasNext)
	s.True(res.PageInfo.HasPrevious)
	s.True(s.lastAudit().Success)
}

func (s *ServiceSuite) TestSearch_DefaultSortNewestFirst() {
	s.seed("First", "IND", domain.StatusApplying, "")
	s.seed("Second", "IND", domain.StatusApplying, "")
	s.seed("Third", "IND", domain.StatusApplying, "")

	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{})
	s.Require().NoError(err)
	s.Equal([]string{"Third", "Second", "First"}, names(res.Students))
}

func (s *ServiceSuite) TestSearch_StableSortAndMissingValuesLast() {
	s.seed("A", "IND", domain.StatusApplying, "12th")
	s.seed("B", "IND", domain.StatusApplying, "")
	s.seed("C", "IND", domain.StatusApplying, "11th")
	s.seed("D", "IND", domain.StatusApplying, "12th")

	for _, order := range []domain.SortDirection{domain.SortAsc, domain.SortDesc} {
		res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{SortField: domain.FieldGrade, SortOrder: order})
		s.Require().NoError(err)
		got := names(res.Students)
		s.Equal("B", got[len(got)-1], "missing grade sorts last for %s", order)
	}

	// Equal keys keep snapshot order (newest first).
	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{SortField: domain.FieldGrade, SortOrder: domain.SortAsc})
	s.Require().NoError(err)
	s.Equal([]string{"C", "D", "A", "B"}, names(res.Students))
}

func (s *ServiceSuite) TestSearch_FiltersCommute() {
	s.seed("A", "IND", domain.StatusApplying, "12th")
	s.seed("B", "USA", domain.StatusApplying, "12th")
	s.seed("C", "IND", domain.StatusExploring, "12th")
	s.seed("D", "IND", domain.StatusApplying, "11th")

	f1 := domain.SearchFilter{Field: domain.FieldCountry, Operator: domain.OpEq, Value: "IND"}
	f2 := domain.SearchFilter{Field: domain.FieldApplicationStatus, Operator: domain.OpIn, Value: []any{"Applying"}}
	f3 := domain.SearchFilter{Field: domain.FieldGrade, Operator: domain.OpNe, Value: "11th"}

	a, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{Filters: []domain.SearchFilter{f1, f2, f3}})
	s.Require().NoError(err)
	b, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{Filters: []domain.SearchFilter{f3, f1, f2}})
	s.Require().NoError(err)

	s.Equal([]string{"A"}, names(a.Students))
	s.Equal(names(a.Students), names(b.Students))
	s.Equal(3, a.SearchMetadata.FiltersApplied)
	s.Equal("medium", a.SearchMetadata.QueryComplexity)
}

func (s *ServiceSuite) TestSearch_DateFilter() {
	s.seed("Old", "IND", domain.StatusApplying, "")
	s.seed("Mid", "IND", domain.StatusApplying, "")
	s.seed("New", "IND", domain.StatusApplying, "")

	start := baseTime.Add(2 * time.Minute)
	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{
		DateFilters: []domain.DateRangeFilter{{Field: domain.FieldCreatedAt, StartDate: &start}},
	})
	s.Require().NoError(err)
	s.Equal([]string{"New", "Mid"}, names(res.Students))
}

func (s *ServiceSuite) TestSearch_StatusesAndCountries() {
	s.seed("A", "IND", domain.StatusApplying, "")
	s.seed("B", "usa", domain.StatusSubmitted, "")
	s.seed("C", "GBR", domain.StatusSubmitted, "")

	res, err := s.search.Search(s.ctx, s.staff, domain.SearchQuery{
		ApplicationStatuses: []domain.ApplicationStatus{"submitted"},
		Countries:           []string{"gbr"},
	})
	s.Require().NoError(err)
	s.Equal([]string{"C"}, names(res.Students))
}

func (s *ServiceSuite) TestSearch_Validation() {
	tests := []struct {
		name string
		q    domain.SearchQuery
	}{
		{"limit too large", domain.SearchQuery{Limit: 1001}},
		{"negative offset", domain.SearchQuery{Offset: -1}},
		{"unknown operator", domain.SearchQuery{Filters: []domain.SearchFilter{{Field: domain.FieldName, Operator: "like", Value: "x"}}}},
		{"in without list", domain.SearchQuery{Filters: []domain.SearchFilter{{Field: domain.FieldName, Operator: domain.OpIn, Value: "x"}}}},
		{"bad date", domain.SearchQuery{Filters: []domain.SearchFilter{{Field: domain.FieldCreatedAt, Operator: domain.OpGt, Value: "yesterday"}}}},
		{"unknown status", domain.SearchQuery{ApplicationStatuses: []domain.ApplicationStatus{"Admitted"}}},
		{"bad sort field", domain.SearchQuery{SortField: "ssn"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.search.Search(s.ctx, s.staff, tt.q)
			s.True(domain.HasCode(err, domain.CodeValidation), "got %v", err)
			s.False(s.lastAudit().Success)
		})
	}
}

func (s *ServiceSuite) TestFacets_OrderedByCount() {
	for range 6 {
		s.seed("Explorer", "IND", domain.StatusExploring, "")
	}
	for range 4 {
		s.seed("Applicant", "USA", domain.StatusApplying, "12th")
	}

	facets, err := s.search.Facets(s.ctx, s.staff, nil)
	s.Require().NoError(err)

	s.Equal(10, facets.TotalCount)
	s.Equal([]domain.FacetCount{
		{Value: "Exploring", Count: 6},
		{Value: "Applying", Count: 4},
	}, facets.ApplicationStatus)
	s.Equal([]domain.FacetCount{{Value: "12th", Count: 4}}, facets.Grade)
}

func (s *ServiceSuite) TestFacets_WithBaseQuery() {
	s.seed("A", "IND", domain.StatusExploring, "")
	s.seed("B", "USA", domain.StatusExploring, "")
	s.seed("C", "USA", domain.StatusApplying, "")

	facets, err := s.search.Facets(s.ctx, s.staff, &domain.SearchQuery{Countries: []string{"USA"}})
	s.Require().NoError(err)
	s.Equal(2, facets.TotalCount)
	s.Equal([]domain.FacetCount{{Value: "USA", Count: 2}}, facets.Country)
}

func (s *ServiceSuite) TestSuggestions() {
	s.seed("Johnny Five", "USA", domain.StatusExploring, "")
	s.seed("John Doe", "USA", domain.StatusExploring, "")
	s.seed("John Doe", "IND", domain.StatusExploring, "")
	s.seed("Ada", "IND", domain.StatusExploring, "")

	got, err := s.search.Suggestions(s.ctx, s.staff, domain.FieldName, "joh", 0)
	s.Require().NoError(err)
	s.Equal([]string{"John Doe", "Johnny Five"}, got)

	got, err = s.search.Suggestions(s.ctx, s.staff, domain.FieldName, "joh", 1)
	s.Require().NoError(err)
	s.Len(got, 1)

	_, err = s.search.Suggestions(s.ctx, s.staff, domain.FieldCreatedAt, "20", 5)
	s.True(domain.HasCode(err, domain.CodeValidation))

	_, err = s.search.Suggestions(s.ctx, s.staff, domain.FieldName, "joh", 51)
	s.True(domain.HasCode(err, domain.CodeValidation))
}
