package domain

import "time"

type SearchField string

const (
	FieldName              SearchField = "name"
	FieldEmail             SearchField = "email"
	FieldPhone             SearchField = "phone"
	FieldCountry           SearchField = "country"
	FieldGrade             SearchField = "grade"
	FieldApplicationStatus SearchField = "application_status"
	FieldLastActive        SearchField = "last_active"
	FieldCreatedAt         SearchField = "created_at"
	FieldUpdatedAt         SearchField = "updated_at"
)

func SearchFields() []SearchField {
	return []SearchField{
		FieldName, FieldEmail, FieldPhone, FieldCountry, FieldGrade,
		FieldApplicationStatus, FieldLastActive, FieldCreatedAt, FieldUpdatedAt,
	}
}

func (f SearchField) Valid() bool {
	for _, v := range SearchFields() {
		if f == v {
			return true
		}
	}
	return false
}

func (f SearchField) IsTime() bool {
	return f == FieldLastActive || f == FieldCreatedAt || f == FieldUpdatedAt
}

type FilterOperator string

const (
	OpEq       FilterOperator = "eq"
	OpNe       FilterOperator = "ne"
	OpGt       FilterOperator = "gt"
	OpGte      FilterOperator = "gte"
	OpLt       FilterOperator = "lt"
	OpLte      FilterOperator = "lte"
	OpContains FilterOperator = "contains"
	OpIn       FilterOperator = "in"
)

func FilterOperators() []FilterOperator {
	return []FilterOperator{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpIn}
}

func (o FilterOperator) Valid() bool {
	for _, v := range FilterOperators() {
		if o == v {
			return true
		}
	}
	return false
}

type SearchFilter struct {
	Field    SearchField    `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

type DateRangeFilter struct {
	Field     SearchField `json:"field"`
	StartDate *time.Time  `json:"start_date,omitempty"`
	EndDate   *time.Time  `json:"end_date,omitempty"`
}

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 1000
	SearchSnapshotCap  = 10000

	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 50
	SuggestionSnapshotCap  = 1000
)

type SearchQuery struct {
	TextQuery           string              `json:"text_query,omitempty"`
	SearchFields        []SearchField       `json:"search_fields,omitempty"`
	Filters             []SearchFilter      `json:"filters,omitempty"`
	DateFilters         []DateRangeFilter   `json:"date_filters,omitempty"`
	ApplicationStatuses []ApplicationStatus `json:"application_statuses,omitempty"`
	Countries           []string            `json:"countries,omitempty"`
	SortField           SearchField         `json:"sort_field,omitempty"`
	SortOrder           SortDirection       `json:"sort_order,omitempty"`
	Limit               int                 `json:"limit,omitempty"`
	Offset              int                 `json:"offset,omitempty"`
}

// WithDefaults fills omitted values. Limit zero means "not set" here.
func (q SearchQuery) WithDefaults() SearchQuery {
	if len(q.SearchFields) == 0 {
		q.SearchFields = []SearchField{FieldName, FieldEmail}
	}
	if q.SortField == "" {
		q.SortField = FieldCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	return q
}

type PageInfo struct {
	Limit       int  `json:"limit"`
	Offset      int  `json:"offset"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type SearchMetadata struct {
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	QueryComplexity       string    `json:"query_complexity"`
	FiltersApplied        int       `json:"filters_applied"`
	TextSearchUsed        bool      `json:"text_search_used"`
	ExecutedAt            time.Time `json:"executed_at"`
}

type SearchResult struct {
	Students       []Student      `json:"students"`
	TotalCount     int            `json:"total_count"`
	FilteredCount  int            `json:"filtered_count"`
	PageInfo       PageInfo       `json:"page_info"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

// FacetCount keeps facet buckets ordered by count when serialized.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Facets struct {
	ApplicationStatus []FacetCount `json:"application_status"`
	Country           []FacetCount `json:"country"`
	Grade             []FacetCount `json:"grade"`
	TotalCount        int          `json:"total_count"`
}
