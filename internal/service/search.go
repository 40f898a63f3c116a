package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/metrics"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"

	log "github.com/sirupsen/logrus"
)

// SearchService runs queries against an in-memory snapshot of the student
// table. There is no index: every call loads up to domain.SearchSnapshotCap
// rows and scans them.
type SearchService struct {
	repo    repository.StudentRepository
	audit   *AuditService
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSearchService(repo repository.StudentRepository, audit *AuditService, m *metrics.Metrics) *SearchService {
	return &SearchService{repo: repo, audit: audit, metrics: m, now: time.Now}
}

func (s *SearchService) Search(ctx context.Context, p *domain.Principal, q domain.SearchQuery) (*domain.SearchResult, error) {
	start := s.now()
	q = q.WithDefaults()

	result, err := s.search(ctx, q)
	elapsed := s.now().Sub(start)
	s.metrics.ObserveSearch(elapsed)

	details := map[string]any{
		"text_query":              q.TextQuery,
		"filters_count":           len(q.Filters),
		"date_filters_count":      len(q.DateFilters),
		"sort_field":              string(q.SortField),
		"sort_order":              string(q.SortOrder),
		"processing_time_seconds": elapsed.Seconds(),
	}
	if result != nil {
		details["results_count"] = len(result.Students)
		details["filtered_count"] = result.FilteredCount
	}
	s.audit.RecordResult(ctx, domain.AuditEntry{
		Principal:  p,
		Action:     domain.ActionSearchStudents,
		TargetType: domain.TargetStudent,
		Details:    details,
	}, err)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":    p.SubjectID,
			"text_query": q.TextQuery,
		}).Warn("Student search failed")
		return nil, err
	}

	result.SearchMetadata.ProcessingTimeSeconds = elapsed.Seconds()
	log.WithFields(log.Fields{
		"user_id":        p.SubjectID,
		"filtered_count": result.FilteredCount,
		"returned":       len(result.Students),
	}).Info("Student search completed")
	return result, nil
}

func (s *SearchService) search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	compiled, err := compileQuery(q)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.repo.Snapshot(ctx, domain.SearchSnapshotCap)
	if err != nil {
		return nil, domain.NewInternal("Student search operation failed", err)
	}

	matched := compiled.apply(snapshot)
	sortStudents(matched, q.SortField, q.SortOrder)

	filtered := len(matched)
	start := min(q.Offset, filtered)
	end := filtered
	if q.Limit < filtered-start {
		end = start + q.Limit
	}

	return &domain.SearchResult{
		Students:      append([]domain.Student{}, matched[start:end]...),
		TotalCount:    len(snapshot),
		FilteredCount: filtered,
		PageInfo: domain.PageInfo{
			Limit:       q.Limit,
			Offset:      q.Offset,
			CurrentPage: q.Offset/q.Limit + 1,
			TotalPages:  (filtered + q.Limit - 1) / q.Limit,
			HasNext:     q.Offset < filtered-q.Limit,
			HasPrevious: q.Offset > 0,
		},
		SearchMetadata: domain.SearchMetadata{
			QueryComplexity: queryComplexity(q),
			FiltersApplied:  len(q.Filters) + len(q.DateFilters),
			TextSearchUsed:  strings.TrimSpace(q.TextQuery) != "",
			ExecutedAt:      s.now().UTC(),
		},
	}, nil
}

// Facets counts status, country and grade values over every record, or over
// the records matching base when it is given.
func (s *SearchService) Facets(ctx context.Context, p *domain.Principal, base *domain.SearchQuery) (*domain.Facets, error) {
	students, err := s.repo.Snapshot(ctx, domain.SearchSnapshotCap)
	if err != nil {
		log.WithError(err).WithField("user_id", p.SubjectID).Error("Failed to load students for facets")
		return nil, domain.NewInternal("Failed to compute search facets", err)
	}

	if base != nil {
		compiled, err := compileQuery(base.WithDefaults())
		if err != nil {
			return nil, err
		}
		students = compiled.apply(students)
	}

	status := map[string]int{}
	country := map[string]int{}
	grade := map[string]int{}
	for _, st := range students {
		if st.ApplicationStatus != "" {
			status[string(st.ApplicationStatus)]++
		}
		if st.Country != "" {
			country[st.Country]++
		}
		if st.Grade != "" {
			grade[st.Grade]++
		}
	}

	return &domain.Facets{
		ApplicationStatus: facetCounts(status),
		Country:           facetCounts(country),
		Grade:             facetCounts(grade),
		TotalCount:        len(students),
	}, nil
}

func facetCounts(counts map[string]int) []domain.FacetCount {
	out := make([]domain.FacetCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, domain.FacetCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Suggestions returns distinct values of field containing partial.
func (s *SearchService) Suggestions(ctx context.Context, p *domain.Principal, field domain.SearchField, partial string, limit int) ([]string, error) {
	if limit == 0 {
		limit = domain.DefaultSuggestionLimit
	}
	if limit < 1 || limit > domain.MaxSuggestionLimit {
		return nil, domain.NewValidation("Limit must be between 1 and 50", map[string]any{"limit": limit})
	}
	if !field.Valid() || field.IsTime() {
		return nil, domain.NewValidation("Suggestions are only available for text fields", map[string]any{"field": string(field)})
	}
	partial = strings.ToLower(strings.TrimSpace(partial))
	if partial == "" {
		return nil, domain.NewValidation("Partial value is required", map[string]any{"partial_value": partial})
	}

	students, err := s.repo.Snapshot(ctx, domain.SuggestionSnapshotCap)
	if err != nil {
		log.WithError(err).WithField("user_id", p.SubjectID).Error("Failed to load students for suggestions")
		return nil, domain.NewInternal("Failed to get search suggestions", err)
	}

	seen := map[string]bool{}
	out := []string{}
	for i := range students {
		v, ok := valueOf(&students[i], field)
		if !ok || seen[v.str] {
			continue
		}
		if strings.Contains(strings.ToLower(v.str), partial) {
			seen[v.str] = true
			out = append(out, v.str)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func queryComplexity(q domain.SearchQuery) string {
	score := 0
	if strings.TrimSpace(q.TextQuery) != "" {
		score += 2
	}
	score += len(q.Filters) + len(q.DateFilters)
	if q.Limit > 100 {
		score++
	}
	switch {
	case score <= 2:
		return "low"
	case score <= 5:
		return "medium"
	default:
		return "high"
	}
}

// fieldValue is a student attribute as either text or an instant.
type fieldValue struct {
	str    string
	t      time.Time
	isTime bool
}

func (v fieldValue) String() string {
	if v.isTime {
		return v.t.UTC().Format(time.RFC3339)
	}
	return v.str
}

func valueOf(st *domain.Student, f domain.SearchField) (fieldValue, bool) {
	text := func(s string) (fieldValue, bool) { return fieldValue{str: s}, s != "" }
	instant := func(t time.Time) (fieldValue, bool) { return fieldValue{t: t, isTime: true}, !t.IsZero() }

	switch f {
	case domain.FieldName:
		return text(st.Name)
	case domain.FieldEmail:
		return text(st.Email)
	case domain.FieldPhone:
		return text(st.Phone)
	case domain.FieldCountry:
		return text(st.Country)
	case domain.FieldGrade:
		return text(st.Grade)
	case domain.FieldApplicationStatus:
		return text(string(st.ApplicationStatus))
	case domain.FieldLastActive:
		return instant(st.LastActive)
	case domain.FieldCreatedAt:
		return instant(st.CreatedAt)
	case domain.FieldUpdatedAt:
		return instant(st.UpdatedAt)
	}
	return fieldValue{}, false
}

func compareValues(a, b fieldValue) int {
	if a.isTime && b.isTime {
		return a.t.Compare(b.t)
	}
	return strings.Compare(a.String(), b.String())
}

// sortStudents is stable; records without a value go last in both directions.
func sortStudents(students []domain.Student, field domain.SearchField, order domain.SortDirection) {
	desc := order == domain.SortDesc
	sort.SliceStable(students, func(i, j int) bool {
		a, aok := valueOf(&students[i], field)
		b, bok := valueOf(&students[j], field)
		switch {
		case !aok:
			return false
		case !bok:
			return true
		}
		c := compareValues(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

type predicate func(st *domain.Student) bool

type compiledQuery struct {
	predicates []predicate
	terms      []string
	fields     []domain.SearchField
}

// apply keeps records matching every predicate and, when terms are set,
// having all terms inside at least one search field.
func (c *compiledQuery) apply(students []domain.Student) []domain.Student {
	out := []domain.Student{}
	for i := range students {
		st := &students[i]
		if c.matches(st) {
			out = append(out, *st)
		}
	}
	return out
}

func (c *compiledQuery) matches(st *domain.Student) bool {
	for _, pred := range c.predicates {
		if !pred(st) {
			return false
		}
	}
	if len(c.terms) == 0 {
		return true
	}
	for _, f := range c.fields {
		v, ok := valueOf(st, f)
		if !ok {
			continue
		}
		text := strings.ToLower(v.String())
		all := true
		for _, term := range c.terms {
			if !strings.Contains(text, term) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func compileQuery(q domain.SearchQuery) (*compiledQuery, error) {
	if q.Limit < 1 || q.Limit > domain.MaxSearchLimit {
		return nil, domain.NewValidation("Search limit cannot exceed 1000", map[string]any{
			"limit":     q.Limit,
			"max_limit": domain.MaxSearchLimit,
		})
	}
	if q.Offset < 0 {
		return nil, domain.NewValidation("Offset must not be negative", map[string]any{"offset": q.Offset})
	}
	if !q.SortField.Valid() {
		return nil, domain.NewValidation("Invalid sort field", map[string]any{"sort_field": string(q.SortField)})
	}
	if q.SortOrder != domain.SortAsc && q.SortOrder != domain.SortDesc {
		return nil, domain.NewValidation("Sort order must be 'asc' or 'desc'", map[string]any{"sort_order": string(q.SortOrder)})
	}
	for _, f := range q.SearchFields {
		if !f.Valid() {
			return nil, domain.NewValidation("Invalid search field", map[string]any{"search_field": string(f)})
		}
	}

	c := &compiledQuery{fields: q.SearchFields}

	if len(q.ApplicationStatuses) > 0 {
		allowed := make([]any, 0, len(q.ApplicationStatuses))
		for _, raw := range q.ApplicationStatuses {
			status, ok := domain.ParseApplicationStatus(string(raw))
			if !ok {
				return nil, domain.NewValidation("Invalid application status", map[string]any{
					"application_status": string(raw),
					"valid_statuses":     domain.ApplicationStatuses(),
				})
			}
			allowed = append(allowed, string(status))
		}
		pred, err := filterPredicate(domain.SearchFilter{Field: domain.FieldApplicationStatus, Operator: domain.OpIn, Value: allowed})
		if err != nil {
			return nil, err
		}
		c.predicates = append(c.predicates, pred)
	}

	if len(q.Countries) > 0 {
		allowed := make([]any, 0, len(q.Countries))
		for _, raw := range q.Countries {
			allowed = append(allowed, strings.ToUpper(strings.TrimSpace(raw)))
		}
		pred, err := filterPredicate(domain.SearchFilter{Field: domain.FieldCountry, Operator: domain.OpIn, Value: allowed})
		if err != nil {
			return nil, err
		}
		c.predicates = append(c.predicates, pred)
	}

	for _, f := range q.Filters {
		pred, err := filterPredicate(f)
		if err != nil {
			return nil, err
		}
		c.predicates = append(c.predicates, pred)
	}

	for _, df := range q.DateFilters {
		if !df.Field.IsTime() {
			return nil, domain.NewValidation("Date filters apply only to date fields", map[string]any{"field": string(df.Field)})
		}
		if df.StartDate != nil && df.EndDate != nil && df.StartDate.After(*df.EndDate) {
			return nil, domain.NewValidation("Start date must be before end date", map[string]any{
				"field":      string(df.Field),
				"start_date": df.StartDate.Format(time.RFC3339),
				"end_date":   df.EndDate.Format(time.RFC3339),
			})
		}
		if df.StartDate != nil {
			c.predicates = append(c.predicates, comparePredicate(df.Field, fieldValue{t: *df.StartDate, isTime: true}, func(c int) bool { return c >= 0 }))
		}
		if df.EndDate != nil {
			c.predicates = append(c.predicates, comparePredicate(df.Field, fieldValue{t: *df.EndDate, isTime: true}, func(c int) bool { return c <= 0 }))
		}
	}

	for _, term := range strings.Fields(strings.ToLower(q.TextQuery)) {
		c.terms = append(c.terms, term)
	}
	return c, nil
}

func filterPredicate(f domain.SearchFilter) (predicate, error) {
	if !f.Field.Valid() {
		return nil, domain.NewValidation("Invalid filter field", map[string]any{"field": string(f.Field)})
	}
	if !f.Operator.Valid() {
		return nil, domain.NewValidation(fmt.Sprintf("Invalid filter operator: %s", f.Operator), map[string]any{
			"operator":        string(f.Operator),
			"valid_operators": domain.FilterOperators(),
		})
	}

	if f.Operator == domain.OpIn {
		items, ok := toList(f.Value)
		if !ok {
			return nil, domain.NewValidation("The 'in' operator requires a list value", map[string]any{"field": string(f.Field)})
		}
		set := make([]fieldValue, 0, len(items))
		for _, item := range items {
			v, err := operand(f.Field, item)
			if err != nil {
				return nil, err
			}
			set = append(set, v)
		}
		return func(st *domain.Student) bool {
			v, ok := valueOf(st, f.Field)
			if !ok {
				return false
			}
			for _, candidate := range set {
				if compareValues(v, candidate) == 0 {
					return true
				}
			}
			return false
		}, nil
	}

	if f.Operator == domain.OpContains {
		needle := strings.ToLower(fmt.Sprint(f.Value))
		return func(st *domain.Student) bool {
			v, ok := valueOf(st, f.Field)
			return ok && strings.Contains(strings.ToLower(v.String()), needle)
		}, nil
	}

	want, err := operand(f.Field, f.Value)
	if err != nil {
		return nil, err
	}

	switch f.Operator {
	case domain.OpEq:
		return func(st *domain.Student) bool {
			v, ok := valueOf(st, f.Field)
			return ok && compareValues(v, want) == 0
		}, nil
	case domain.OpNe:
		return func(st *domain.Student) bool {
			v, ok := valueOf(st, f.Field)
			return !ok || compareValues(v, want) != 0
		}, nil
	case domain.OpGt:
		return comparePredicate(f.Field, want, func(c int) bool { return c > 0 }), nil
	case domain.OpGte:
		return comparePredicate(f.Field, want, func(c int) bool { return c >= 0 }), nil
	case domain.OpLt:
		return comparePredicate(f.Field, want, func(c int) bool { return c < 0 }), nil
	default:
		return comparePredicate(f.Field, want, func(c int) bool { return c <= 0 }), nil
	}
}

// comparePredicate fails records that have no value for field.
func comparePredicate(field domain.SearchField, want fieldValue, ok func(int) bool) predicate {
	return func(st *domain.Student) bool {
		v, present := valueOf(st, field)
		return present && ok(compareValues(v, want))
	}
}

var filterTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// operand converts a JSON filter value into the shape of field.
func operand(field domain.SearchField, raw any) (fieldValue, error) {
	if field.IsTime() {
		switch v := raw.(type) {
		case time.Time:
			return fieldValue{t: v, isTime: true}, nil
		case string:
			for _, layout := range filterTimeLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return fieldValue{t: t, isTime: true}, nil
				}
			}
		}
		return fieldValue{}, domain.NewValidation("Invalid date value for filter", map[string]any{
			"field": string(field),
			"value": raw,
		})
	}

	switch v := raw.(type) {
	case string:
		return fieldValue{str: v}, nil
	case float64:
		return fieldValue{str: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case bool:
		return fieldValue{str: strconv.FormatBool(v)}, nil
	case nil:
		return fieldValue{}, domain.NewValidation("Filter value is required", map[string]any{"field": string(field)})
	default:
		return fieldValue{str: fmt.Sprint(v)}, nil
	}
}

func toList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
