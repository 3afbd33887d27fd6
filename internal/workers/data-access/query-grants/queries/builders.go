package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// ElasticsearchQuery defines the structure of a query request
type ElasticsearchQuery struct {
	Index      string
	QueryType  string
	Filters    map[string]interface{}
	GrantID    string
	Agency     string
	Pagination struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type and filters
func BuildQuery(esClient *elasticsearch.Client, eq ElasticsearchQuery) (*esapi.SearchRequest, error) {
	if eq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch eq.QueryType {
	case "grant_search":
		queryBody = buildGrantSearchQuery(eq)
	case "related_grants":
		queryBody = buildRelatedGrantsQuery(eq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, eq.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index:  []string{eq.Index},
		Body:   strings.NewReader(string(body)),
		From:   &eq.Pagination.From,
		Size:   &eq.Pagination.Size,
		Pretty: true,
	}

	return &req, nil
}

// buildGrantSearchQuery builds the main grant search query dynamically
func buildGrantSearchQuery(eq ElasticsearchQuery) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	// Keyword search
	if keywords, ok := eq.Filters["keywords"].(string); ok && keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"title^3", "description^2", "agency", "category"},
				"type":   "best_fields",
			},
		})
	}

	// Agency filter
	if agency, ok := eq.Filters["agency"].(string); ok && agency != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"agency": agency},
		})
	} else if eq.Agency != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"agency": eq.Agency},
		})
	}

	// Status filter; default to open and closing-soon calls
	if status, ok := eq.Filters["status"].(string); ok && status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	} else {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"status": []string{"OPEN", "CLOSING_SOON"}},
		})
	}

	// Grant value range filter on value_max
	if valueRange, ok := eq.Filters["valueRange"].(map[string]interface{}); ok {
		rangeClause := map[string]interface{}{}
		if min, ok := toFloat(valueRange["min"]); ok && min > 0 {
			rangeClause["gte"] = min
		}
		if max, ok := toFloat(valueRange["max"]); ok && max > 0 {
			rangeClause["lte"] = max
		}
		if len(rangeClause) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{"value_max": rangeClause},
			})
		}
	}

	// Deadline window: only grants still open at the given date
	if deadlineAfter, ok := eq.Filters["deadlineAfter"].(string); ok && deadlineAfter != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"deadline": map[string]interface{}{"gte": deadlineAfter},
			},
		})
	}

	// State filter against the eligibility criteria; grants with no state
	// restriction are nationwide and always match.
	if states, ok := eq.Filters["states"].([]interface{}); ok && len(states) > 0 {
		terms := make([]string, 0, len(states))
		for _, s := range states {
			if str, ok := s.(string); ok {
				terms = append(terms, str)
			}
		}
		if len(terms) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"bool": map[string]interface{}{
					"should": []interface{}{
						map[string]interface{}{
							"terms": map[string]interface{}{"eligibility_criteria.states": terms},
						},
						map[string]interface{}{
							"bool": map[string]interface{}{
								"must_not": map[string]interface{}{
									"exists": map[string]interface{}{"field": "eligibility_criteria.states"},
								},
							},
						},
					},
					"minimum_should_match": 1,
				},
			})
		}
	}

	// Default match_all if no keyword
	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	// Sorting logic
	if sortBy, ok := eq.Filters["sortBy"].(string); ok {
		switch sortBy {
		case "deadline":
			query["sort"] = []map[string]interface{}{{"deadline": "asc"}}
		case "value_max":
			query["sort"] = []map[string]interface{}{{"value_max": "desc"}}
		case "title":
			query["sort"] = []map[string]interface{}{{"title": "asc"}}
		}
	}

	return query
}

// buildRelatedGrantsQuery builds "similar grants" query
func buildRelatedGrantsQuery(eq ElasticsearchQuery) map[string]interface{} {
	if eq.GrantID == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"title", "description", "category"},
				"like": []map[string]interface{}{
					{"_index": eq.Index, "_id": eq.GrantID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
