package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/sheet_aggregator/internal/domain"
)

// ElasticRunIndex makes aggregation runs searchable by source location
// and output sheet name.
type ElasticRunIndex struct {
	client *elastic.Client
	index  string
}

// NewElasticRunIndex creates a new client for Elasticsearch 7.x.
func NewElasticRunIndex(url, index string) (*ElasticRunIndex, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticRunIndex{client: client, index: index}, nil
}

// IndexRun stores run under its id; runs without an id get a generated one.
func (es *ElasticRunIndex) IndexRun(ctx context.Context, run *domain.AggregationRun) error {
	req := es.client.Index().Index(es.index).BodyJson(run)
	if run.ID != 0 {
		req = req.Id(strconv.FormatInt(run.ID, 10))
	}
	if _, err := req.Do(ctx); err != nil {
		return fmt.Errorf("failed to index run %d: %w", run.ID, err)
	}
	return nil
}

// SearchRuns matches text against source labels and sheet names, newest
// first. An empty text lists the latest runs.
func (es *ElasticRunIndex) SearchRuns(ctx context.Context, text string, limit int) ([]domain.AggregationRun, error) {
	var query elastic.Query = elastic.NewMatchAllQuery()
	if text != "" {
		query = elastic.NewMultiMatchQuery(text, "labels", "sheet_names", "error")
	}
	if limit <= 0 {
		limit = 20
	}

	res, err := es.client.Search().
		Index(es.index).
		Query(query).
		Sort("started_at", false).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	runs := make([]domain.AggregationRun, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var run domain.AggregationRun
		if err := json.Unmarshal(hit.Source, &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
