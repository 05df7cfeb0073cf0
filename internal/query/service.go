// Package query exposes the stored record history through a GraphQL schema.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/graphql-go/graphql"
)

// Window is the read path the schema resolves against.
type Window interface {
	SinceDays(days int64) int64
	Since(ctx context.Context, since int64, statusID string) ([]domain.StatusRecord, error)
}

// Request is a GraphQL request as sent over HTTP.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Service executes GraphQL requests.
type Service struct {
	schema  graphql.Schema
	window  Window
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds the schema over w.
func New(w Window, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	s := &Service{window: w, logger: logger, metrics: metrics}
	schema, err := s.buildSchema()
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Execute runs req and returns its data, or the messages of every error
// raised during validation or resolution.
func (s *Service) Execute(ctx context.Context, req Request) (any, []string) {
	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	if len(result.Errors) > 0 {
		s.metrics.GraphQLQueries.WithLabelValues("error").Inc()
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}
		return nil, msgs
	}
	s.metrics.GraphQLQueries.WithLabelValues("success").Inc()
	return result.Data, nil
}
