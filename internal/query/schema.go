package query

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/graphql-go/graphql"
)

func entryField(t graphql.Output, resolve func(domain.StatusRecord) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			rec, ok := p.Source.(domain.StatusRecord)
			if !ok {
				return nil, fmt.Errorf("unexpected source %T", p.Source)
			}
			return resolve(rec), nil
		},
	}
}

var auroraEntryType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "AuroraEntry",
	Description: "One stored activity observation.",
	Fields: graphql.Fields{
		"epochtime": entryField(graphql.NewNonNull(graphql.Int), func(r domain.StatusRecord) any {
			return int(r.EpochTime)
		}),
		"statusId": entryField(graphql.NewNonNull(graphql.String), func(r domain.StatusRecord) any {
			return r.StatusID
		}),
		// Decimal text, never a float.
		"value": entryField(graphql.NewNonNull(graphql.String), func(r domain.StatusRecord) any {
			return r.Value.String()
		}),
		"isoString": entryField(graphql.NewNonNull(graphql.String), func(r domain.StatusRecord) any {
			return r.ISOString
		}),
	},
})

func (s *Service) buildSchema() (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"auroraEntries": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(auroraEntryType))),
				Description: "Records from the last `days` days, oldest first.",
				Args: graphql.FieldConfigArgument{
					"days": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.Int),
					},
					"statusId": &graphql.ArgumentConfig{
						Type: graphql.String,
					},
				},
				Resolve: s.resolveAuroraEntries,
			},
			"hello": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{
						Type:         graphql.String,
						DefaultValue: "stranger",
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					name, _ := p.Args["name"].(string)
					return "Hello, " + name + "!", nil
				},
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

func (s *Service) resolveAuroraEntries(p graphql.ResolveParams) (any, error) {
	days, ok := p.Args["days"].(int)
	if !ok {
		return nil, errors.New("days is required")
	}
	if days < 0 {
		return nil, fmt.Errorf("days must not be negative, got %d", days)
	}
	statusID, _ := p.Args["statusId"].(string)

	since := s.window.SinceDays(int64(days))
	records, err := s.window.Since(p.Context, since, statusID)
	if err != nil {
		s.logger.Error("aurora entries query failed", "error", err, "days", days)
		return nil, err
	}
	if records == nil {
		records = []domain.StatusRecord{}
	}
	domain.SortByTime(records)
	return records, nil
}
