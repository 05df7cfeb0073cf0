package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/aurora-watch-service/internal/query"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	maxRequestBytes = 1 << 20
	noQueryMessage  = "No GraphQL query found in the request"
)

func handleGraphQL(gql GraphQLExecutor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r)
		if !ok || strings.TrimSpace(req.Query) == "" {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": noQueryMessage})
			return
		}

		data, errs := gql.Execute(r.Context(), req)
		if len(errs) > 0 {
			logger.Debug("graphql request rejected", "errors", errs, "operation", req.OperationName)
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string][]string{"errors": errs})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"data": data})
	}
}

// decodeRequest reads a GraphQL request from the JSON body of a POST or the
// query string of a GET.
func decodeRequest(w http.ResponseWriter, r *http.Request) (query.Request, bool) {
	var req query.Request
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, false
			}
		}
		return req, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}
