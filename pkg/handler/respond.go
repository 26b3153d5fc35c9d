package handler

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// Wire messages.
const (
	msgNotFound         = "Livro não encontrado"
	msgDeleted          = "Livro deletado"
	msgMalformed        = "Corpo da requisição inválido"
	msgInternal         = "Erro interno do servidor"
	msgRouteNotFound    = "Recurso não encontrado"
	msgMethodNotAllowed = "Método não permitido"
)

type errorResponse struct {
	Erro string `json:"erro"`
}

type messageResponse struct {
	Mensagem string `json:"mensagem"`
}

// writeJSON encodes v with status. Successful GET responses carry an ETag
// and answer 304 when it matches If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Erro: msgInternal})
	}
	h := w.Header()
	if r != nil && r.Method == http.MethodGet && status == http.StatusOK {
		tag := etag(body)
		h.Set("ETag", tag)
		if etagMatch(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, nil, status, errorResponse{Erro: msg})
}

func etag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
}

// gzipETagSuffix marks the ETag of a gzip-encoded response.
const gzipETagSuffix = "-gzip"

// etagMatch implements the weak comparison If-None-Match uses. A tag handed
// out with a gzip response matches the same body.
func etagMatch(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimSuffix(strings.Replace(candidate, gzipETagSuffix+`"`, `"`, 1), gzipETagSuffix)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
