package api

import (
	"net/http"
	"strconv"

	"github.com/fruitstand/fruitstand/internal/server"
	"github.com/fruitstand/fruitstand/pkg/auth"
)

// FruitsHandler handles GET /fruits.
func FruitsHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "GET":
			fruits, err := srv.Fruits.ListAll(r.Context())
			if err != nil {
				srv.Logger.Error("error listing fruits",
					append(logArgs, "error", err)...)
				http.Error(w, "Error listing fruits", errorStatus(err))
				return
			}

			writeJSON(w, srv.Logger, http.StatusOK, fruits, logArgs...)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// TopVotedHandler handles GET /fruits/top-voted. Failures are served the
// fallback list, so errors only surface when the fallback itself fails.
func TopVotedHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "GET":
			fruits, err := srv.Fruits.ListTopVoted(r.Context())
			if err != nil {
				srv.Logger.Error("error listing top voted fruits",
					append(logArgs, "error", err)...)
				http.Error(w, "Error listing top voted fruits", errorStatus(err))
				return
			}

			writeJSON(w, srv.Logger, http.StatusOK, fruits, logArgs...)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// FruitHandler handles DELETE /fruits/{id}. The caller must hold the
// configured delete role. An id that matches no row, including one that is
// not an integer, answers 404.
func FruitHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "DELETE":
			r, ok := requireRole(srv, w, r, srv.Config.Auth.DeleteRole)
			if !ok {
				return
			}
			logArgs = append(logArgs, "principal", auth.GetPrincipal(r.Context()).Name)

			id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
			if err != nil {
				srv.Logger.Debug("fruit id is not an integer",
					append(logArgs, "id", r.PathValue("id"))...)
				http.Error(w, "Fruit not found", http.StatusNotFound)
				return
			}
			logArgs = append(logArgs, "id", id)

			deleted, err := srv.Fruits.DeleteByID(r.Context(), id)
			if err != nil {
				srv.Logger.Error("error deleting fruit",
					append(logArgs, "error", err)...)
				http.Error(w, "Error deleting fruit", http.StatusInternalServerError)
				return
			}
			if deleted == 0 {
				http.Error(w, "Fruit not found", http.StatusNotFound)
				return
			}

			srv.Logger.Info("deleted fruit", logArgs...)
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
